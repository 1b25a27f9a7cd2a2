package dht

import (
	"runtime/debug"
	"testing"
)

func TestRuntimeSectionRestoresGC(t *testing.T) {
	orig := debug.SetGCPercent(50)
	defer debug.SetGCPercent(orig)

	exit1 := RuntimeSection{}.Enter()
	exit2 := RuntimeSection{}.Enter()
	exit1()
	exit1()
	if p := debug.SetGCPercent(-1); p != -1 {
		t.Fatalf("GC re-enabled while a section is still held: %d", p)
	}
	exit2()
	if p := debug.SetGCPercent(50); p != 50 {
		t.Fatalf("GC percent after exit = %d; want 50", p)
	}
}
