package dht

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// CriticalSection keeps the scheduler out of the timing-critical window.
// Enter returns the function that ends the section; it must run on every
// exit path.
type CriticalSection interface {
	Enter() (exit func())
}

// RuntimeSection pins the goroutine to its OS thread and stops the garbage
// collector until exit is called. Nested and concurrent sections on separate
// pins share one GC hold.
type RuntimeSection struct{}

func (RuntimeSection) Enter() func() {
	runtime.LockOSThread()
	holdGC()
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseGC()
			runtime.UnlockOSThread()
		})
	}
}

var gcHold struct {
	sync.Mutex
	n       int
	percent int
}

func holdGC() {
	gcHold.Lock()
	defer gcHold.Unlock()
	if gcHold.n == 0 {
		gcHold.percent = debug.SetGCPercent(-1)
	}
	gcHold.n++
}

func releaseGC() {
	gcHold.Lock()
	defer gcHold.Unlock()
	gcHold.n--
	if gcHold.n == 0 {
		debug.SetGCPercent(gcHold.percent)
	}
}
