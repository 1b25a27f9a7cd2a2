package dht

import (
	"testing"
	"testing/quick"

	"periph.io/x/conn/v3/physic"
)

func TestPackMSBFirst(t *testing.T) {
	var bits [dataBits]bool
	bits[0] = true  // b0 = 0x80
	bits[15] = true // b1 = 0x01
	bits[18] = true // b2 = 0x20
	bits[39] = true // checksum = 0x01
	got := Pack(bits)
	want := Frame{0x80, 0x01, 0x20, 0x00, 0x01}
	if got != want {
		t.Fatalf("Pack = % x; want % x", got[:], want[:])
	}
}

func TestValidateChecksumProperty(t *testing.T) {
	if err := quick.Check(func(f Frame) bool {
		err := Validate(f)
		if f[4] == byte((int(f[0])+int(f[1])+int(f[2])+int(f[3]))%256) {
			return err == nil
		}
		return err == ErrChecksumMismatch
	}, nil); err != nil {
		t.Error(err)
	}
	if err := quick.Check(func(b0, b1, b2, b3 byte) bool {
		return Validate(NewFrame(b0, b1, b2, b3)) == nil
	}, nil); err != nil {
		t.Error(err)
	}
}

func TestValidateWraps(t *testing.T) {
	if err := Validate(Frame{0xFF, 0xFF, 0x01, 0x02, 0x01}); err != nil {
		t.Fatalf("0xFF+0xFF+0x01+0x02 should wrap to 0x01: %v", err)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		variant Variant
		hum     float32
		temp    float32
	}{
		{"dht11 integer", Frame{0x32, 0x00, 0x15, 0x00, 0x47}, DHT11, 50, 21},
		{"dht11 tenths", NewFrame(0x28, 0x05, 0x16, 0x03), DHT11, 40.5, 22.3},
		{"dht11 ignores sign bit", NewFrame(0x10, 0x00, 0x80, 0x00), DHT11, 16, 128},
		{"dht22 positive", NewFrame(0x02, 0x8C, 0x01, 0x5F), DHT22, 65.2, 35.1},
		{"dht22 negative", NewFrame(0x00, 0x00, 0x80, 0x19), DHT22, 0, -2.5},
		{"si7021 negative", NewFrame(0x03, 0xE8, 0x80, 0x65), SI7021, 100, -10.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, tp := Convert(tt.frame, tt.variant)
			if !floatEquals(h, tt.hum) || !floatEquals(tp, tt.temp) {
				t.Fatalf("Convert = %v, %v; want %v, %v", h, tp, tt.hum, tt.temp)
			}
		})
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	r, err := Decode(Frame{0x32, 0x00, 0x15, 0x00, 0x48}, DHT11)
	if err != ErrChecksumMismatch {
		t.Fatalf("got %v; want ErrChecksumMismatch", err)
	}
	if r != (Reading{}) {
		t.Fatalf("bytes trusted despite bad checksum: %+v", r)
	}
}

func TestDecodeBit(t *testing.T) {
	tests := []struct {
		low, high uint32
		want      bool
	}{
		{30, 70, true},
		{70, 30, false},
		{50, 50, false},
		{0, 2, true},
	}
	for _, tt := range tests {
		if got := decodeBit(tt.low, tt.high); got != tt.want {
			t.Fatalf("decodeBit(%d, %d) = %v; want %v", tt.low, tt.high, got, tt.want)
		}
	}
}

func TestReadingEnv(t *testing.T) {
	e := Reading{Humidity: 50, Temperature: 21}.Env()
	if e.Humidity != 50*physic.PercentRH {
		t.Fatalf("humidity %v", e.Humidity)
	}
	if e.Temperature != physic.ZeroCelsius+21*physic.Kelvin {
		t.Fatalf("temperature %v", e.Temperature)
	}
}
