package dht

import (
	"periph.io/x/conn/v3/physic"
)

const dataBits = 40

// Frame is the raw payload: four data bytes followed by the checksum.
type Frame [5]byte

// NewFrame builds a frame with a valid checksum.
func NewFrame(b0, b1, b2, b3 byte) Frame {
	f := Frame{b0, b1, b2, b3}
	f[4] = f.Sum()
	return f
}

// Sum is the low byte of b0+b1+b2+b3.
func (f Frame) Sum() byte {
	return f[0] + f[1] + f[2] + f[3]
}

// Pack groups bits MSB first into bytes.
func Pack(bits [dataBits]bool) Frame {
	var f Frame
	for i, b := range bits {
		f[i/8] <<= 1
		if b {
			f[i/8] |= 1
		}
	}
	return f
}

// Validate rejects the whole frame when the checksum does not match.
func Validate(f Frame) error {
	if f[4] != f.Sum() {
		return ErrChecksumMismatch
	}
	return nil
}

// Convert turns the data bytes into %RH and °C. DHT11 sends integer and
// tenths bytes; DHT22 and SI7021 send sign-magnitude tenths.
func Convert(f Frame, v Variant) (humidity, temperature float32) {
	if v == DHT11 {
		humidity = float32(f[0]) + float32(f[1])*0.1
		temperature = float32(f[2]) + float32(f[3])*0.1
		return
	}
	humidity = float32(uint16(f[0])<<8|uint16(f[1])) / 10
	temperature = float32(uint16(f[2]&0x7F)<<8|uint16(f[3])) / 10
	if f[2]&0x80 != 0 {
		temperature = -temperature
	}
	return
}

// Reading is one successful measurement.
type Reading struct {
	Humidity    float32 // %RH
	Temperature float32 // °C
}

// Decode validates f and converts it.
func Decode(f Frame, v Variant) (Reading, error) {
	if err := Validate(f); err != nil {
		return Reading{}, err
	}
	h, t := Convert(f, v)
	return Reading{Humidity: h, Temperature: t}, nil
}

// Env expresses the reading in periph physical units.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(r.Temperature)*float64(physic.Kelvin)),
		Humidity:    physic.RelativeHumidity(float64(r.Humidity) * float64(physic.PercentRH)),
	}
}
