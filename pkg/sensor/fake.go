package sensor

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/dht"
)

// FakeSensor simulates the configured sensors. Values drift slowly and pass
// through the same frame encoding and checksum path as real hardware.
type FakeSensor struct {
	probes []probe
	unit   string
	state  map[string]*climate
	rnd    *rand.Rand
	mu     sync.Mutex
}

type climate struct {
	humidity    float64
	temperature float64
}

func NewFakeSensor(cfg config.Config) (Sensor, error) {
	probes, err := buildProbes(cfg)
	if err != nil {
		return nil, err
	}
	state := make(map[string]*climate, len(probes))
	for _, p := range probes {
		state[p.name] = &climate{humidity: 55, temperature: 22}
	}
	return &FakeSensor{
		probes: probes,
		unit:   cfg.TemperatureUnit,
		state:  state,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (f *FakeSensor) Read() ([]Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	out := make([]Reading, 0, len(f.probes))
	for _, p := range f.probes {
		c := f.state[p.name]
		c.humidity = clamp(c.humidity+f.rnd.Float64()*2-1, 20, 90)
		c.temperature = clamp(c.temperature+f.rnd.Float64()*0.6-0.3, 0, 40)
		r, err := dht.Decode(encodeFrame(c.humidity, c.temperature, p.variant), p.variant)
		if err != nil {
			return nil, err
		}
		humidity, temperature, celsius := convert(r, f.unit)
		out = append(out, Reading{
			Sensor:      p.name,
			Pin:         p.pin,
			Variant:     p.variant.String(),
			Humidity:    humidity,
			Temperature: temperature,
			Unit:        f.unit,
			Celsius:     celsius,
			Timestamp:   now,
		})
	}
	return out, nil
}

func (f *FakeSensor) Close() error { return nil }

// encodeFrame produces the frame a sensor of variant v would send for the
// given values.
func encodeFrame(humidity, temperature float64, v dht.Variant) dht.Frame {
	if v == dht.DHT11 {
		h := math.Round(clamp(humidity, 0, 255.9) * 10)
		t := math.Round(clamp(temperature, 0, 255.9) * 10)
		return dht.NewFrame(byte(int(h)/10), byte(int(h)%10), byte(int(t)/10), byte(int(t)%10))
	}
	h := uint16(math.Round(clamp(humidity, 0, 100) * 10))
	t := uint16(math.Round(math.Abs(temperature) * 10))
	b2 := byte(t>>8) & 0x7F
	if temperature < 0 && t != 0 {
		b2 |= 0x80
	}
	return dht.NewFrame(byte(h>>8), byte(h), b2, byte(t))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
