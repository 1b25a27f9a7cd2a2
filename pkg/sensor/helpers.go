package sensor

import (
	"fmt"
	"math"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/dht"
	"periph.io/x/conn/v3/physic"
)

// probe is the resolved form of one enabled sensor entry.
type probe struct {
	name    string
	pin     string
	variant dht.Variant
	pullUp  bool
}

// buildProbes resolves the enabled sensors of cfg, in configuration order.
func buildProbes(cfg config.Config) ([]probe, error) {
	enabled := cfg.EnabledSensors()
	out := make([]probe, 0, len(enabled))
	for _, s := range enabled {
		v, err := dht.ParseVariant(s.Variant)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		out = append(out, probe{name: s.Name, pin: s.Pin, variant: v, pullUp: s.PullUp})
	}
	return out, nil
}

// convert expresses r in unit through periph's physical units. All values
// are rounded to two decimals.
func convert(r dht.Reading, unit string) (humidity, temperature, celsius float64) {
	env := r.Env()
	celsius = env.Temperature.Celsius()
	temperature = celsius
	if unit == config.UnitFahrenheit {
		temperature = env.Temperature.Fahrenheit()
	}
	humidity = float64(env.Humidity) / float64(physic.PercentRH)
	return round2(humidity), round2(temperature), round2(celsius)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
