// Package serialline writes readings as WxShield sensor lines so an
// existing weather station parser can consume them from a serial port.
package serialline

import (
	"fmt"
	"io"
	"math"

	"github.com/tarm/serial"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/output"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
)

type SerialOutput struct {
	port io.WriteCloser
}

func NewSerial(cfg config.SerialConfig) (output.Output, error) {
	c := &serial.Config{
		Name: cfg.Port,
		Baud: cfg.Baud,
	}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	s.Flush()
	return &SerialOutput{port: s}, nil
}

// FormatLine renders temperature in tenths of °C and humidity in tenths of
// a percent as hex, e.g. "DHT:D2,1F4\n" for 21.0 °C and 50.0 percent. The
// configured display unit does not apply: the line format is Celsius only.
func FormatLine(r sensor.Reading) string {
	temp := int(math.Round(r.Celsius * 10))
	hum := int(math.Round(r.Humidity * 10))
	return fmt.Sprintf("DHT:%X,%X\n", temp, hum)
}

func (s *SerialOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		if _, err := io.WriteString(s.port, FormatLine(r)); err != nil {
			return fmt.Errorf("write %s: %w", r.Sensor, err)
		}
	}
	return nil
}

func (s *SerialOutput) Close() error {
	return s.port.Close()
}
