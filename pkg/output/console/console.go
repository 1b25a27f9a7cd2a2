package console

import (
	"fmt"
	"time"

	"github.com/ericogr/dht-to-mqtt/pkg/output"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		fmt.Printf("%s sensor=%s humidity=%.2f temperature=%.2f unit=%s\n", r.Timestamp.Format(time.RFC3339), r.Sensor, r.Humidity, r.Temperature, r.Unit)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
