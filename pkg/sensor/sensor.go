package sensor

import "time"

type Reading struct {
	Sensor      string    `json:"sensor"`
	Pin         string    `json:"pin"`
	Variant     string    `json:"variant"`
	Humidity    float64   `json:"humidity"`
	Temperature float64   `json:"temperature"`
	Unit        string    `json:"unit"`
	// Celsius is the temperature in °C whatever Unit says.
	Celsius     float64   `json:"celsius"`
	Timestamp   time.Time `json:"timestamp"`
}

type Sensor interface {
	Read() ([]Reading, error)
	Close() error
}
