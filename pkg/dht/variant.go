package dht

import (
	"fmt"
	"strings"
)

// Variant selects the sensor family. It drives both the reset pulse length
// and the byte conversion rules.
type Variant int

const (
	DHT11 Variant = iota + 1
	DHT22
	SI7021
)

func (v Variant) String() string {
	switch v {
	case DHT11:
		return "dht11"
	case DHT22:
		return "dht22"
	case SI7021:
		return "si7021"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant accepts the lower or upper case sensor name. AM2302 is an
// alias for DHT22.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dht11":
		return DHT11, nil
	case "dht22", "am2302":
		return DHT22, nil
	case "si7021":
		return SI7021, nil
	}
	return 0, fmt.Errorf("dht: unknown sensor variant %q", s)
}

// resetPulseUs is how long the host holds the line low to start a transaction.
func (v Variant) resetPulseUs() uint32 {
	if v == SI7021 {
		return 500
	}
	return 20000
}

func (v Variant) valid() bool {
	return v == DHT11 || v == DHT22 || v == SI7021
}
