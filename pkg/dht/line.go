package dht

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
)

// Line drives a single-wire bus as an open-drain output. Low is driven,
// high is produced by releasing the pin to input and letting the pull-up
// (internal or external) raise it. The pin stays readable in both states.
type Line struct {
	pin  gpio.PinIO
	pull gpio.Pull
}

// NewLine configures pin and leaves the line idle high.
func NewLine(pin gpio.PinIO, pullUp bool) (*Line, error) {
	if pin == nil {
		return nil, &ConfigError{Pin: "<nil>", Err: errors.New("pin is nil")}
	}
	l := &Line{pin: pin, pull: gpio.Float}
	if pullUp {
		l.pull = gpio.PullUp
	}
	if err := l.release(); err != nil {
		return nil, &ConfigError{Pin: pin.Name(), Err: err}
	}
	return l, nil
}

// SetLevel drives the line low or releases it high.
func (l *Line) SetLevel(high bool) error {
	if high {
		return l.release()
	}
	return l.pin.Out(gpio.Low)
}

// ReadLevel returns the current electrical level.
func (l *Line) ReadLevel() bool {
	return l.pin.Read() == gpio.High
}

func (l *Line) String() string {
	return l.pin.Name()
}

func (l *Line) release() error {
	return l.pin.In(l.pull, gpio.NoEdge)
}
