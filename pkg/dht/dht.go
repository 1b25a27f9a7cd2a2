// Package dht reads DHT11, DHT22 (AM2302) and SI7021-compatible sensors over
// a single GPIO line.
//
// A transaction starts with a reset pulse driven by the host. The sensor
// answers with a low/high acknowledgement and then sends 40 bits, each a low
// phase followed by a high phase whose relative length encodes the bit. The
// whole exchange runs inside a CriticalSection because microsecond deadlines
// do not survive preemption; a missed deadline shows up as a timeout error,
// never as corrupted data.
//
// A Dev owns one pin. Reads on the same Dev must not overlap; separate Devs
// on separate pins are independent. The sensor needs about two seconds
// between reads; pacing and retries are left to the caller.
package dht

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// Dev is a handle on one sensor line.
type Dev struct {
	line    *Line
	clock   Clock
	section CriticalSection
	tick    uint32
	log     logrus.FieldLogger
}

// Option customises a Dev.
type Option func(*Dev)

// WithTick sets the polling resolution in microseconds. Zero is ignored.
func WithTick(us uint32) Option {
	return func(d *Dev) {
		if us > 0 {
			d.tick = us
		}
	}
}

// WithClock replaces the monotonic clock.
func WithClock(c Clock) Option {
	return func(d *Dev) { d.clock = c }
}

// WithCriticalSection replaces RuntimeSection.
func WithCriticalSection(cs CriticalSection) Option {
	return func(d *Dev) { d.section = cs }
}

// WithLogger sets the logger used to report failed reads at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dev) { d.log = l }
}

// New configures pin as an open-drain line idling high. The returned Dev is
// the only way to read, so a read can never precede initialisation.
func New(pin gpio.PinIO, pullUp bool, opts ...Option) (*Dev, error) {
	line, err := NewLine(pin, pullUp)
	if err != nil {
		return nil, err
	}
	d := &Dev{
		line:    line,
		clock:   NewMonotonicClock(),
		section: RuntimeSection{},
		tick:    DefaultTickUs,
		log:     logrus.WithField("package", "dht"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Read performs one transaction and returns the converted values. Every
// protocol failure matches ErrRead.
func (d *Dev) Read(v Variant) (Reading, error) {
	if !v.valid() {
		return Reading{}, fmt.Errorf("dht: invalid variant %d", int(v))
	}
	bits, last, err := d.fetch(v)
	if err != nil {
		d.log.WithFields(logrus.Fields{"pin": d.line.String(), "variant": v.String(), "phase": last.String()}).WithError(err).Debug("transaction failed")
		return Reading{}, err
	}
	frame := Pack(bits)
	r, err := Decode(frame, v)
	if err != nil {
		d.log.WithFields(logrus.Fields{"pin": d.line.String(), "frame": fmt.Sprintf("% x", frame[:])}).Debug("invalid data received from sensor")
		return Reading{}, err
	}
	d.log.WithFields(logrus.Fields{"humidity": r.Humidity, "temperature": r.Temperature}).Debug("sensor data")
	return r, nil
}

func (d *Dev) fetch(v Variant) ([dataBits]bool, phase, error) {
	exit := d.section.Enter()
	defer exit()
	dec := decoder{line: d.line, clock: d.clock, tick: d.tick}
	bits, err := dec.run(v)
	return bits, dec.phase, err
}

func (d *Dev) String() string {
	return "dht(" + d.line.String() + ")"
}

// Halt releases the line to its idle high level.
func (d *Dev) Halt() error {
	return d.line.SetLevel(true)
}
