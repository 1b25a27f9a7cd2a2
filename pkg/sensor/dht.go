package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/dht"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// reader is the part of *dht.Dev used here.
type reader interface {
	Read(v dht.Variant) (dht.Reading, error)
	Halt() error
}

// line is one sensor with its own lock: a line never carries two
// transactions at once.
type line struct {
	mu       sync.Mutex
	probe    probe
	dev      reader
	lastRead time.Time
}

// DHTSensor polls every configured DHT line. It owns the policies the driver
// leaves to callers: spacing between reads on a line and retries.
type DHTSensor struct {
	lines       []*line
	retries     int
	minInterval time.Duration
	unit        string
	log         logrus.FieldLogger

	now   func() time.Time
	sleep func(time.Duration)
}

func NewDHTSensor(cfg config.Config) (Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	probes, err := buildProbes(cfg)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("package", "sensor")
	lines := make([]*line, 0, len(probes))
	for _, p := range probes {
		pin := gpioreg.ByName(p.pin)
		if pin == nil {
			return nil, fmt.Errorf("sensor %s: unknown pin %q", p.name, p.pin)
		}
		dev, err := dht.New(pin, p.pullUp, dht.WithTick(uint32(cfg.TickUs)), dht.WithLogger(log.WithField("sensor", p.name)))
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", p.name, err)
		}
		lines = append(lines, &line{probe: p, dev: dev})
	}
	return newDHTSensor(lines, cfg, log), nil
}

func newDHTSensor(lines []*line, cfg config.Config, log logrus.FieldLogger) *DHTSensor {
	return &DHTSensor{
		lines:       lines,
		retries:     cfg.Retries,
		minInterval: time.Duration(cfg.MinReadIntervalMs) * time.Millisecond,
		unit:        cfg.TemperatureUnit,
		log:         log,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Read returns one reading per line that answered. Lines that failed every
// attempt are reported in the joined error; the others are still returned.
func (s *DHTSensor) Read() ([]Reading, error) {
	out := make([]Reading, 0, len(s.lines))
	var errs []error
	for _, l := range s.lines {
		r, err := s.readLine(l)
		if err != nil {
			errs = append(errs, fmt.Errorf("sensor %s: %w", l.probe.name, err))
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}

func (s *DHTSensor) readLine(l *line) (Reading, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for attempt := 1; attempt <= s.retries+1; attempt++ {
		if wait := s.minInterval - s.now().Sub(l.lastRead); wait > 0 {
			s.sleep(wait)
		}
		var r dht.Reading
		r, err = l.dev.Read(l.probe.variant)
		l.lastRead = s.now()
		if err == nil {
			h, t, c := convert(r, s.unit)
			return Reading{
				Sensor:      l.probe.name,
				Pin:         l.probe.pin,
				Variant:     l.probe.variant.String(),
				Humidity:    h,
				Temperature: t,
				Unit:        s.unit,
				Celsius:     c,
				Timestamp:   l.lastRead,
			}, nil
		}
		s.log.WithFields(logrus.Fields{"sensor": l.probe.name, "attempt": attempt}).WithError(err).Debug("read attempt failed")
	}
	return Reading{}, err
}

func (s *DHTSensor) Close() error {
	var errs []error
	for _, l := range s.lines {
		l.mu.Lock()
		if err := l.dev.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("sensor %s: %w", l.probe.name, err))
		}
		l.mu.Unlock()
	}
	return errors.Join(errs...)
}
