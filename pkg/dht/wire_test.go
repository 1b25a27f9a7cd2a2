package dht

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) NowMicros() uint64     { return c.now }
func (c *fakeClock) DelayMicros(us uint32) { c.now += uint64(us) }

// segment is a level the sensor holds for us microseconds.
type segment struct {
	level gpio.Level
	us    uint64
}

// sensorPin replays a scripted sensor answer once the host releases the line
// after a reset pulse. After the script the line sits at tail.
type sensorPin struct {
	gpiotest.Pin
	clock  *fakeClock
	script []segment
	tail   gpio.Level

	driven     bool
	released   bool
	lowAt      uint64
	releasedAt uint64
	resetUs    uint64
}

func newSensorPin(c *fakeClock, script []segment) *sensorPin {
	return &sensorPin{Pin: gpiotest.Pin{N: "GPIO4", Num: 4}, clock: c, script: script, tail: gpio.High}
}

func (p *sensorPin) Out(l gpio.Level) error {
	if l == gpio.Low {
		p.driven = true
		p.released = false
		p.lowAt = p.clock.now
	}
	p.L = l
	return nil
}

func (p *sensorPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if p.driven {
		p.resetUs = p.clock.now - p.lowAt
		p.releasedAt = p.clock.now
		p.released = true
	}
	p.driven = false
	p.P = pull
	return nil
}

func (p *sensorPin) Read() gpio.Level {
	if p.driven {
		return gpio.Low
	}
	if !p.released {
		return gpio.High
	}
	t := p.clock.now - p.releasedAt
	for _, s := range p.script {
		if t < s.us {
			return s.level
		}
		t -= s.us
	}
	return p.tail
}

const (
	zeroHighUs = 26
	oneHighUs  = 70
)

// answer is a well-formed sensor response carrying f.
func answer(f Frame) []segment {
	s := []segment{{gpio.High, 20}, {gpio.Low, 80}, {gpio.High, 80}}
	for _, b := range f {
		for i := 7; i >= 0; i-- {
			s = append(s, segment{gpio.Low, 50})
			if b>>uint(i)&1 == 1 {
				s = append(s, segment{gpio.High, oneHighUs})
			} else {
				s = append(s, segment{gpio.High, zeroHighUs})
			}
		}
	}
	return append(s, segment{gpio.Low, 50})
}

type countingSection struct {
	enters, exits int
}

func (c *countingSection) Enter() func() {
	c.enters++
	return func() { c.exits++ }
}
