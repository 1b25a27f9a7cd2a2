package dht

import (
	"errors"
	"fmt"
	"time"
)

// Phase timeouts in microseconds.
const (
	ackLowTimeoutUs   = 40
	ackHighTimeoutUs  = 88
	ackEndTimeoutUs   = 88
	bitLowTimeoutUs   = 65
	bitHighTimeoutUs  = 75
	handshakePhases   = 3
	pollsPerDataFrame = handshakePhases + 2*dataBits
)

type phase int

const (
	phaseIdle phase = iota
	phaseResetPulse
	phaseAwaitAck1
	phaseAwaitAck2
	phaseAwaitAck3
	phaseReadBit
	phaseDone
)

var phaseNames = [...]string{"idle", "reset-pulse", "await-ack1", "await-ack2", "await-ack3", "read-bit", "done"}

func (p phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// decoder runs one transaction on the line. A new decoder is used per read so
// nothing from a failed transaction survives into the next one.
type decoder struct {
	line  *Line
	clock Clock
	tick  uint32

	phase phase
	bit   int
	bits  [dataBits]bool
}

func (d *decoder) run(v Variant) ([dataBits]bool, error) {
	for {
		switch d.phase {
		case phaseIdle:
			if err := d.line.SetLevel(false); err != nil {
				err = fmt.Errorf("dht: drive reset pulse on %s: %w", d.line, err)
				if rerr := d.line.SetLevel(true); rerr != nil {
					err = errors.Join(err, fmt.Errorf("dht: release %s: %w", d.line, rerr))
				}
				return d.bits, err
			}
			d.phase = phaseResetPulse
		case phaseResetPulse:
			d.clock.DelayMicros(v.resetPulseUs())
			if err := d.line.SetLevel(true); err != nil {
				return d.bits, fmt.Errorf("dht: release %s: %w", d.line, err)
			}
			d.phase = phaseAwaitAck1
		case phaseAwaitAck1:
			if _, ok := d.await(ackLowTimeoutUs, false); !ok {
				return d.bits, ErrInitAckMissing
			}
			d.phase = phaseAwaitAck2
		case phaseAwaitAck2:
			if _, ok := d.await(ackHighTimeoutUs, true); !ok {
				return d.bits, ErrInitAckIncomplete
			}
			d.phase = phaseAwaitAck3
		case phaseAwaitAck3:
			if _, ok := d.await(ackEndTimeoutUs, false); !ok {
				return d.bits, ErrInitAckTimeout
			}
			d.phase = phaseReadBit
		case phaseReadBit:
			low, ok := d.await(bitLowTimeoutUs, true)
			if !ok {
				return d.bits, &BitTimeoutError{Index: d.bit}
			}
			high, ok := d.await(bitHighTimeoutUs, false)
			if !ok {
				return d.bits, &BitTimeoutError{Index: d.bit}
			}
			d.bits[d.bit] = decodeBit(low, high)
			d.bit++
			if d.bit == dataBits {
				d.phase = phaseDone
			}
		case phaseDone:
			return d.bits, nil
		}
	}
}

func (d *decoder) await(timeout uint32, level bool) (uint32, bool) {
	return awaitLevel(d.line, d.clock, d.tick, timeout, level)
}

// decodeBit compares the high phase against the preceding low phase. Equal
// durations decode as 0.
func decodeBit(lowUs, highUs uint32) bool {
	return highUs > lowUs
}

// ReadBudget is the longest a single transaction can block before one of the
// phase timeouts fires, for the given variant and polling tick.
func ReadBudget(v Variant, tickUs uint32) time.Duration {
	us := v.resetPulseUs() +
		ackLowTimeoutUs + ackHighTimeoutUs + ackEndTimeoutUs +
		dataBits*(bitLowTimeoutUs+bitHighTimeoutUs) +
		pollsPerDataFrame*tickUs
	return time.Duration(us) * time.Microsecond
}
