package dht

import (
	"errors"
	"fmt"
)

// ErrRead is matched by every error returned from a failed Read.
var ErrRead = errors.New("dht: read failed")

var (
	ErrInitAckMissing    = &readError{"no acknowledgement from sensor"}
	ErrInitAckIncomplete = &readError{"acknowledgement low phase too long"}
	ErrInitAckTimeout    = &readError{"acknowledgement high phase too long"}
	ErrChecksumMismatch  = &readError{"checksum mismatch"}
)

type readError struct {
	msg string
}

func (e *readError) Error() string        { return "dht: " + e.msg }
func (e *readError) Is(target error) bool { return target == ErrRead }

// BitTimeoutError reports which data bit did not complete in time.
type BitTimeoutError struct {
	Index int
}

func (e *BitTimeoutError) Error() string {
	return fmt.Sprintf("dht: timeout reading bit %d", e.Index)
}

func (e *BitTimeoutError) Is(target error) bool { return target == ErrRead }

// ConfigError is returned by New when the platform rejects the pin setup.
type ConfigError struct {
	Pin string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dht: configure pin %s: %v", e.Pin, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
