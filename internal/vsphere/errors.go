package vsphere

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCounter is matched by every UnknownCounterError.
	ErrUnknownCounter = errors.New("unknown performance counter")
	// ErrInvalidCounterName is returned for names not shaped group:name:rollup.
	ErrInvalidCounterName = errors.New("invalid performance counter name")
	ErrEmptyResult        = errors.New("empty result from property collector")
)

// UnknownCounterError reports a counter name that the vCenter catalog does
// not define. It is always a caller error and is never retried.
type UnknownCounterError struct {
	Name string
}

func (e *UnknownCounterError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownCounter, e.Name)
}

func (e *UnknownCounterError) Is(target error) bool {
	return target == ErrUnknownCounter
}

// MissingPropertyError is returned when the property collector reports a
// fault for the requested path instead of a value.
type MissingPropertyError struct {
	Object string
	Path   string
	Fault  string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("property %q of %s could not be retrieved: %s", e.Path, e.Object, e.Fault)
}
