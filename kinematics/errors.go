package kinematics

import (
	"github.com/pkg/errors"
)

// ErrInvalidAxisValue is wrapped when a state carries a value no transform
// can be built from, such as NaN. Such values are surfaced, never clamped.
var ErrInvalidAxisValue = errors.New("invalid axis value")

// NewInvalidAxisValueError returns an error for an unusable value at the
// given full-state slot.
func NewInvalidAxisValueError(slot int, value float64) error {
	return errors.Wrapf(ErrInvalidAxisValue, "slot %d value %f", slot, value)
}

// newLimitWarning describes an out-of-bounds axis value. These are collected
// and returned alongside a valid result, not instead of one.
func newLimitWarning(jointName string, value, min, max float64) error {
	return errors.Errorf("joint %s value %.5f out of limits [%.5f, %.5f]", jointName, value, min, max)
}
