package robotmodel

import (
	"github.com/pkg/errors"
)

var (
	// ErrSourceDataMissing is wrapped by description sources when no
	// description exists for a requested robot name.
	ErrSourceDataMissing = errors.New("no description data for robot")

	// ErrMalformedGraph is wrapped by construction errors caused by a
	// structurally invalid link/joint set.
	ErrMalformedGraph = errors.New("malformed kinematic graph")

	// ErrStateSizeMismatch is wrapped when a state vector's length matches
	// neither the expected view size.
	ErrStateSizeMismatch = errors.New("state size mismatch")

	// ErrIndexOutOfBounds is wrapped by accessor errors for indices that
	// exceed their container's bound.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// NewSourceDataMissingError returns an error indicating that no description
// could be found for the named robot.
func NewSourceDataMissingError(robotName string) error {
	return errors.Wrapf(ErrSourceDataMissing, "robot %q", robotName)
}

// NewMalformedGraphError returns an error describing why the link/joint set
// cannot form a valid kinematic tree.
func NewMalformedGraphError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedGraph, format, args...)
}

// NewIndexOutOfBoundsError returns an error for an index exceeding its
// container's bound.
func NewIndexOutOfBoundsError(what string, idx, length int) error {
	return errors.Wrapf(ErrIndexOutOfBounds, "%s index %d exceeds length %d", what, idx, length)
}

// NewStateSizeMismatchError returns an error for a state vector whose length
// does not match the expected view size.
func NewStateSizeMismatchError(view string, expected, got int) error {
	return errors.Wrapf(ErrStateSizeMismatch, "%s state expects %d values, got %d", view, expected, got)
}
