package spatialmath

import "github.com/pkg/errors"

// ErrIncompatibleRepresentation is wrapped by every error returned from an
// operation over mismatched representation tags without conversion permission.
var ErrIncompatibleRepresentation = errors.New("incompatible representation")

// NewIncompatibleRepresentationError returns an error indicating that an
// operation was attempted between two differently tagged values without
// conversion being permitted.
func NewIncompatibleRepresentationError(op, left, right string) error {
	return errors.Wrapf(ErrIncompatibleRepresentation, "%s between %s and %s", op, left, right)
}
