package collision

import (
	"github.com/pkg/errors"
)

var (
	// ErrSchemeNotPreprocessed is wrapped when a query names a shape
	// representation scheme no collection has been preprocessed (or loaded)
	// for.
	ErrSchemeNotPreprocessed = errors.New("scheme not preprocessed")

	// ErrUnknownShapeSignature is wrapped when a signature is absent from a
	// collection.
	ErrUnknownShapeSignature = errors.New("unknown shape signature")
)

// NewSchemeNotPreprocessedError returns an error naming the missing scheme.
func NewSchemeNotPreprocessedError(scheme Scheme) error {
	return errors.Wrapf(ErrSchemeNotPreprocessed, "scheme %s", scheme)
}

// NewUnknownShapeSignatureError returns an error naming the missing
// signature.
func NewUnknownShapeSignatureError(sig Signature) error {
	return errors.Wrapf(ErrUnknownShapeSignature, "link %d sub-shape %d", sig.LinkIdx, sig.SubIdx)
}
