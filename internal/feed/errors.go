package feed

import (
	"errors"

	"factionwatch/internal/parser"
	"factionwatch/internal/store"
)

var (
	// ErrTimeout is returned by Source.Receive when no frame arrived in time.
	ErrTimeout       = errors.New("receive timeout")
	ErrDecompression = errors.New("decompression failed")
	// ErrFrameTooLarge is returned by a source that skipped one frame; the
	// source stays usable.
	ErrFrameTooLarge = errors.New("frame too large")
)

const (
	KindMalformedInput = "malformed_input"
	KindMissingField   = "missing_field"
	KindInvalidFormat  = "invalid_format"
	KindDecompression  = "decompression"
	KindOversized      = "oversized"
	KindStoreFailure   = "store_failure"
	KindOther          = "other"
)

// Classify maps err to the label used in logs and metrics.
func Classify(err error) string {
	switch {
	case errors.Is(err, parser.ErrMalformedInput):
		return KindMalformedInput
	case errors.Is(err, parser.ErrMissingField):
		return KindMissingField
	case errors.Is(err, parser.ErrInvalidFormat):
		return KindInvalidFormat
	case errors.Is(err, ErrDecompression):
		return KindDecompression
	case errors.Is(err, ErrFrameTooLarge):
		return KindOversized
	case errors.Is(err, store.ErrStoreFailure):
		return KindStoreFailure
	default:
		return KindOther
	}
}
