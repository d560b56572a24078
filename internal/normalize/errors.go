package normalize

import (
	"errors"

	"github.com/fanworks/storygraph/internal/record"
)

// ErrMalformedRecord marks a record missing a natural-key field. No
// partial entity is created for it.
var ErrMalformedRecord = errors.New("malformed record")

// ErrUnknownReviewable marks a review whose target cannot be classified
// as a story or chapter. Author and parent entities resolved before the
// rejection are kept; they may serve later records.
var ErrUnknownReviewable = errors.New("unknown reviewable type")

// Rejected reports whether the error marks a record that should be
// skipped rather than retried. Store errors are not rejections: the
// pipeline is idempotent, so re-issuing the same record is safe.
func Rejected(err error) bool {
	return errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrUnknownReviewable) ||
		errors.Is(err, record.ErrUnknownKind)
}
