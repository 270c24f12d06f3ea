package job

import (
	"fmt"

	"github.com/sifthub/export-worker/internal/apperr"
)

// fieldError wraps apperr.ErrInvalidMessage with the name of the missing
// required field, so callers can log a precise reason while still matching
// on the sentinel with errors.Is.
func fieldError(field string) error {
	return fmt.Errorf("%w: missing required field %q", apperr.ErrInvalidMessage, field)
}
