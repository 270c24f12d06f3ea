// Package apperr defines the sentinel error kinds shared across the export
// pipeline. Every component wraps one of these with fmt.Errorf("...: %w", ...)
// so that callers can classify a failure with errors.Is without parsing
// strings, and the job router can decide whether a broker message should be
// acknowledged or left for redrive.
package apperr

import "errors"

var (
	// ErrInvalidMessage marks a broker envelope that is missing required
	// fields. The queue consumer acknowledges (drops) messages that fail
	// with this error — they would never succeed on redrive.
	ErrInvalidMessage = errors.New("export: invalid message")

	// ErrUnsupportedReport marks a job whose (module, type, subType) has no
	// registered report builder. Like ErrInvalidMessage, this is poison —
	// acknowledge and do not redrive.
	ErrUnsupportedReport = errors.New("export: unsupported report")

	// ErrTransientUpstream marks a failure reading from an analytics page
	// stream. The broker message is left unacknowledged so it redrives.
	ErrTransientUpstream = errors.New("export: transient upstream failure")

	// ErrStorageWrite marks a failed object-store write (skeleton upload,
	// append cycle, or multipart part). Left unacknowledged.
	ErrStorageWrite = errors.New("export: storage write failed")

	// ErrStorageRead marks a failed object-store read during the
	// download-mutate-upload append cycle. Left unacknowledged.
	ErrStorageRead = errors.New("export: storage read failed")

	// ErrAuditWriteMiss marks an audit update that modified zero rows. This
	// alone never fails a job — the row may have been reaped upstream. The
	// Mongo audit store logs the miss at warning; the router logs the
	// returned error at error level, as it does every audit update failure.
	ErrAuditWriteMiss = errors.New("export: audit write matched no row")

	// ErrNotifierFailure marks a failure publishing the completion
	// notification. Logged and swallowed; never fails the enclosing job.
	ErrNotifierFailure = errors.New("export: notifier failed")
)

// Retryable reports whether the broker message that produced err should be
// left unacknowledged for redrive (true) or acknowledged as poison (false).
// InvalidMessage and UnsupportedReport are the only two non-retryable kinds
// per the propagation policy — everything else redrives until the broker's
// own max-receive policy moves it to a dead-letter queue.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInvalidMessage) || errors.Is(err, ErrUnsupportedReport) {
		return false
	}
	return true
}
