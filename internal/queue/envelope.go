// Package queue implements the Queue Consumer (C1): it long-polls the
// broker for batches of export-job messages, decodes each message's
// envelope, hands the parsed job to a Router, and reports per-message
// success/failure back to the broker so only the failed messages redrive.
//
// Grounded on original_source/sifthub/reporting/event/listener/sqs_listener.py
// (handle_records' per-record try/except loop building batchItemFailures)
// and export_event_handler.handle_event's SQSExportMessage(**event_context)
// parse step.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/sifthub/export-worker/internal/apperr"
	"github.com/sifthub/export-worker/internal/job"
)

// messageAttributeValue is one SQS MessageAttributes entry, carrying only
// the String value this worker reads (event_type).
type messageAttributeValue struct {
	Value string `json:"Value"`
}

// wrapperEnvelope is the "(b) wrapper" shape from spec §4.1: a stringified
// job under Message, plus an event_type attribute the source reads but
// this worker does not need to dispatch on (the job's own Module/Type/
// SubType fields already carry that information).
type wrapperEnvelope struct {
	Message           *string                           `json:"Message"`
	MessageAttributes map[string]messageAttributeValue `json:"MessageAttributes"`
}

// ParseEnvelope decodes one broker message body into an ExportJob,
// following sqs_listener.process_message: peek for a top-level "Message"
// key and recursively JSON-decode it if present, otherwise treat the body
// itself as the direct job payload. It then validates the job's required
// fields (spec §4.1 step 2); a parse or validation failure is always
// wrapped in apperr.ErrInvalidMessage, the poison-message case the
// consumer acknowledges without redriving.
func ParseEnvelope(body []byte) (*job.ExportJob, error) {
	var wrapper wrapperEnvelope
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: decode message body: %v", apperr.ErrInvalidMessage, err)
	}

	payload := body
	if wrapper.Message != nil {
		payload = []byte(*wrapper.Message)
	}

	var j job.ExportJob
	if err := json.Unmarshal(payload, &j); err != nil {
		return nil, fmt.Errorf("%w: decode job payload: %v", apperr.ErrInvalidMessage, err)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}
