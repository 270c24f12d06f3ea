package job

import (
	"strconv"
	"strings"
	"time"
)

// MultiValueDelimiter is the literal delimiter FilterSet.Data uses to encode
// multi-value selections (e.g. "ANSWERED#@#PARTIAL") and numeric/timestamp
// ranges (e.g. "1746297000000#@#1748888999999").
const MultiValueDelimiter = "#@#"

// SplitMultiValue splits a Condition's Data field on the literal delimiter,
// trimming whitespace from each part and dropping empty parts. An empty or
// absent Data yields a nil slice.
func SplitMultiValue(data string) []string {
	if data == "" {
		return nil
	}
	raw := strings.Split(data, MultiValueDelimiter)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SplitRange parses a Condition's Data field as "start#@#end" and returns
// both halves. ok is false if the field does not contain exactly two parts.
func SplitRange(data string) (start, end string, ok bool) {
	parts := strings.Split(data, MultiValueDelimiter)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// FAQSuffix is the All/Answered/Unanswered label driven by the job's status
// filter condition. Suffix is a pure function of
// job.filter.conditions["status"].data — see spec §4.5 and §8.
type FAQSuffix string

const (
	FAQSuffixAll        FAQSuffix = "All"
	FAQSuffixAnswered   FAQSuffix = "Answered"
	FAQSuffixUnanswered FAQSuffix = "Unanswered"
)

// DetermineFAQSuffix implements the suffix table from spec §4.5: "Contains"
// is substring containment against the status condition's Data, checked in
// the same priority order as _get_sheet_suffix in the original — triple,
// then the answered pair, then unanswered — so a realistic multi-select
// value like "ANSWERED#@#PARTIAL#@#SOMETHING" still matches "Answered"
// rather than falling through to "All". An absent filter/status condition
// falls back to "All".
func DetermineFAQSuffix(filter *FilterSet) FAQSuffix {
	cond, ok := filter.Condition("status")
	if !ok {
		return FAQSuffixAll
	}
	switch {
	case strings.Contains(cond.Data, "ANSWERED#@#NO_INFORMATION#@#PARTIAL"):
		return FAQSuffixAll
	case strings.Contains(cond.Data, "ANSWERED#@#PARTIAL"):
		return FAQSuffixAnswered
	case strings.Contains(cond.Data, "NO_INFORMATION"):
		return FAQSuffixUnanswered
	default:
		return FAQSuffixAll
	}
}

// ParseDateRange parses pageFilter.conditions["meta.created"].data as
// "<start_ms>#@#<end_ms>" into a pair of UTC timestamps. ok is false when
// the condition is absent or malformed.
func ParseDateRange(pageFilter *FilterSet) (start, end time.Time, ok bool) {
	cond, present := pageFilter.Condition("meta.created")
	if !present {
		return time.Time{}, time.Time{}, false
	}
	startStr, endStr, split := SplitRange(cond.Data)
	if !split {
		return time.Time{}, time.Time{}, false
	}
	start, err := parseEpochMillis(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = parseEpochMillis(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// RenderDateRange parses pageFilter.conditions["meta.created"].data as
// "<start_ms>#@#<end_ms>" and renders it as "<MMM d, yyyy> to <MMM d, yyyy>"
// in UTC. Returns "Date range not specified" when the condition is absent or
// malformed.
func RenderDateRange(pageFilter *FilterSet) string {
	start, end, ok := ParseDateRange(pageFilter)
	if !ok {
		return "Date range not specified"
	}
	return start.Format("Jan 2, 2006") + " to " + end.Format("Jan 2, 2006")
}

func parseEpochMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
