// Package job defines the ExportJob value type and the FilterSet it carries.
// A Job is materialized once from a broker message by the queue consumer and
// is immutable thereafter — the Job Router and Report Builders only read it.
package job

// Mode selects the delivery sink used once the artifact is built.
type Mode string

const (
	ModeDownload Mode = "download"
	ModeEmail    Mode = "email"
)

// Module selects the top level of the report-builder dispatch tree.
type Module string

const (
	ModuleInsights   Module = "insights"
	ModuleUsageLogs  Module = "usageLogs"
)

// Condition is one entry of a FilterSet, keyed by field-path in the
// conditions map it lives in. Data frequently encodes multi-value
// selections using the literal delimiter "#@#" (see SplitMultiValue) or a
// numeric/timestamp range as "start#@#end" (see SplitRange). Callers must
// treat Data as opaque outside of the parsers in this package.
type Condition struct {
	Field     string `json:"field"`
	Data      string `json:"data"`
	Operation string `json:"operation"`
}

// FilterSet is an ordered mapping from field-path to Condition plus a regex
// string, exactly mirroring the wire shape of the broker envelope's filter
// and pageFilter members.
type FilterSet struct {
	Conditions map[string]Condition `json:"conditions"`
	Regex      string               `json:"regex"`
}

// Condition looks up a condition by field-path, tolerating a nil FilterSet
// (absent filter) or nil Conditions map.
func (f *FilterSet) Condition(field string) (Condition, bool) {
	if f == nil || f.Conditions == nil {
		return Condition{}, false
	}
	c, ok := f.Conditions[field]
	return c, ok
}

// ExportJob is the unit of work handed from the Queue Consumer to the Job
// Router. It is immutable after parsing and discarded when the job
// terminates — nothing downstream holds a reference past the pipeline that
// processed it.
type ExportJob struct {
	EventID    string     `json:"eventId"`
	Mode       Mode       `json:"mode"`
	Module     Module     `json:"module"`
	Type       string     `json:"type"`
	SubType    string     `json:"subType"`
	UserID     int64      `json:"user_id"`
	ClientID   int64      `json:"clientId"`
	ProductID  int64      `json:"productId"`
	Filter     *FilterSet `json:"filter,omitempty"`
	PageFilter *FilterSet `json:"pageFilter,omitempty"`
}

// Validate reports the first missing required field, matching the broker
// envelope contract in the external interfaces section: eventId, clientId,
// userId, module, type, mode are all mandatory. subType is intentionally not
// required here — some usage-log reports accept an empty subType and are
// routed on (module, type, "*").
func (j *ExportJob) Validate() error {
	switch {
	case j.EventID == "":
		return fieldError("eventId")
	case j.ClientID == 0:
		return fieldError("clientId")
	case j.UserID == 0:
		return fieldError("user_id")
	case j.Module == "":
		return fieldError("module")
	case j.Type == "":
		return fieldError("type")
	case j.Mode == "":
		return fieldError("mode")
	}
	return nil
}
