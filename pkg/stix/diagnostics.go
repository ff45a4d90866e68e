package stix

import "fmt"

// DiagnosticReason identifies the data-shape anomaly a diagnostic reports.
type DiagnosticReason string

const (
	ReasonMissingID       DiagnosticReason = "missing-id"
	ReasonMissingType     DiagnosticReason = "missing-type"
	ReasonMissingEndpoint DiagnosticReason = "missing-relationship-endpoint"
)

// Diagnostic reports a non-fatal per-record anomaly. The offending record is
// dropped and conversion continues; diagnostics are collected alongside the
// result, never raised as errors.
type Diagnostic struct {
	Reason     DiagnosticReason `json:"reason"`
	RecordID   string           `json:"record_id,omitempty"`
	RecordType string           `json:"record_type,omitempty"`
	Message    string           `json:"message"`
}

func (d Diagnostic) String() string {
	if d.RecordID != "" {
		return fmt.Sprintf("%s: %s (record %s)", d.Reason, d.Message, d.RecordID)
	}
	return fmt.Sprintf("%s: %s", d.Reason, d.Message)
}
