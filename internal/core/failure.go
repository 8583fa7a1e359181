package core

import "fmt"

// FailureKind classifies why an envelope did not produce a genuine payload.
type FailureKind string

const (
	KindRemoteUnavailable FailureKind = "remote_unavailable"
	KindMalformedOutput   FailureKind = "malformed_output"
	KindSchemaMismatch    FailureKind = "schema_mismatch"
	KindInvalidInput      FailureKind = "invalid_input"
	// KindCanceled marks batch items never dispatched because the batch
	// context ended first.
	KindCanceled FailureKind = "canceled"
)

// Failure describes a failed envelope. Raw holds the provider text when
// there was any.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Raw     *string     `json:"raw,omitempty"`
}

// NewFailure constructs a Failure. raw may be nil.
func NewFailure(kind FailureKind, message string, raw *string) *Failure {
	return &Failure{Kind: kind, Message: message, Raw: raw}
}

// WithRaw returns a Failure that retains the raw provider text.
func WithRaw(kind FailureKind, message string, raw string) *Failure {
	return &Failure{Kind: kind, Message: message, Raw: &raw}
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Message == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Degradable reports whether the failure may be replaced by a fallback payload.
func (f *Failure) Degradable() bool {
	return f != nil && (f.Kind == KindMalformedOutput || f.Kind == KindSchemaMismatch)
}
