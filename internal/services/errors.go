package services

import (
	"errors"
	"strings"
)

// Failure classes. Every error built by Wrap matches exactly one of them with
// errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Error is a classified failure of one step of acquisition.
type Error struct {
	Kind      error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	b.WriteString(": ")
	parts := 0
	for _, part := range []string{e.Stage, e.Operation, e.Message} {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		if parts > 0 {
			b.WriteString(": ")
		}
		b.WriteString(part)
		parts++
	}
	if parts == 0 {
		b.WriteString("service failure")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the class and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies err under kind, which should be one of the exported
// sentinels. A nil kind means ErrTransient. err may be nil.
func Wrap(kind error, stage, operation, message string, err error) error {
	if kind == nil {
		kind = ErrTransient
	}
	return &Error{Kind: kind, Stage: stage, Operation: operation, Message: message, Err: err}
}

var failureKinds = []struct {
	marker error
	label  string
}{
	{ErrConfiguration, "configuration"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrTimeout, "timeout"},
	{ErrExternalTool, "external_tool"},
}

// FailureKind maps an error to the short label used in structured logs and
// batch summaries. Unclassified errors are "transient".
func FailureKind(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range failureKinds {
		if errors.Is(err, kind.marker) {
			return kind.label
		}
	}
	return "transient"
}
