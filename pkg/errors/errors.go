package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// InvalidArgsError reports bad construction input: an unknown option key,
// a value of the wrong kind, or a missing session. It is always fatal to
// construction and never retried.
type InvalidArgsError struct {
	Plugin  string
	Keys    []string
	Message string
}

// NewInvalidArgs constructs an InvalidArgsError with a free-form message.
func NewInvalidArgs(plugin, message string) error {
	return &InvalidArgsError{Plugin: plugin, Message: message}
}

// NewUnknownOptions constructs an InvalidArgsError for leftover option keys.
func NewUnknownOptions(plugin string, keys []string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return &InvalidArgsError{Plugin: plugin, Keys: sorted}
}

func (e *InvalidArgsError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Keys) > 0 {
		return fmt.Sprintf(
			"invalid arguments for plugin '%s': unknown options: %s\nHint: run 'recollect describe %s' to list accepted options",
			e.Plugin, strings.Join(e.Keys, ", "), e.Plugin,
		)
	}
	if e.Plugin != "" {
		return fmt.Sprintf("invalid arguments for plugin '%s': %s", e.Plugin, e.Message)
	}
	return "invalid arguments: " + e.Message
}

// Is matches any other InvalidArgsError.
func (e *InvalidArgsError) Is(target error) bool {
	_, ok := target.(*InvalidArgsError)
	return ok
}

// PluginError reports that a required resource (profile, address space,
// privilege) could not be satisfied even after autodetection. Callers may
// retry with explicit overrides; the framework never retries on its own.
type PluginError struct {
	Plugin   string
	Resource string
	Message  string
	Err      error
	Hint     string
}

// NewPluginError constructs a PluginError for the named plugin and resource.
func NewPluginError(plugin, resource, message string) error {
	return &PluginError{Plugin: plugin, Resource: resource, Message: message}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("plugin error")
	if e.Plugin != "" {
		fmt.Fprintf(&b, " in '%s'", e.Plugin)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, " (resource %s)", e.Resource)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any other PluginError.
func (e *PluginError) Is(target error) bool {
	_, ok := target.(*PluginError)
	return ok
}

// AbortError signals voluntary early termination of a plugin's own
// execution. It propagates to the invoker as a normal termination, not a
// failure.
type AbortError struct {
	Plugin string
	Reason string
}

// NewAbort constructs an AbortError.
func NewAbort(plugin, reason string) error {
	return &AbortError{Plugin: plugin, Reason: reason}
}

func (e *AbortError) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason != "" {
		return fmt.Sprintf("plugin '%s' aborted: %s", e.Plugin, e.Reason)
	}
	return fmt.Sprintf("plugin '%s' aborted", e.Plugin)
}

// Is matches any other AbortError.
func (e *AbortError) Is(target error) bool {
	_, ok := target.(*AbortError)
	return ok
}

// IsAbort reports whether err is (or wraps) an AbortError.
func IsAbort(err error) bool {
	var abort *AbortError
	return stderrors.As(err, &abort)
}

// ParseError represents a profile definition parsing failure with optional
// line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures profile or schema validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
