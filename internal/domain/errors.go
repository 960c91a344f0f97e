package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrRunBusy           = errors.New("run is already processing")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrProviderFailure   = errors.New("provider failure")
)

// ValidationError describes one settings or input field outside its domain.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every validation failure of a single request.
type ValidationErrors []ValidationError

// Add appends a formatted failure for field.
func (v *ValidationErrors) Add(field, format string, args ...any) {
	*v = append(*v, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all failures of other, prefixing their fields.
func (v *ValidationErrors) Merge(prefix string, other ValidationErrors) {
	for _, e := range other {
		if prefix != "" {
			if e.Field == "" {
				e.Field = prefix
			} else {
				e.Field = prefix + "." + e.Field
			}
		}
		*v = append(*v, e)
	}
}

// Has reports whether a failure was recorded for field.
func (v ValidationErrors) Has(field string) bool {
	for _, e := range v {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil when no failures were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// UploadError is returned when the media host rejects an upload or the
// request cannot complete.
type UploadError struct {
	File       string
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	msg := e.UserMessage()
	if e.File != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.File)
	}
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %s: %v", msg, e.Err)
	}
	return "upload failed: " + msg
}

func (e *UploadError) Unwrap() error { return e.Err }

// Is lets callers match any upload error against ErrProviderFailure.
func (e *UploadError) Is(target error) bool { return target == ErrProviderFailure }

// UserMessage returns the remote message when one was provided.
func (e *UploadError) UserMessage() string {
	if m := strings.TrimSpace(e.Message); m != "" {
		return m
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("media host responded with status %d", e.StatusCode)
	}
	return "media host unreachable"
}

// CompositionError signals that valid uploads could not be combined into a
// transformation URL, e.g. a required companion asset is missing.
type CompositionError struct {
	Tool   string
	Reason string
}

func (e *CompositionError) Error() string {
	if e.Tool == "" {
		return "compose: " + e.Reason
	}
	return fmt.Sprintf("compose %s: %s", e.Tool, e.Reason)
}

// ErrorKind classifies terminal run failures.
type ErrorKind string

const (
	ErrorKindUpload      ErrorKind = "upload"
	ErrorKindComposition ErrorKind = "composition"
	ErrorKindCanceled    ErrorKind = "canceled"
	ErrorKindInternal    ErrorKind = "internal"
)

// KindOf maps err onto the run failure taxonomy.
func KindOf(err error) ErrorKind {
	var upload *UploadError
	var compose *CompositionError
	switch {
	case errors.As(err, &compose):
		return ErrorKindComposition
	case errors.Is(err, context.Canceled):
		return ErrorKindCanceled
	case errors.As(err, &upload):
		return ErrorKindUpload
	default:
		return ErrorKindInternal
	}
}

// MessageOf renders the human readable message stored on a failed run.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var upload *UploadError
	if errors.As(err, &upload) {
		if upload.File != "" {
			return fmt.Sprintf("upload of %s failed: %s", upload.File, upload.UserMessage())
		}
		return "upload failed: " + upload.UserMessage()
	}
	if errors.Is(err, context.Canceled) {
		return "run was canceled"
	}
	return err.Error()
}
