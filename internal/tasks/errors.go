package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/vibelist/internal/shared"
)

// ErrorKind classifies a pipeline failure for the caller.
type ErrorKind int

const (
	KindGenerationFailed ErrorKind = iota
	KindInvalidRequest
	KindQuotaExceeded
	KindAuthExpired
	KindMalformedOutput
	KindResolution
	KindPublish
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindQuotaExceeded:
		return "quota exceeded"
	case KindAuthExpired:
		return "authorization expired"
	case KindMalformedOutput:
		return "malformed model output"
	case KindResolution:
		return "track resolution failed"
	case KindPublish:
		return "publish failed"
	default:
		return "generation failed"
	}
}

// Sentinel returns the shared error matched by [errors.Is] for this kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindInvalidRequest:
		return shared.ErrInvalidRequest
	case KindQuotaExceeded:
		return shared.ErrQuotaExceeded
	case KindAuthExpired:
		return shared.ErrTokenExpired
	case KindMalformedOutput:
		return shared.ErrMalformedModelOutput
	case KindResolution:
		return shared.ErrResolution
	case KindPublish:
		return shared.ErrPublish
	default:
		return shared.ErrGenerationFailed
	}
}

// GenerationError is returned by [GenerationEngine] for every failure.
//
// PlaylistID and PlaylistURL are set when the failure happened after the playlist was created,
// so the caller can still find it.
type GenerationError struct {
	Kind        ErrorKind
	Stage       Phase
	PlaylistID  string
	PlaylistURL string
	Err         error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s", e.Kind, e.Stage)
	if e.PlaylistID != "" {
		fmt.Fprintf(&b, " (playlist %s)", e.PlaylistID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Sentinel()}
	}
	return []error{e.Kind.Sentinel(), e.Err}
}

// KindOf reports the [ErrorKind] of err, or [KindGenerationFailed] when err is not a [*GenerationError].
func KindOf(err error) ErrorKind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindGenerationFailed
}

// MalformedOutputError reports model output that does not satisfy the expected schema.
type MalformedOutputError struct {
	Schema string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s output: %s", e.Schema, e.Reason)
}

func (e *MalformedOutputError) Unwrap() error {
	return shared.ErrMalformedModelOutput
}

func malformed(schema, format string, args ...any) error {
	return &MalformedOutputError{Schema: schema, Reason: fmt.Sprintf(format, args...)}
}
