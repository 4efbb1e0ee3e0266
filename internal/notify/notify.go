package notify

import (
	"errors"
	"log/slog"
	"strings"

	goerrors "github.com/go-errors/errors"

	"github.com/Joseda-hg/taskdeck/internal/db"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindPermission
	KindNotFound
	KindTransient
	KindPrecondition
	KindCancelled
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not-found"
	case KindTransient:
		return "transient"
	case KindPrecondition:
		return "precondition"
	case KindCancelled:
		return "cancelled"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Silent kinds are corrected without telling the user.
func (k Kind) Silent() bool {
	return k == KindPermission || k == KindCancelled
}

// ValidationError is a user input problem; its message is shown as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthError is returned for bad credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return KindValidation
	}
	var auth *AuthError
	if errors.As(err, &auth) {
		return KindAuth
	}
	switch db.CodeOf(err) {
	case db.CodePermissionDenied:
		return KindPermission
	case db.CodeNotFound:
		return KindNotFound
	case db.CodeUnavailable, db.CodeDeadlineExceeded:
		return KindTransient
	case db.CodeFailedPrecondition:
		return KindPrecondition
	case db.CodeCancelled:
		return KindCancelled
	case db.CodeInvalidArgument:
		return KindValidation
	}
	return KindUnknown
}

// Message is the text shown for err. fallback is used for unknown errors.
func Message(err error, fallback string) string {
	kind := Classify(err)
	switch kind {
	case KindNotFound:
		return "The requested resource was not found"
	case KindTransient:
		return "Network problem, please retry"
	case KindPrecondition:
		return "Index still building, retry shortly"
	case KindValidation, KindAuth:
		return err.Error()
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return "Something went wrong"
}

// Reporter turns errors into toasts. Permission and cancellation errors are dropped.
type Reporter struct {
	logger *slog.Logger
	toasts *Queue
}

func NewReporter(logger *slog.Logger, toasts *Queue) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger, toasts: toasts}
}

func (r *Reporter) Toasts() *Queue {
	return r.toasts
}

// Report records err and returns the kind it was classified as.
func (r *Reporter) Report(err error, message string) Kind {
	if err == nil {
		return KindUnknown
	}
	kind := Classify(err)
	if kind.Silent() {
		r.logger.Debug("suppressed error", "kind", kind.String(), "error", err)
		return kind
	}
	if kind == KindUnknown {
		r.logger.Error(message, "error", err, "stack", goerrors.Wrap(err, 1).ErrorStack())
	} else {
		r.logger.Warn(message, "kind", kind.String(), "error", err)
	}
	r.toasts.Push(Toast{Level: LevelError, Title: "Error", Message: Message(err, message)})
	return kind
}

func (r *Reporter) Success(message string) {
	r.toasts.Push(Toast{Level: LevelSuccess, Title: "Success", Message: message})
}
