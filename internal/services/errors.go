package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the engine error taxonomy. Every failure that can
// reach the command boundary wraps exactly one of these so the boundary can
// translate it into a single user-visible reply.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrPermission           = errors.New("permission denied")
	ErrAlreadyCompleted     = errors.New("request already completed")
	ErrAlreadyCancelled     = errors.New("request already cancelled")
	ErrConfirmationExpired  = errors.New("confirmation expired")
	ErrDelivery             = errors.New("delivery failed")
	ErrConflict             = errors.New("state changed underneath")
	ErrUnsupportedTransport = errors.New("transport capability unsupported")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConflict
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Terminal reports whether the error marks a request already in a terminal
// state, which callers treat as an idempotent no-op rather than a failure.
func Terminal(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrAlreadyCancelled)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
