package shared

import "errors"

// DomainError is a broken business rule. Code is stable and reaches API
// clients, Message is meant for people.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so errors.Is finds
// ErrNotFound even when a repository built its own instance.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	return errors.As(target, &t) && t.Code == e.Code
}

// ErrNotFound is returned by repositories for a missing row.
var ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")
