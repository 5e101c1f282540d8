package apiErrors

import "fmt"

type ErrorCode string

const (
	ValidationError     ErrorCode = "VALIDATION_ERROR"
	InsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"
	AlreadySubmitted    ErrorCode = "ALREADY_SUBMITTED"
	AssignmentExpired   ErrorCode = "ASSIGNMENT_EXPIRED"
	VersionDowngrade    ErrorCode = "VERSION_DOWNGRADE"
	NotFound            ErrorCode = "NOT_FOUND"
	InternalError       ErrorCode = "INTERNAL_ERROR"
)

type APIError struct {
	Code    ErrorCode
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}
