package model

import "fmt"

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrNotFound         = AppError("NOT_FOUND")
	ErrAlreadySubmitted = AppError("ALREADY_SUBMITTED")
	ErrExpired          = AppError("ASSIGNMENT_EXPIRED")
)

// InsufficientCreditsError is returned by a failed spend and carries the
// balance the user had and the amount the operation needed.
type InsufficientCreditsError struct {
	Have int64
	Need int64
}

func (e InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %d, need %d", e.Have, e.Need)
}
