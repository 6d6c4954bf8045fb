package task

import "errors"

var (
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrTaskNotFound        = errors.New("task not found")
	ErrAlreadyCompleted    = errors.New("task already completed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRejected            = errors.New("operation rejected by store")
)
