package errors

import "fmt"

var (
	ErrAccountNotFound      = fmt.Errorf("account not found")
	ErrAccountAlreadyExists = fmt.Errorf("account already exists")
	ErrTransientStore       = fmt.Errorf("durable store failure")
	ErrInvalidState         = fmt.Errorf("connection has no bound identity")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidPayload       = fmt.Errorf("invalid event payload")
	ErrEmptyWordList        = fmt.Errorf("no censored words have been found")
)
