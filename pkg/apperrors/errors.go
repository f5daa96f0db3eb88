package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrSetupRequired     = errors.New("setup has not been completed")
	ErrSetupDone         = errors.New("setup has already been completed")
	ErrLastAdmin         = errors.New("cannot remove last admin")
	ErrInjectionDetected = errors.New("sql injection pattern detected in parameter value")
)
