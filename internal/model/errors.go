package model

import (
	"errors"
	"fmt"
)

// ErrValidation は入力検証エラーの sentinel
var ErrValidation = errors.New("validation failed")

// ValidationError は不正なフィールドと理由を保持する
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
