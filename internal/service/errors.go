// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Consensus.
var (
	ErrNotFound  = errors.New("not found")
	ErrLocked    = errors.New("translation key is locked")
	ErrForbidden = errors.New("not allowed")
	ErrDuplicate = errors.New("identical translation already exists")
)

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
