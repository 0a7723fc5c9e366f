// Package repository contains data access logic separated from HTTP
// handlers. This file defines sentinel error values shared across
// repositories so higher layers can distinguish failure scenarios
// without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned when registration collides with an
// existing account for the same normalized email. Handlers should
// translate this into an HTTP 400 response.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when a user lookup matches no row.
var ErrUserNotFound = errors.New("user not found")

// ErrTaskNotFound is returned when a task lookup matches no row.
// Handlers translate this into HTTP 404. Ownership mismatches are a
// separate concern decided above the repository, after existence is
// confirmed.
var ErrTaskNotFound = errors.New("task not found")
