package chat

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrTypeForbidden    ErrorType = "FORBIDDEN"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeStorage      ErrorType = "STORAGE"
	ErrTypeInference    ErrorType = "INFERENCE"
	ErrTypeValidation   ErrorType = "VALIDATION"
)

type ChatError struct {
	Type      ErrorType
	Operation string
	Message   string
	ChatID    uint
	Cause     error
}

// Sentinels for errors.Is; any ChatError of the same Type matches.
var (
	ErrUnauthorized = &ChatError{Type: ErrTypeUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &ChatError{Type: ErrTypeForbidden, Message: "forbidden"}
	ErrNotFound     = &ChatError{Type: ErrTypeNotFound, Message: "chat not found"}
	ErrStorage      = &ChatError{Type: ErrTypeStorage, Message: "storage failure"}
	ErrInference    = &ChatError{Type: ErrTypeInference, Message: "inference failure"}
	ErrValidation   = &ChatError{Type: ErrTypeValidation, Message: "invalid request"}
)

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

func (e *ChatError) Is(target error) bool {
	var other *ChatError
	if !errors.As(target, &other) {
		return false
	}
	return e.Type == other.Type
}

// TypeOf returns the ChatError type carried by err, or "" when err is not a ChatError.
func TypeOf(err error) ErrorType {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Type
	}
	return ""
}

func NewUnauthorizedError(operation string) *ChatError {
	return &ChatError{Type: ErrTypeUnauthorized, Operation: operation, Message: "no verified identity"}
}

// NewForbiddenError is returned when a write names a chat the caller does not own or that does not exist.
func NewForbiddenError(operation string, chatID uint) *ChatError {
	return &ChatError{Type: ErrTypeForbidden, Operation: operation, Message: "chat not found or not owned by caller", ChatID: chatID}
}

// NewNotFoundError deliberately carries the same message for absent and foreign chats.
func NewNotFoundError(operation string, chatID uint) *ChatError {
	return &ChatError{Type: ErrTypeNotFound, Operation: operation, Message: "chat not found", ChatID: chatID}
}

func NewStorageError(operation string, chatID uint, cause error) *ChatError {
	return &ChatError{Type: ErrTypeStorage, Operation: operation, Message: "could not persist chat", ChatID: chatID, Cause: cause}
}

func NewInferenceError(operation string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeInference, Operation: operation, Message: "completion failed", Cause: cause}
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}
