package services

import "fmt"

// ServiceError carries an HTTP status alongside a client-safe message so
// controllers can map service failures directly onto responses.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error (status %d): %s", e.StatusCode, e.Message)
}

func NewServiceError(status int, message string) *ServiceError {
	return &ServiceError{StatusCode: status, Message: message}
}
