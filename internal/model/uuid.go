package model

import "github.com/google/uuid"

// NewRunID creates a unique identifier for one pipeline run.
func NewRunID() string {
	return uuid.New().String()
}
