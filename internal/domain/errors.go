package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStepNotFound      = errors.New("step not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrClaimLost         = errors.New("step is no longer ready to claim")
	ErrClaimMismatch     = errors.New("claim token does not match the current claim")
	ErrInvalidTransition = errors.New("step has not been activated")
	ErrInvalidSequence   = errors.New("invalid campaign configuration")
	ErrSequenceLocked    = errors.New("sequence cannot change after the campaign is published")
	ErrSenderRequired    = errors.New("sender identity is required")
)

// Problem is a single field-level configuration issue.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ConfigError collects the problems found while validating a campaign for
// publishing. It matches ErrInvalidSequence with errors.Is.
type ConfigError struct {
	Problems []Problem `json:"problems"`
}

func (e *ConfigError) Add(field, message string) {
	e.Problems = append(e.Problems, Problem{Field: field, Message: message})
}

func (e *ConfigError) HasProblems() bool {
	return len(e.Problems) > 0
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSequence, strings.Join(parts, "; "))
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidSequence
}
