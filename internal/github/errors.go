package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error types for GitHub client operations
type GitHubError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GitHubError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GitHub API error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *GitHubError) Unwrap() error {
	return e.Err
}

// RateLimitError represents when we hit GitHub's rate limits
type RateLimitError struct {
	ResetTime time.Time
	Limit     int
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded. Reset at %v. Limit: %d, Remaining: %d",
		e.ResetTime, e.Limit, e.Remaining)
}

// ValidationError represents invalid input to GitHub client methods
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: invalid %s: %s", e.Field, e.Value)
}

// RepositoryNotFoundError represents when a repository cannot be found
type RepositoryNotFoundError struct {
	Owner string
	Name  string
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("repository not found: %s/%s", e.Owner, e.Name)
}

// RefNotFoundError is returned when a branch reference does not exist yet
type RefNotFoundError struct {
	Ref string
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("reference not found: %s", e.Ref)
}

// RefConflictError is returned when a non-forcing ref update is rejected
type RefConflictError struct {
	Ref     string
	SHA     string
	Message string
}

func (e *RefConflictError) Error() string {
	return fmt.Sprintf("reference %s cannot be moved to %s: %s", e.Ref, e.SHA, e.Message)
}

// NewGitHubError creates a new GitHubError with the given status code and message
func NewGitHubError(statusCode int, message string, err error) error {
	return &GitHubError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// NewRateLimitError creates a new RateLimitError
func NewRateLimitError(resetTime time.Time, limit, remaining int) error {
	return &RateLimitError{
		ResetTime: resetTime,
		Limit:     limit,
		Remaining: remaining,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, value string) error {
	return &ValidationError{
		Field: field,
		Value: value,
	}
}

// NewRepositoryNotFoundError creates a new RepositoryNotFoundError
func NewRepositoryNotFoundError(owner, name string) error {
	return &RepositoryNotFoundError{
		Owner: owner,
		Name:  name,
	}
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsRefNotFound checks if an error reports a missing reference
func IsRefNotFound(err error) bool {
	var target *RefNotFoundError
	return errors.As(err, &target)
}

// IsRefConflict checks if an error reports a rejected ref update
func IsRefConflict(err error) bool {
	var target *RefConflictError
	return errors.As(err, &target)
}

// IsRepositoryNotFound checks if an error reports a missing repository
func IsRepositoryNotFound(err error) bool {
	var target *RepositoryNotFoundError
	return errors.As(err, &target)
}

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var ghErr *GitHubError
	if errors.As(err, &ghErr) {
		return ghErr.StatusCode
	}
	return 0
}

func isStatus(err error, codes ...int) bool {
	code := statusCode(err)
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// IsPermissionDenied reports 401/403 responses that are not rate limiting.
func IsPermissionDenied(err error) bool {
	return isStatus(err, http.StatusUnauthorized, http.StatusForbidden)
}
