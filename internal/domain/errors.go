package domain

import "errors"

var (
	// ErrProfileNotFound means the request's profile flag names no known profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileAccessDenied means the caller's groups do not intersect the
	// profile's security groups.
	ErrProfileAccessDenied = errors.New("profile access denied")

	// ErrApproachNotConfigured means the profile declares an approach this
	// deployment cannot serve, or lacks the settings the approach requires.
	ErrApproachNotConfigured = errors.New("approach not configured")

	// ErrEndpointNotFound classifies an upstream 404 from an endpoint adapter.
	ErrEndpointNotFound = errors.New("assistant endpoint not found")

	// ErrEndpointThrottled classifies an upstream 429 from an endpoint adapter.
	ErrEndpointThrottled = errors.New("assistant endpoint throttled")
)
