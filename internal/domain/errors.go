package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced across the registry boundary as structured
// responses, never as HTTP-level failures.
var (
	ErrWebhookUnsupported   = errors.New("webhook not supported")
	ErrPlatformNotConnected = errors.New("platform not connected")
)

// ConfigurationError reports a missing credential field. A platform with a
// ConfigurationError is simply not connected; initialization continues.
type ConfigurationError struct {
	Platform Platform
	Field    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Platform, e.Field)
}

// AuthenticationError means the marketplace rejected the credentials or
// answered without a token. Status and Body carry the upstream response for
// diagnostics.
type AuthenticationError struct {
	Platform Platform
	Status   int
	Body     string
	Reason   string
}

func (e *AuthenticationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: authentication failed (%s): status %d: %s", e.Platform, e.Reason, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Platform, e.Reason)
}

// UpstreamError is any non-success marketplace response during a data call,
// including transport failures and timeouts (Status 0).
type UpstreamError struct {
	Platform Platform
	Path     string
	Status   int
	Body     string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request %s failed: %v", e.Platform, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: request %s failed: status %d: %s", e.Platform, e.Path, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsAuthenticationError reports whether err wraps an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
