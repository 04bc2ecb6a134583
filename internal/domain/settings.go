package domain

import "context"

// SettingsResolver maps a named setting (as referenced by a profile's
// EndpointSettings) to its configured value. Unknown names return "".
type SettingsResolver interface {
	Setting(name string) string
}

// TokenProvider acquires bearer tokens for endpoint adapters that use token
// authentication. The scope defaults to the cognitive-services scope when a
// profile does not override it.
type TokenProvider interface {
	Token(ctx context.Context, scope string) (string, error)
}

// DefaultTokenScope is used when neither the profile nor the configuration
// names a scope.
const DefaultTokenScope = "https://cognitiveservices.azure.com/.default"
