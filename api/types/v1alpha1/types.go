// Package v1alpha1 contains API types for the Wrale Signage player.
package v1alpha1

// APIVersion is stamped on every message exchanged with the browser shell
const APIVersion = "v1alpha1"

// TypeMeta describes an individual object's type and API version
type TypeMeta struct {
	// Kind is a string value representing the type of this object
	Kind string `json:"kind,omitempty"`
	// APIVersion defines the versioned schema of this object
	APIVersion string `json:"apiVersion,omitempty"`
}

// Error is the error body returned by the configuration API
type Error struct {
	// Code provides error classification
	Code string `json:"code"`
	// Message provides error details
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}
