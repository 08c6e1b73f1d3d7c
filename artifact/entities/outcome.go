package entities

import "encoding/json"

// ValidationOutcome is the immutable result of one validation call.
type ValidationOutcome struct {
	descriptor *Descriptor
	message    string
	sha256     string
	size       int64
	valid      bool
}

// NewValidOutcome builds an accepted outcome.
func NewValidOutcome(d *Descriptor, size int64, sha256 string) ValidationOutcome {
	return ValidationOutcome{
		descriptor: d,
		message:    "Valid",
		sha256:     sha256,
		size:       size,
		valid:      true,
	}
}

// NewInvalidOutcome builds a rejected outcome. sha256 may be empty when
// the bytes were never available.
func NewInvalidOutcome(message string, size int64, sha256 string) ValidationOutcome {
	return ValidationOutcome{
		message: message,
		sha256:  sha256,
		size:    size,
	}
}

// Valid reports whether the artifact was accepted.
func (o ValidationOutcome) Valid() bool { return o.valid }

// Message returns the human-readable reason.
func (o ValidationOutcome) Message() string { return o.message }

// Size returns the payload size in bytes.
func (o ValidationOutcome) Size() int64 { return o.size }

// SHA256 returns the lowercase hex content hash, or "" when not computed.
func (o ValidationOutcome) SHA256() string { return o.sha256 }

// Name returns the descriptor name, if any.
func (o ValidationOutcome) Name() string {
	if o.descriptor == nil {
		return ""
	}
	return o.descriptor.Name
}

// Version returns the descriptor version, if any.
func (o ValidationOutcome) Version() string {
	if o.descriptor == nil {
		return ""
	}
	return o.descriptor.Version
}

// Environment returns the descriptor environment tag, if any.
func (o ValidationOutcome) Environment() string {
	if o.descriptor == nil {
		return ""
	}
	return o.descriptor.Environment
}

// MarshalJSON flattens the outcome for display.
func (o ValidationOutcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Valid       bool   `json:"valid"`
		Name        string `json:"name,omitempty"`
		Version     string `json:"version,omitempty"`
		Environment string `json:"environment,omitempty"`
		Size        int64  `json:"size"`
		SHA256      string `json:"sha256,omitempty"`
		Message     string `json:"message"`
	}{
		Valid:       o.valid,
		Name:        o.Name(),
		Version:     o.Version(),
		Environment: o.Environment(),
		Size:        o.size,
		SHA256:      o.sha256,
		Message:     o.message,
	})
}

// InstallResult is returned by the plugin acquisition pipeline.
type InstallResult struct {
	// Stamp receives the outcome of the asynchronous descriptor stamping, when
	// one was scheduled. It is nil otherwise and never needs to be drained.
	Stamp <-chan error `json:"-"`

	Message     string `json:"message"`
	Path        string `json:"path"`
	SHA256      string `json:"sha256"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Environment string `json:"environment,omitempty"`
	Size        int64  `json:"size"`
}
