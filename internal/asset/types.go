// Package asset models WordPress plugins and themes as point-in-time
// metadata, and computes which of them changed across a mutating operation.
package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments is returned for an unrecognized kind or operation.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrMissingPriorState is returned when an update message needs the
	// previous version of an asset that was not in the before snapshot.
	ErrMissingPriorState = errors.New("missing prior state")
)

// Kind distinguishes plugins from themes.
type Kind string

const (
	Plugin Kind = "plugin"
	Theme  Kind = "theme"
)

// ParseKind converts a command-line word into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Plugin, Theme:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown asset kind %q", ErrInvalidArguments, s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == Plugin || k == Theme
}

// Dir returns the wp-content subdirectory holding assets of this kind.
func (k Kind) Dir() string {
	return string(k) + "s"
}

// Operation is the mutating WP-CLI action being wrapped.
type Operation string

const (
	Install Operation = "install"
	Update  Operation = "update"
)

// ParseOperation converts a command-line word into an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case Install, Update:
		return Operation(s), nil
	}
	return "", fmt.Errorf("%w: unknown operation %q", ErrInvalidArguments, s)
}

// Valid reports whether op is one of the known operations.
func (op Operation) Valid() bool {
	return op == Install || op == Update
}

// Metadata is the descriptive state of one asset at a point in time.
type Metadata struct {
	ID      string // slug; join key between snapshots
	Name    string // display name
	Version string
	File    string // plugin main file relative to the plugins dir, empty for themes
}

// ChangeRecord pairs the after state of an asset with its before state.
type ChangeRecord struct {
	ID     string
	After  Metadata
	Before *Metadata // nil when the asset was absent before the operation

	// Touched is set when the filesystem recorder saw activity in the
	// asset's directory during the operation.
	Touched bool
}

// PreviousVersion returns the before version, or ErrMissingPriorState.
func (r ChangeRecord) PreviousVersion() (string, error) {
	if r.Before == nil {
		return "", fmt.Errorf("%w: %s has no previous version", ErrMissingPriorState, r.ID)
	}
	return r.Before.Version, nil
}
