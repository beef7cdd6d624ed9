package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrRootNotObject is returned for schemas whose root is not an object.
	ErrRootNotObject = errors.New("tui: root schema must be an object")
)
