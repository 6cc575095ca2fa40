package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoScreens is returned by Home when the application exposes no
	// entities to manage.
	ErrNoScreens = errors.New("tui: no screens available")
)
