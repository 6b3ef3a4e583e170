package task

import (
	"net/http"

	"github.com/kbukum/edgecam/errors"
)

var (
	// ErrAlreadyRunning is returned by Start while a run is in flight.
	ErrAlreadyRunning = errors.New(errors.ErrCodeAlreadyRunning, "task is already running", http.StatusConflict)
	// ErrNotRunning is returned by Stop when no run is in flight.
	ErrNotRunning = errors.New(errors.ErrCodeNotRunning, "task is not running", http.StatusConflict)
)
