// Package utils provides common utility functions used across the smoketest engine.
// This file specifically implements the HTTP client shared by every HTTP check of a run.
package utils

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds a single request when no timeout is configured.
const DefaultHTTPTimeout = 30 * time.Second

// MaxRedirects is the number of redirects a check follows before giving up.
const MaxRedirects = 10

// NewHTTPClient returns a client with the engine's standard settings. A zero
// timeout selects DefaultHTTPTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		},
	}
}
