// Package mocks provides in-memory implementations of the driven ports
// for service tests.
package mocks

import "errors"

var errInjected = errors.New("injected failure")

// ErrInjected is the error returned by mocks configured to fail.
var ErrInjected = errInjected
