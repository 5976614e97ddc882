// Package service would manage nexus as an OS-level background
// service (systemd unit, launchd agent, Windows service). This build
// does not integrate with any platform's service manager; the watch
// command is expected to run under whatever supervisor the operator
// already uses (systemd, a process manager, a terminal multiplexer).
package service

import "errors"

// ErrNotSupported is returned by every operation in this package.
var ErrNotSupported = errors.New("service management is not supported in this build")

// Install would register nexus watch as a background service.
func Install() error { return ErrNotSupported }

// Uninstall would remove a previously installed service registration.
func Uninstall() error { return ErrNotSupported }

// Status would report whether a background service is installed and
// running.
func Status() (string, error) { return "", ErrNotSupported }
