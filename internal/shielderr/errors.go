// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package shielderr declares the error-kind taxonomy netshield uses to
// decide how a failure is surfaced: fatal to a process, logged and
// continued, or silently dropped. Every kind is a sentinel error checked
// with errors.Is; call sites wrap it with fmt.Errorf("%w: detail", Kind)
// to attach context.
package shielderr

import "errors"

var (
	// ConfigInvalid marks a configuration value outside its declared
	// bound. Reported before any component initializes.
	ConfigInvalid = errors.New("shielderr: configuration invalid")

	// PrivilegeDenied marks failure to install the kernel packet
	// interception handle. Fatal in the interceptor.
	PrivilegeDenied = errors.New("shielderr: privilege denied")

	// PeerUnavailable marks an IPC connect or read failure.
	PeerUnavailable = errors.New("shielderr: peer unavailable")

	// InvalidFrame marks an oversized or malformed IPC frame. Dropped
	// silently after a warning; never affects the channel.
	InvalidFrame = errors.New("shielderr: invalid ipc frame")

	// EnrichmentTransport marks an unreachable enrichment lookup
	// service. The profile's country is set to "Lookup Failed".
	EnrichmentTransport = errors.New("shielderr: enrichment transport error")

	// EnrichmentData marks a parse failure on an enrichment response.
	// The profile is left untouched.
	EnrichmentData = errors.New("shielderr: enrichment data error")

	// QueueFull marks a bounded queue (audit or enrichment) at
	// capacity. The new item is dropped; the producer is never
	// backpressured.
	QueueFull = errors.New("shielderr: queue full")

	// KernelRecvTransient marks a recoverable error receiving from the
	// kernel diversion handle. Ten consecutive occurrences terminate
	// the receive loop.
	KernelRecvTransient = errors.New("shielderr: transient kernel receive error")

	// Unexpected marks anything outside the taxonomy above. Never
	// swallowed by a worker; left to terminate its task.
	Unexpected = errors.New("shielderr: unexpected error")
)
