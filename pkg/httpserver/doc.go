// Package httpserver provides a lightweight wrapper around net/http that adds
// graceful shutdown, configurable server timeouts, health-check handlers, and
// structured logging via slog.
//
// The core type is Server. Run blocks until the context is cancelled or an
// interrupt/TERM signal is received, then shuts the server down with a
// configurable deadline. Construction goes through New or NewFromConfig with
// Option helpers such as WithAddr and WithLogger; WithStartHook and
// WithStopHook run side effects around the server life-cycle.
//
// HealthCheckHandler doubles as a liveness probe (no dependency functions)
// and a readiness probe (each supplied function must succeed).
package httpserver
