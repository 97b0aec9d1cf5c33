// Package logging provides structured logging for the conflux engine.
//
// It wraps Go's log/slog to emit JSON lines with persistent context
// attributes. Every component receives a *Logger through its options and
// derives a child logger carrying the identifiers it works with.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (tenant, conflict, workflow, component)
//   - Size-based log rotation with optional gzip compression
//
// # Thread Safety
//
// [Logger] is safe for concurrent use. [RotatingWriter] serializes writes
// and rotation with a mutex. Child loggers share the parent's writer.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(logging.Options{Dir: "/var/log/conflux", Level: "INFO"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	tl := logger.WithTenant("acme").WithComponent("resolve")
//	tl.WithConflict(c.ID).Info("conflict resolved", "strategy", "server_wins")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"conflict resolved","tenant_id":"acme","component":"resolve","conflict_id":"...","strategy":"server_wins"}
//
// # Testing
//
// Use [NopLogger] where output does not matter, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted records.
package logging
