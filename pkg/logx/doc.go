// Package logx configures msgpump's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - A safe no-op zero value so library code never nil-checks its logger
package logx
