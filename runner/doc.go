// Package runner drives an external verifier over a corpus of inputs.
//
// The main components are:
//   - ProcessRunner: runs one shell command and captures exit code, wall time and output
//   - Driver: runs one batch of inputs against a result store, skipping inputs that
//     already have a recorded result and persisting every new record immediately
//   - ProgressIndicator: receives batch and input lifecycle events for logging and
//     the status endpoint
//
// Invocations are strictly sequential. The result store is the only shared state.
package runner
