// Package workshop publishes and updates versioned workshop items on an
// event-driven content platform.
//
// The platform never answers a state-changing request directly. Every call
// returns an opaque CallHandle and the outcome is delivered later, from inside
// Platform.RunCallbacks. The package bridges that model into plain blocking
// calls:
//
//   - Pump drains the platform event queue on a fixed interval, either on its
//     own goroutine for the lifetime of a Session or inline from each wait.
//   - Correlator maps each outstanding CallHandle to a one-shot result slot and
//     resolves it exactly once.
//   - Stager copies local files into the platform's temporary cloud storage and
//     purges whatever is left there.
//   - The legacy and bundle Publisher strategies sequence the publish/update
//     calls, merge tags, run the Guard and always clean up.
//
// Open acquires the process-wide platform connection and Session.Close releases
// it exactly once. Upload wraps the whole sequence for command line callers.
//
// A platform implementation is supplied by the caller. The emulator subpackage
// provides one backed by pluggable blob storage and item catalog backends.
package workshop
