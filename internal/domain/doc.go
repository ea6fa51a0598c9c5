// Package domain contains the core types of the scrub pipeline: canonical
// handle keys, resolved profiles, the persisted pipeline state aggregate,
// and the error taxonomy shared by the worker and the adapters.
//
// The domain layer has no dependencies on infrastructure. Adapters and the
// application layer depend on it, never the other way around.
package domain
