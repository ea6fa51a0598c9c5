// Package ports defines the interfaces that connect the scrub pipeline to
// infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with concrete transports:
// the HTTP resolver client, the webhook notifier, the JSON state file,
// and the feed poller.
//
//   - [Resolver]: resolves a raw handle to a reputation profile
//   - [Notifier]: delivers a rendered digest page to the report channel
//   - [StateRepository]: persists and loads the pipeline state aggregate
//   - [HandleSource]: discovers candidate handles from an external feed
//   - [HTTPClient]: HTTP request abstraction for dependency injection
package ports
