// Package app implements the scrub pipeline: the durable state store, the
// trust and dedup gates, the FIFO work queue with its single sequential
// worker, the rate-limit backoff controller, the score classifier, and the
// digest scheduler.
//
// The pipeline owns its state exclusively. Every mutation is a complete
// read-modify-write of the in-memory aggregate followed by a synchronous
// persist; a failed persist is logged and never crashes the lane.
package app
