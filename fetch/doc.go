// Package fetch loads remote content into the engine.
//
// A Fetcher downloads payloads over HTTP with bounded concurrency and
// a global rate limit, then hands each payload to a caller-supplied
// Build function that turns it into an engine command. The resulting
// command is submitted through the Submitter (in practice the
// gateway) so fetched content enters the engine exactly like any
// other host traffic: queued, ticketed, applied on the loop.
//
// Fetching is fire-and-forget per request; Wait drains the whole
// batch. Failures surface per request on the optional Notify channel
// and as the first error from Wait.
package fetch
