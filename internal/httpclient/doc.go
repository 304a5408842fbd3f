// Package httpclient is the shared transport used by every upstream adapter.
//
// Each request carries its own timeout, JSON bodies are encoded and decoded
// here, and every non-2xx response is returned as a *StatusError holding the
// raw payload so callers can normalize it. Requests are traced with otelhttp,
// counted in the upstream metrics and optionally paced by a token bucket.
package httpclient
