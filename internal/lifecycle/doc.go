// Package lifecycle releases every registered bot when the process stops.
//
// ReleaseAll first closes the service to new bots, then asks the upstream to
// remove every registered bot in parallel and waits for all attempts to
// settle within a fixed ceiling.
package lifecycle
