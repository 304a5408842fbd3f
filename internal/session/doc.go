// Package session keeps the in-memory state of every bot this process
// created, from successful creation until it leaves or the process exits.
//
// A Registry is safe for concurrent use. Reads return copies, and a
// session's transcript cursor only moves forward.
package session
