// Package syncer is the Sync Coordinator. It routes progress snapshots and
// terminal results either to the Local Durable Store or to the Remote
// Result Service, depending on the authentication state, and flushes
// locally queued state to the remote service when a player signs in.
//
// Flushing drains a queue up front and re-queues everything from the first
// failed send onward, so each run delivers a prefix of the queue and keeps
// the rest in its original order for the next attempt.
package syncer
