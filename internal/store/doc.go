// Package store provides the key-value surface behind the Local Durable
// Store.
//
// Two implementations satisfy KV:
//   - Store: SQLite-backed, durable across process restarts
//   - Memory: map-backed, for tests and throwaway sessions
//
// Writes are whole-value replacements. Keys are plain strings; callers
// namespace them with slash-separated prefixes and enumerate a namespace
// with Keys.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
