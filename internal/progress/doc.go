// Package progress defines the durable records the sync layer moves
// around: one resumable snapshot per game and date, and the pending
// terminal events waiting to be delivered to the Remote Result Service.
//
// Records are JSON and forward compatible. Decoding ignores unknown fields
// and range-checks every numeric field, so stale or tampered storage is
// rejected with a STORAGE_CORRUPT error rather than trusted.
package progress
