// Package remote talks to the Remote Result Service and the daily puzzle
// source over HTTP.
//
// Client implements the Sync Coordinator's Remote interface, the Strands
// word classifier and the sign-in check. PuzzleSource fetches puzzle
// definitions, tries each configured endpoint in turn, and validates every
// payload against an embedded CUE schema before handing it to a game.
//
// Any non-2xx status or transport failure is reported as
// game.ErrCodeUpstreamUnavailable; a payload that fails validation is
// game.ErrCodeUpstreamMalformed.
package remote
