package storage

// Package storage persists the poller's comparison baseline.
//
// It currently supports:
//   - The last observed monitor snapshot (saved verbatim, loaded tolerant)
//   - A transition history feeding the digest and the local HTTP API
