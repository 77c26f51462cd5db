// Package store keeps the latest prediction verdict per machine in memory.
//
// The WebSocket hub and the REST status endpoints read from it; the
// coordinator writes a fresh entry on every fleet tick. Entries expire by
// TTL so a stopped simulation does not serve stale verdicts forever.
package store
