// Package ws streams live fleet verdicts to dashboard clients over
// WebSocket. The hub broadcasts the latest verdicts from the store on every
// simulation tick; slow clients are disconnected rather than allowed to
// stall the broadcast.
package ws
