package server

import "sync/atomic"

// Metrics counts what the server has been doing since startup. Everything is
// atomic so handlers and the broadcaster can bump counters without taking the
// session lock.
type Metrics struct {
	ConnsAccepted   atomic.Int64
	ConnsRefused    atomic.Int64
	UpdatesApplied  atomic.Int64
	DecodeErrors    atomic.Int64
	CatchesAccepted atomic.Int64
	CatchesRejected atomic.Int64
	Broadcasts      atomic.Int64
	WriteFailures   atomic.Int64
}

// Snapshot returns a plain map for the HTTP metrics endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"conns_accepted":   m.ConnsAccepted.Load(),
		"conns_refused":    m.ConnsRefused.Load(),
		"updates_applied":  m.UpdatesApplied.Load(),
		"decode_errors":    m.DecodeErrors.Load(),
		"catches_accepted": m.CatchesAccepted.Load(),
		"catches_rejected": m.CatchesRejected.Load(),
		"broadcasts":       m.Broadcasts.Load(),
		"write_failures":   m.WriteFailures.Load(),
	}
}
