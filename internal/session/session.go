package session

import (
	"sync"
	"time"

	"hideseek/internal/protocol"
)

// Role of a player slot. Derived from the index, never stored: slot 0 is the
// seeker, everyone else hides.
type Role string

const (
	RoleSeeker Role = "seeker"
	RoleHidder Role = "hidder"
)

// RoleOf is the single place the index-to-role convention lives.
func RoleOf(index int) Role {
	if index == 0 {
		return RoleSeeker
	}
	return RoleHidder
}

// Phase of the round, derived from round start and winner.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseHide    Phase = "hide"
	PhaseHunt    Phase = "hunt"
	PhaseOver    Phase = "over"
)

// Snapshot is a consistent copy of the session, safe to serialize without
// holding the lock.
type Snapshot struct {
	Positions  []protocol.Player
	RoundStart *int64 // epoch ms
	Winner     *int
}

// Phase reports which round phase the snapshot was taken in.
func (s Snapshot) Phase(now time.Time) Phase {
	switch {
	case s.Winner != nil:
		return PhaseOver
	case s.RoundStart == nil:
		return PhaseWaiting
	case now.UnixMilli() < *s.RoundStart:
		return PhaseHide
	default:
		return PhaseHunt
	}
}

// Session holds the authoritative state of one running match. Connection
// handlers and the round scheduler share it; every read and write goes
// through the one mutex, which is never held across socket I/O.
type Session struct {
	mu         sync.Mutex
	positions  []protocol.Player
	frozen     []bool
	roundStart *int64
	winner     *int
}

// New creates a session with numPlayers unclaimed slots.
func New(numPlayers int) *Session {
	s := &Session{
		positions: make([]protocol.Player, numPlayers),
		frozen:    make([]bool, numPlayers),
	}
	for i := range s.positions {
		s.positions[i] = protocol.Player{Facing: protocol.FacingDown, Equip: protocol.EquipNone}
	}
	return s
}

// NumPlayers is the fixed party size.
func (s *Session) NumPlayers() int {
	return len(s.positions)
}

// UpdatePlayer merges a client-reported update into the slot and claims it.
func (s *Session) UpdatePlayer(index int, u protocol.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.positions) {
		return
	}
	p := &s.positions[index]
	p.X = u.X
	p.Y = u.Y
	p.Facing = u.Facing
	p.Frame = u.Frame
	p.Equip = u.Equip
	p.EquipFrame = u.EquipFrame
	if u.Name != "" {
		p.Name = u.Name
	}
	p.Occupied = true
}

// TryCatch applies a catch attempt by source against target. It only succeeds
// for the seeker catching a live hidder; anything else is a silent no-op so
// racing duplicate attempts stay benign. On success the target is frozen, its
// equip is tagged with the caught marker for the next broadcasts, and the
// seeker is declared winner once no hidder remains unfrozen.
func (s *Session) TryCatch(source, target int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if RoleOf(source) != RoleSeeker {
		return false
	}
	if target <= 0 || target >= len(s.positions) {
		return false
	}
	if s.frozen[target] {
		return false
	}
	s.frozen[target] = true
	s.positions[target].Equip = protocol.CaughtMarker(target)

	if s.winner == nil && s.allHiddersFrozenLocked() {
		w := 0
		s.winner = &w
	}
	return true
}

func (s *Session) allHiddersFrozenLocked() bool {
	for i := 1; i < len(s.frozen); i++ {
		if !s.frozen[i] {
			return false
		}
	}
	return true
}

// Frozen reports whether the slot has been caught. Always false for the
// seeker and out-of-range indices.
func (s *Session) Frozen(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index <= 0 || index >= len(s.frozen) {
		return false
	}
	return s.frozen[index]
}

// SetRoundStart schedules the end of the hide phase. Called once, when the
// final player connects.
func (s *Session) SetRoundStart(epochMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundStart = &epochMs
}

// RoundStart returns the hide-phase deadline, if scheduled.
func (s *Session) RoundStart() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roundStart == nil {
		return 0, false
	}
	return *s.roundStart, true
}

// SetWinner declares a winner. The first declaration per round wins; later
// calls report false and change nothing.
func (s *Session) SetWinner(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner != nil {
		return false
	}
	if index < 0 || index >= len(s.positions) {
		return false
	}
	s.winner = &index
	return true
}

// Winner returns the declared winner, if any.
func (s *Session) Winner() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner == nil {
		return 0, false
	}
	return *s.winner, true
}

// Snapshot returns a deep copy of the serializable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Positions: make([]protocol.Player, len(s.positions))}
	copy(snap.Positions, s.positions)
	if s.roundStart != nil {
		v := *s.roundStart
		snap.RoundStart = &v
	}
	if s.winner != nil {
		v := *s.winner
		snap.Winner = &v
	}
	return snap
}

// ResetForNewRound clears the winner and all frozen flags and schedules the
// next hide phase. Positions and occupancy survive: the same party plays on.
func (s *Session) ResetForNewRound(startEpochMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winner = nil
	s.roundStart = &startEpochMs
	for i := range s.frozen {
		s.frozen[i] = false
	}
	for i := range s.positions {
		if _, ok := protocol.ParseCaughtTarget(s.positions[i].Equip); ok {
			s.positions[i].Equip = protocol.EquipNone
		}
	}
}
