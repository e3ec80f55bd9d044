package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hideseek/internal/protocol"
)

func TestRoleInvariant(t *testing.T) {
	assert.Equal(t, RoleSeeker, RoleOf(0))
	for i := 1; i < 16; i++ {
		assert.Equal(t, RoleHidder, RoleOf(i), "index %d", i)
	}
}

func TestUpdatePlayerClaimsSlot(t *testing.T) {
	s := New(2)
	snap := s.Snapshot()
	assert.False(t, snap.Positions[1].Occupied)

	s.UpdatePlayer(1, protocol.Update{X: 5, Y: -7, Facing: protocol.FacingLeft, Name: "ada"})
	snap = s.Snapshot()
	require.True(t, snap.Positions[1].Occupied)
	assert.Equal(t, 5, snap.Positions[1].X)
	assert.Equal(t, -7, snap.Positions[1].Y)
	assert.Equal(t, "ada", snap.Positions[1].Name)

	// A later update without a name keeps the known one.
	s.UpdatePlayer(1, protocol.Update{X: 6, Y: -7, Facing: protocol.FacingLeft})
	assert.Equal(t, "ada", s.Snapshot().Positions[1].Name)
}

func TestUpdatePlayerOutOfRangeIsNoop(t *testing.T) {
	s := New(2)
	s.UpdatePlayer(-1, protocol.Update{X: 1})
	s.UpdatePlayer(2, protocol.Update{X: 1})
	snap := s.Snapshot()
	for i := range snap.Positions {
		assert.False(t, snap.Positions[i].Occupied)
	}
}

func TestTryCatchFreezesOnceAndTagsTarget(t *testing.T) {
	s := New(3)

	require.True(t, s.TryCatch(0, 1))
	assert.True(t, s.Frozen(1))
	assert.Equal(t, protocol.CaughtMarker(1), s.Snapshot().Positions[1].Equip)

	// Second catch of the same target is a benign no-op.
	assert.False(t, s.TryCatch(0, 1))
	_, won := s.Winner()
	assert.False(t, won, "one live hidder remains")

	require.True(t, s.TryCatch(0, 2))
	w, won := s.Winner()
	require.True(t, won)
	assert.Equal(t, 0, w, "all hidders frozen: seeker wins")
}

func TestTryCatchAuthorization(t *testing.T) {
	s := New(3)
	cases := []struct {
		name           string
		source, target int
	}{
		{"hidder cannot catch", 1, 2},
		{"hidder cannot catch seeker", 2, 0},
		{"seeker cannot catch self", 0, 0},
		{"target out of range", 0, 3},
		{"negative target", 0, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, s.TryCatch(tc.source, tc.target))
		})
	}
	assert.False(t, s.Frozen(0))
	assert.False(t, s.Frozen(1))
	assert.False(t, s.Frozen(2))
	_, won := s.Winner()
	assert.False(t, won)
}

func TestWinnerMonotonic(t *testing.T) {
	s := New(3)
	require.True(t, s.SetWinner(2))
	assert.False(t, s.SetWinner(0))

	// A late catch still freezes but cannot change the outcome.
	s.TryCatch(0, 1)
	s.TryCatch(0, 2)
	w, _ := s.Winner()
	assert.Equal(t, 2, w)
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := New(2)
	s.UpdatePlayer(0, protocol.Update{X: 1, Y: 1, Facing: protocol.FacingDown})
	snap := s.Snapshot()
	snap.Positions[0].X = 999
	assert.Equal(t, 1, s.Snapshot().Positions[0].X)
}

func TestResetForNewRound(t *testing.T) {
	s := New(3)
	s.UpdatePlayer(1, protocol.Update{X: 4, Y: 4, Facing: protocol.FacingUp, Name: "h1"})
	s.TryCatch(0, 1)
	s.TryCatch(0, 2)
	_, won := s.Winner()
	require.True(t, won)

	start := time.Now().Add(30 * time.Second).UnixMilli()
	s.ResetForNewRound(start)

	_, won = s.Winner()
	assert.False(t, won)
	assert.False(t, s.Frozen(1))
	assert.False(t, s.Frozen(2))
	got, ok := s.RoundStart()
	require.True(t, ok)
	assert.Equal(t, start, got)

	snap := s.Snapshot()
	assert.Equal(t, protocol.EquipNone, snap.Positions[1].Equip, "stale caught marker cleared")
	assert.True(t, snap.Positions[1].Occupied, "party survives the reset")
	assert.Equal(t, "h1", snap.Positions[1].Name)
}

func TestPhaseDerivation(t *testing.T) {
	now := time.Now()
	later := now.Add(30 * time.Second).UnixMilli()
	earlier := now.Add(-time.Second).UnixMilli()
	zero := 0

	cases := []struct {
		name string
		snap Snapshot
		want Phase
	}{
		{"no round start", Snapshot{}, PhaseWaiting},
		{"before round start", Snapshot{RoundStart: &later}, PhaseHide},
		{"after round start", Snapshot{RoundStart: &earlier}, PhaseHunt},
		{"winner set", Snapshot{RoundStart: &earlier, Winner: &zero}, PhaseOver},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.snap.Phase(now))
		})
	}
}
