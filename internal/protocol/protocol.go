package protocol

import (
	"strconv"
	"strings"
)

// Facing values accepted from clients. Anything else normalizes to "down".
const (
	FacingUp    = "up"
	FacingDown  = "down"
	FacingLeft  = "left"
	FacingRight = "right"
)

// Equip markers. Anything else is an opaque object identifier that the server
// relays untouched.
const (
	EquipNone    = "None"
	EquipWhistle = "WHISTLE"

	caughtPrefix = "CAUGHT:"
)

// Delimiters of the legacy text form. Free-text fields are sanitized so these
// can never appear inside a field.
const (
	fieldSep  = ","
	playerSep = "|"
	metaSep   = "::"

	// nilSentinel stands in for null round_start/winner/role in legacy lines.
	nilSentinel = "None"
)

// Player is one slot's state as it travels on the wire.
type Player struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Facing     string `json:"state"`
	Frame      int    `json:"frame"`
	Equip      string `json:"equip"`
	EquipFrame int    `json:"equip_frame"`
	Name       string `json:"name"`
	Occupied   bool   `json:"occupied"`
}

// Update is the per-tick client report. Occupancy is implied: receiving an
// update is what marks a slot occupied.
type Update struct {
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Facing     string `json:"state"`
	Frame      int    `json:"frame"`
	Equip      string `json:"equip"`
	EquipFrame int    `json:"equip_frame"`
	Name       string `json:"name"`
}

// Envelope is the server-to-client message. PlayerIndex is only present in
// the handshake; Role mirrors the original protocol and is informational in
// broadcasts.
type Envelope struct {
	Positions   []Player `json:"positions"`
	PlayerIndex *int     `json:"player_index,omitempty"`
	Role        string   `json:"role,omitempty"`
	RoundStart  *int64   `json:"round_start"`
	Winner      *int     `json:"winner"`
}

// SanitizeName strips protocol delimiter characters and framing newlines from
// a display name so encoded messages can never be corrupted by it.
func SanitizeName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ',', '|', ':', '\n', '\r':
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(clean)
}

// NormalizeFacing maps unknown facing strings to the documented default.
func NormalizeFacing(s string) string {
	switch s {
	case FacingUp, FacingDown, FacingLeft, FacingRight:
		return s
	}
	return FacingDown
}

// CaughtMarker builds the one-shot equip marker announcing that the player at
// target was caught.
func CaughtMarker(target int) string {
	return caughtPrefix + strconv.Itoa(target)
}

// ParseCaughtTarget extracts the target index from a CAUGHT:<index> equip
// marker. The second return is false for any other equip value.
func ParseCaughtTarget(equip string) (int, bool) {
	rest, ok := strings.CutPrefix(equip, caughtPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}
