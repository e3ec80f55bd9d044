package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrBadMessage   = errors.New("malformed message")
)

// EncodeUpdate serializes a client report as a single JSON line (without the
// trailing newline; framing belongs to the transport).
func EncodeUpdate(u Update) ([]byte, error) {
	u.Name = SanitizeName(u.Name)
	return json.Marshal(u)
}

// EncodeUpdateLegacy produces the delimited-text form of a client report:
// x,y,state,frame,equip,equip_frame,name
func EncodeUpdateLegacy(u Update) string {
	return strings.Join([]string{
		strconv.Itoa(u.X),
		strconv.Itoa(u.Y),
		u.Facing,
		strconv.Itoa(u.Frame),
		u.Equip,
		strconv.Itoa(u.EquipFrame),
		SanitizeName(u.Name),
	}, fieldSep)
}

// DecodeUpdate parses a client report, preferring JSON and falling back to
// the delimited legacy form. Missing optional fields take their documented
// defaults; a message is only rejected when no x/y pair can be recovered.
func DecodeUpdate(data []byte) (Update, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Update{}, ErrEmptyMessage
	}
	if trimmed[0] == '{' {
		u := Update{Facing: FacingDown, Equip: EquipNone}
		if err := json.Unmarshal(trimmed, &u); err != nil {
			return Update{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		return normalizeUpdate(u), nil
	}
	return decodeUpdateLegacy(string(trimmed))
}

func decodeUpdateLegacy(line string) (Update, error) {
	parts := strings.Split(line, fieldSep)
	if len(parts) < 2 {
		return Update{}, fmt.Errorf("%w: want at least x,y", ErrBadMessage)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return Update{}, fmt.Errorf("%w: non-numeric coordinates", ErrBadMessage)
	}
	u := Update{X: x, Y: y, Facing: FacingDown, Equip: EquipNone}
	if len(parts) >= 3 {
		u.Facing = parts[2]
	}
	if len(parts) >= 4 {
		u.Frame = atoiDefault(parts[3], 0)
	}
	if len(parts) >= 5 && parts[4] != "" {
		u.Equip = parts[4]
	}
	if len(parts) >= 6 {
		u.EquipFrame = atoiDefault(parts[5], 0)
	}
	if len(parts) >= 7 {
		u.Name = parts[6]
	}
	return normalizeUpdate(u), nil
}

func normalizeUpdate(u Update) Update {
	u.Facing = NormalizeFacing(u.Facing)
	u.Name = SanitizeName(u.Name)
	if strings.TrimSpace(u.Equip) == "" {
		u.Equip = EquipNone
	}
	return u
}

// EncodeEnvelope serializes a server envelope as a JSON line. Names are
// sanitized on a copy so the caller's snapshot is left untouched.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	positions := make([]Player, len(env.Positions))
	copy(positions, env.Positions)
	for i := range positions {
		positions[i].Name = SanitizeName(positions[i].Name)
	}
	env.Positions = positions
	return json.Marshal(env)
}

// EncodeEnvelopeLegacy produces the delimited-text form of a server envelope.
// Each player is x,y,state,frame,equip,equip_frame,name,occupied; players are
// joined with "|" and metadata is appended with "::". Handshake envelopes
// carry player_index::role::round_start::winner, broadcasts role::round_start::winner.
func EncodeEnvelopeLegacy(env Envelope) string {
	entries := make([]string, 0, len(env.Positions))
	for _, p := range env.Positions {
		occ := "0"
		if p.Occupied {
			occ = "1"
		}
		entries = append(entries, strings.Join([]string{
			strconv.Itoa(p.X),
			strconv.Itoa(p.Y),
			p.Facing,
			strconv.Itoa(p.Frame),
			p.Equip,
			strconv.Itoa(p.EquipFrame),
			SanitizeName(p.Name),
			occ,
		}, fieldSep))
	}

	meta := make([]string, 0, 4)
	if env.PlayerIndex != nil {
		meta = append(meta, strconv.Itoa(*env.PlayerIndex))
	}
	role := env.Role
	if role == "" {
		role = nilSentinel
	}
	meta = append(meta, role, optInt64(env.RoundStart), optInt(env.Winner))

	return strings.Join(entries, playerSep) + metaSep + strings.Join(meta, metaSep)
}

// DecodeEnvelope parses a server envelope from either wire form.
func DecodeEnvelope(data []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	if trimmed[0] == '{' {
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		return env, nil
	}
	return decodeEnvelopeLegacy(string(trimmed))
}

func decodeEnvelopeLegacy(line string) (Envelope, error) {
	parts := strings.Split(line, metaSep)

	var env Envelope
	switch len(parts) {
	case 5: // handshake: positions::player_index::role::round_start::winner
		if idx, err := strconv.Atoi(parts[1]); err == nil {
			env.PlayerIndex = &idx
		}
		env.Role = optString(parts[2])
		env.RoundStart = parseOptInt64(parts[3])
		env.Winner = parseOptInt(parts[4])
	case 4: // broadcast: positions::role::round_start::winner
		env.Role = optString(parts[1])
		env.RoundStart = parseOptInt64(parts[2])
		env.Winner = parseOptInt(parts[3])
	case 1: // bare positions, oldest clients
	default:
		return Envelope{}, fmt.Errorf("%w: %d metadata segments", ErrBadMessage, len(parts)-1)
	}

	for _, entry := range strings.Split(parts[0], playerSep) {
		if entry == "" {
			continue
		}
		p, err := decodePlayerLegacy(entry)
		if err != nil {
			return Envelope{}, err
		}
		env.Positions = append(env.Positions, p)
	}
	return env, nil
}

func decodePlayerLegacy(entry string) (Player, error) {
	parts := strings.Split(entry, fieldSep)
	if len(parts) < 2 {
		return Player{}, fmt.Errorf("%w: player entry %q", ErrBadMessage, entry)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return Player{}, fmt.Errorf("%w: player entry %q", ErrBadMessage, entry)
	}
	p := Player{X: x, Y: y, Facing: FacingDown, Equip: EquipNone, Occupied: true}
	if len(parts) >= 3 {
		p.Facing = NormalizeFacing(parts[2])
	}
	if len(parts) >= 4 {
		p.Frame = atoiDefault(parts[3], 0)
	}
	if len(parts) >= 5 && parts[4] != "" {
		p.Equip = parts[4]
	}
	if len(parts) >= 6 {
		p.EquipFrame = atoiDefault(parts[5], 0)
	}
	if len(parts) >= 7 {
		p.Name = parts[6]
	}
	if len(parts) >= 8 {
		p.Occupied = parts[7] != "0"
	}
	return p, nil
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func optInt(v *int) string {
	if v == nil {
		return nilSentinel
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return nilSentinel
	}
	return strconv.FormatInt(*v, 10)
}

func optString(s string) string {
	if s == nilSentinel {
		return ""
	}
	return s
}

func parseOptInt(s string) *int {
	if s == nilSentinel || s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseOptInt64(s string) *int64 {
	if s == nilSentinel || s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
