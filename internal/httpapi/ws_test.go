package httpapi

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hideseek/internal/protocol"
	"hideseek/internal/session"
)

func dialWS(t *testing.T, ctx context.Context, httpURL string) (net.Conn, *bufio.Reader) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.CloseNow() })
	conn := websocket.NetConn(ctx, c, websocket.MessageText)
	return conn, bufio.NewReader(conn)
}

func TestWebSocketClientsShareTheSession(t *testing.T) {
	sess := session.New(2)
	ts := testRouter(t, sess)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn1, r1 := dialWS(t, ctx, ts.URL)
	line, err := r1.ReadBytes('\n')
	require.NoError(t, err)
	hs1, err := protocol.DecodeEnvelope(line)
	require.NoError(t, err)
	require.NotNil(t, hs1.PlayerIndex)
	assert.Equal(t, 0, *hs1.PlayerIndex)
	assert.Equal(t, string(session.RoleSeeker), hs1.Role)

	conn2, r2 := dialWS(t, ctx, ts.URL)
	line, err = r2.ReadBytes('\n')
	require.NoError(t, err)
	hs2, err := protocol.DecodeEnvelope(line)
	require.NoError(t, err)
	require.NotNil(t, hs2.PlayerIndex)
	assert.Equal(t, 1, *hs2.PlayerIndex)
	assert.Equal(t, string(session.RoleHidder), hs2.Role)
	assert.NotNil(t, hs2.RoundStart, "second connection completes the party")

	// An update from the hidder reaches the seeker over the same fan-out path
	// as TCP clients.
	payload, err := protocol.EncodeUpdate(protocol.Update{
		X: 12, Y: 34, Facing: protocol.FacingLeft, Equip: protocol.EquipNone, Name: "webby",
	})
	require.NoError(t, err)
	_, err = conn2.Write(append(payload, '\n'))
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "no broadcast reached the seeker")
		line, err = r1.ReadBytes('\n')
		require.NoError(t, err)
		env, err := protocol.DecodeEnvelope(line)
		require.NoError(t, err)
		if len(env.Positions) == 2 && env.Positions[1].Occupied {
			assert.Equal(t, 12, env.Positions[1].X)
			assert.Equal(t, "webby", env.Positions[1].Name)
			break
		}
	}
	_ = conn1.Close()
	_ = conn2.Close()
}
