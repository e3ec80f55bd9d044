// Package server owns the TCP listener, the per-connection handler loops and
// the snapshot fan-out. It is the only package that touches sockets; all game
// state lives in the session and all timing in the round scheduler.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"hideseek/internal/config"
	"hideseek/internal/protocol"
	"hideseek/internal/round"
	"hideseek/internal/session"
)

// Server accepts the party's connections, assigns slots, and runs one handler
// goroutine per client.
type Server struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	sess    *session.Session
	sched   *round.Scheduler
	bcast   *Broadcaster
	metrics *Metrics

	mu        sync.Mutex
	nextIndex int

	ln      net.Listener
	baseCtx context.Context
}

func New(cfg config.Config, sess *session.Session, log *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		sess:    sess,
		metrics: &Metrics{},
		baseCtx: context.Background(),
	}
	s.bcast = NewBroadcaster(log, s.metrics)

	opts := []round.Option{round.WithNotify(s.BroadcastState)}
	if cfg.Restart == config.RestartExit {
		opts = append(opts, round.WithRoundEnd(s.exitForRestart))
	}
	s.sched = round.New(round.Config{
		HideDelay:   cfg.HideDelay,
		CatchWindow: cfg.CatchWindow,
		PollEvery:   cfg.PollEvery,
		EndGrace:    cfg.EndGrace,
	}, sess, log, opts...)
	return s
}

// Metrics exposes the counters for the HTTP surface.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Addr is the bound listener address, available after Start.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Start binds the game listener and launches the accept loop and, when
// configured, the LAN discovery responder. Failing to bind is the one fatal
// startup condition.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind game listener on %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.baseCtx = ctx
	s.log.Infow("game listener up", "addr", ln.Addr().String(), "players", s.cfg.NumPlayers)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	go s.acceptLoop(ctx)
	if s.cfg.DiscoveryPort > 0 {
		go s.serveDiscovery(ctx)
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warnw("accept failed", "err", err)
			continue
		}
		go s.Adopt(conn)
	}
}

// claimSlot hands out sequential player indices. The second return is false
// once the party is full.
func (s *Server) claimSlot() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextIndex >= s.cfg.NumPlayers {
		return 0, false
	}
	idx := s.nextIndex
	s.nextIndex++
	return idx, true
}

// Adopt runs the connection handler for one client on the calling goroutine.
// The accept loop calls it per TCP conn; the HTTP layer calls it with a
// WebSocket wrapped as a net.Conn. It returns when the client goes away.
func (s *Server) Adopt(conn net.Conn) {
	idx, ok := s.claimSlot()
	if !ok {
		s.metrics.ConnsRefused.Add(1)
		s.log.Infow("party full, refusing connection", "remote", conn.RemoteAddr())
		_ = conn.Close()
		return
	}
	s.metrics.ConnsAccepted.Add(1)
	role := session.RoleOf(idx)
	s.log.Infow("player connected", "index", idx, "role", role, "remote", conn.RemoteAddr())

	// The last expected player completes the party: schedule the hide phase
	// before the handshake so this client already sees round_start.
	if idx == s.cfg.NumPlayers-1 {
		s.sched.Start(s.baseCtx)
	}

	if err := s.sendHandshake(conn, idx, role); err != nil {
		s.log.Warnw("handshake failed", "index", idx, "err", err)
		_ = conn.Close()
		return
	}

	s.bcast.Add(idx, conn)
	defer func() {
		s.bcast.Remove(idx)
		_ = conn.Close()
		// The slot keeps its last known state; there is no eviction.
		s.log.Infow("player disconnected", "index", idx)
	}()

	s.readLoop(conn, idx)
}

func (s *Server) sendHandshake(conn net.Conn, idx int, role session.Role) error {
	snap := s.sess.Snapshot()
	env := protocol.Envelope{
		Positions:   snap.Positions,
		PlayerIndex: &idx,
		Role:        string(role),
		RoundStart:  snap.RoundStart,
		Winner:      snap.Winner,
	}
	payload, err := protocol.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = conn.Write(append(payload, '\n'))
	return err
}

func (s *Server) readLoop(conn net.Conn, idx int) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		u, err := protocol.DecodeUpdate(line)
		if err != nil {
			// Transient garbage never costs the client its connection.
			s.metrics.DecodeErrors.Add(1)
			s.log.Debugw("dropping malformed update", "index", idx, "err", err)
			continue
		}

		if target, ok := protocol.ParseCaughtTarget(u.Equip); ok {
			if s.sess.TryCatch(idx, target) {
				s.metrics.CatchesAccepted.Add(1)
				s.log.Infow("catch accepted", "seeker", idx, "target", target)
			} else {
				// Losing a race or lying about the role both land here; strip
				// the marker so it cannot echo into the broadcasts.
				s.metrics.CatchesRejected.Add(1)
				u.Equip = protocol.EquipNone
			}
		}

		s.sess.UpdatePlayer(idx, u)
		s.metrics.UpdatesApplied.Add(1)
		s.BroadcastState()
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debugw("read loop ended", "index", idx, "err", err)
	}
}

// BroadcastState serializes the current snapshot once and fans it out.
func (s *Server) BroadcastState() {
	snap := s.sess.Snapshot()
	env := protocol.Envelope{
		Positions:  snap.Positions,
		RoundStart: snap.RoundStart,
		Winner:     snap.Winner,
	}
	payload, err := protocol.EncodeEnvelope(env)
	if err != nil {
		s.log.Errorw("snapshot encode failed", "err", err)
		return
	}
	s.bcast.Broadcast(payload)
}

// exitForRestart is the opt-in hardening path: let a supervisor bring up a
// guaranteed-clean process instead of reusing this one.
func (s *Server) exitForRestart() {
	s.log.Infow("round complete, exiting for supervised restart")
	_ = s.log.Sync()
	os.Exit(0)
}
