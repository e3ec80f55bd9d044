package server

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Broadcaster fans a serialized snapshot out to every live connection. A
// failed or slow socket is logged and skipped; it must never stall delivery
// to the rest of the party.
type Broadcaster struct {
	log     *zap.SugaredLogger
	metrics *Metrics

	mu    sync.Mutex
	conns map[int]net.Conn
}

func NewBroadcaster(log *zap.SugaredLogger, metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		log:     log,
		metrics: metrics,
		conns:   make(map[int]net.Conn),
	}
}

func (b *Broadcaster) Add(index int, conn net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[index] = conn
}

func (b *Broadcaster) Remove(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, index)
}

// Broadcast writes one newline-framed payload to every registered socket.
// The connection list is copied first so no socket write happens under the
// registry lock.
func (b *Broadcaster) Broadcast(payload []byte) {
	b.mu.Lock()
	targets := make(map[int]net.Conn, len(b.conns))
	for i, c := range b.conns {
		targets[i] = c
	}
	b.mu.Unlock()

	framed := append(append(make([]byte, 0, len(payload)+1), payload...), '\n')
	for i, c := range targets {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.Write(framed); err != nil {
			b.metrics.WriteFailures.Add(1)
			b.log.Warnw("broadcast write failed", "player", i, "err", err)
		}
	}
	b.metrics.Broadcasts.Add(1)
}
