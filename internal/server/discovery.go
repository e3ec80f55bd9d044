package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
)

// LAN discovery: clients broadcast the magic request on the discovery port
// and the server answers with where to connect. Pure glue, best effort.
const (
	discoveryRequest     = "HIDESEEK_DISCOVER"
	discoveryReplyPrefix = "HIDESEEK_SERVER"
)

func (s *Server) serveDiscovery(ctx context.Context) {
	pc, err := net.ListenUDP("udp4", &net.UDPAddr{Port: s.cfg.DiscoveryPort})
	if err != nil {
		s.log.Warnw("discovery responder unavailable", "port", s.cfg.DiscoveryPort, "err", err)
		return
	}
	s.log.Infow("discovery responder up", "port", s.cfg.DiscoveryPort)
	go func() {
		<-ctx.Done()
		_ = pc.Close()
	}()

	gamePort := s.ln.Addr().(*net.TCPAddr).Port
	hostname, _ := os.Hostname()

	buf := make([]byte, 256)
	for {
		n, raddr, err := pc.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if strings.TrimSpace(string(buf[:n])) != discoveryRequest {
			continue
		}
		reply := fmt.Sprintf("%s::%s::%d::%s",
			discoveryReplyPrefix, localAddrFor(raddr.IP), gamePort, hostname)
		if _, err := pc.WriteToUDP([]byte(reply), raddr); err != nil {
			s.log.Debugw("discovery reply failed", "to", raddr, "err", err)
		}
	}
}

// localAddrFor picks the local IP a reply to the given peer would leave from,
// which is the address the client should connect back to.
func localAddrFor(peer net.IP) string {
	c, err := net.Dial("udp4", net.JoinHostPort(peer.String(), "9"))
	if err != nil {
		return "127.0.0.1"
	}
	defer c.Close()
	return c.LocalAddr().(*net.UDPAddr).IP.String()
}
