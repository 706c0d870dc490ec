package netmon

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// DialSource is the host-environment adapter for processes that have no
// online/offline events to listen to: it watches reachability of a well-known
// endpoint and feeds only transitions into the Monitor.
type DialSource struct {
	Addr     string
	Interval time.Duration
	Timeout  time.Duration
}

func NewDialSource(addr string) *DialSource {
	return &DialSource{
		Addr:     addr,
		Interval: 5 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// Probe reports the current reachability once.
func (s *DialSource) Probe(ctx context.Context) bool {
	d := net.Dialer{Timeout: s.Timeout}
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Watch drives the monitor until ctx is cancelled.
func (s *DialSource) Watch(ctx context.Context, monitor *Monitor) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			online := s.Probe(ctx)
			if online != monitor.Online() {
				slog.Info("connectivity changed", "online", online)
			}
			monitor.SetOnline(online)
		}
	}
}
