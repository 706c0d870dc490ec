package metrics

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServer struct {
	srv *http.Server
}

func (s *HTTPServer) Shutdown() error {
	return s.srv.Shutdown(context.Background())
}

// NewHTTPServer serves /metrics and /health on a side listener, separate from
// the API port.
func NewHTTPServer(addr string, healthCheck func() error) (*HTTPServer, error) {
	srv := &http.Server{Addr: addr}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := healthCheck(); err != nil {
			log.Printf("Health check failed: %+v", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	srv.Handler = mux

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}
	log.Println("Starting metrics server at", srv.Addr)
	go srv.Serve(ln)

	return &HTTPServer{srv: srv}, nil
}
