package metrics

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves Prometheus metrics over HTTP, separate from the API listener
type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	addr       string
	path       string
	logger     *slog.Logger
	allowedIPs []*net.IPNet
}

// NewServer creates a metrics HTTP server. allowedIPs holds IPs or CIDRs; an
// empty list allows every client.
func NewServer(m *Metrics, addr, path string, allowedIPs []string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = ":9090"
	}
	if path == "" {
		path = "/metrics"
	}

	s := &Server{
		metrics: m,
		addr:    addr,
		path:    path,
		logger:  logger.With("component", "metrics"),
	}

	for _, ipStr := range allowedIPs {
		ipStr = strings.TrimSpace(ipStr)
		if ipStr == "" {
			continue
		}

		if strings.Contains(ipStr, "/") {
			_, ipNet, err := net.ParseCIDR(ipStr)
			if err != nil {
				s.logger.Warn("invalid CIDR in allowed_ips", "cidr", ipStr, "error", err)
				continue
			}
			s.allowedIPs = append(s.allowedIPs, ipNet)
			continue
		}

		ip := net.ParseIP(ipStr)
		if ip == nil {
			s.logger.Warn("invalid IP in allowed_ips", "ip", ipStr)
			continue
		}
		var mask net.IPMask
		if ip.To4() != nil {
			mask = net.CIDRMask(32, 32)
		} else {
			mask = net.CIDRMask(128, 128)
		}
		s.allowedIPs = append(s.allowedIPs, &net.IPNet{IP: ip, Mask: mask})
	}

	if len(s.allowedIPs) > 0 {
		s.logger.Info("metrics IP filtering enabled", "allowed_networks", len(s.allowedIPs))
	}

	return s
}

// ListenAndServe starts the metrics HTTP server
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()

	handler := promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
	mux.Handle(s.path, s.ipFilterMiddleware(handler))

	// Health endpoint is never IP filtered; load balancers probe it
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	s.logger.Info("starting metrics server", "addr", s.addr, "path", s.path)
	return s.httpServer.ListenAndServe()
}

func (s *Server) ipFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedIPs) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := s.clientIP(r)
		if clientIP == nil || !s.ipAllowed(clientIP) {
			s.logger.Warn("metrics access denied", "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) clientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(parts[0])); ip != nil {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return net.ParseIP(r.RemoteAddr)
	}
	return net.ParseIP(host)
}

func (s *Server) ipAllowed(ip net.IP) bool {
	for _, ipNet := range s.allowedIPs {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}
