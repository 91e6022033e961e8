package network

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerOption configures a Server.
type ServerOption func(Server) Server

// WithCertificate serves HTTPS with cert.
func WithCertificate(cert tls.Certificate) ServerOption {
	return func(s Server) Server {
		if s.tlsConfig == nil {
			s.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		s.tlsConfig.Certificates = append(s.tlsConfig.Certificates, cert)
		return s
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight requests.
func WithShutdownTimeout(timeout time.Duration) ServerOption {
	return func(s Server) Server {
		s.shutdownTimeout = timeout
		return s
	}
}

// WithMetrics exposes the metrics gathered by g on /metrics.
func WithMetrics(g prometheus.Gatherer) ServerOption {
	return func(s Server) Server {
		s.gatherer = g
		return s
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s Server) Server {
		s.logger = logger
		return s
	}
}
