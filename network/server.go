package network

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luca-patrignani/newsledger/ledger"
	"github.com/luca-patrignani/newsledger/verify"
)

// Chain is the read side of the ledger exposed for inspection.
type Chain interface {
	Blocks() []ledger.Block
	Verify() error
}

// Server serves the verification API over HTTP(S).
type Server struct {
	Addr            string
	service         *verify.Service
	chain           Chain
	tlsConfig       *tls.Config
	shutdownTimeout time.Duration
	gatherer        prometheus.Gatherer
	logger          *slog.Logger
	server          *http.Server
}

// NewServer builds the router for service and chain. Nothing listens until
// Start or ListenAndServe is called.
func NewServer(addr string, service *verify.Service, chain Chain, opts ...ServerOption) *Server {
	s := Server{
		Addr:            addr,
		service:         service,
		chain:           chain,
		shutdownTimeout: 5 * time.Second,
		gatherer:        prometheus.NewRegistry(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		s = opt(s)
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		TLSConfig:         s.tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)
	r.GET("/node", s.handleNode)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	r.POST("/verify", s.handleVerify)
	r.POST("/lookup", s.handleLookup)

	chainGroup := r.Group("/chain")
	{
		chainGroup.GET("", s.handleChain)
		chainGroup.GET("/verify", s.handleChainVerify)
	}
	return r
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// TLS reports whether the server was configured with a certificate.
func (s *Server) TLS() bool {
	return s.tlsConfig != nil
}

// Start serves on l in a background goroutine. Serve errors other than a
// normal shutdown are logged.
func (s *Server) Start(l net.Listener) {
	if s.tlsConfig != nil {
		l = tls.NewListener(l, s.tlsConfig)
	}
	go func() {
		err := s.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", "error", err)
		}
	}()
}

// ListenAndServe listens on Addr and serves in the background. It returns
// the bound listener address.
func (s *Server) ListenAndServe() (net.Addr, error) {
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, err
	}
	s.Start(l)
	return l.Addr(), nil
}

// Close gracefully shuts the server down, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
