package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/pterm/pterm"
	"github.com/vrecan/death/v3"

	"github.com/luca-patrignani/newsledger/config"
	"github.com/luca-patrignani/newsledger/events"
	"github.com/luca-patrignani/newsledger/ledger"
	"github.com/luca-patrignani/newsledger/network"
	"github.com/luca-patrignani/newsledger/receipt"
	"github.com/luca-patrignani/newsledger/stats"
	"github.com/luca-patrignani/newsledger/store"
	"github.com/luca-patrignani/newsledger/verify"
)

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.PtermLevel()
	if err != nil {
		return nil, err
	}
	logger := pterm.DefaultLogger.WithLevel(level)
	return slog.New(pterm.NewSlogHandler(logger)), nil
}

func openLedger(cfg config.Config, logger *slog.Logger) (*ledger.Ledger, error) {
	if cfg.DataDir == "" {
		logger.Warn("no data directory configured, the chain is kept in memory")
		return ledger.New(ledger.WithLogger(logger)), nil
	}
	s, err := store.OpenBadger(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(s, ledger.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, err
	}
	return l, nil
}

func openPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if cfg.RedisAddr == "" {
		return events.Nop{}
	}
	p := events.DialRedis(cfg.RedisAddr, cfg.RedisChannel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		logger.Warn("redis not reachable, publishing will be attempted per block", "addr", cfg.RedisAddr, "error", err)
	}
	return p
}

func serve(cfg config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	printBanner()

	chain, err := openLedger(cfg, logger)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	publisher := openPublisher(cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	signer := receipt.NewSigner()
	service := verify.NewService(chain,
		verify.WithStats(stats.New(reg)),
		verify.WithSigner(signer),
		verify.WithPublisher(publisher),
		verify.WithLogger(logger),
		verify.WithProofTag(cfg.ProofTag),
		verify.WithMaxContent(cfg.MaxContent),
		verify.WithLegacyLookup(cfg.LegacyLookup),
	)

	opts := []network.ServerOption{
		network.WithMetrics(reg),
		network.WithLogger(logger),
		network.WithShutdownTimeout(cfg.ShutdownTimeout),
	}
	if cfg.TLS {
		cert, _, err := network.GenerateSelfSignedCert(cfg.Addr)
		if err != nil {
			return errors.Join(fmt.Errorf("generate certificate: %w", err), chain.Close(), publisher.Close())
		}
		opts = append(opts, network.WithCertificate(cert))
	}
	server := network.NewServer(cfg.Addr, service, chain, opts...)
	addr, err := server.ListenAndServe()
	if err != nil {
		return errors.Join(fmt.Errorf("listen on %s: %w", cfg.Addr, err), chain.Close(), publisher.Close())
	}
	printStartup(startupInfo{
		URLs:      reachableURLs(addr, server.TLS()),
		NodeID:    signer.NodeID(),
		PublicKey: signer.PublicKey(),
		Blocks:    chain.Len(),
		DataDir:   cfg.DataDir,
		RedisAddr: cfg.RedisAddr,
		Legacy:    cfg.LegacyLookup,
	})

	var shutdownErr error
	d := death.NewDeath(syscall.SIGINT, syscall.SIGTERM)
	d.WaitForDeathWithFunc(func() {
		logger.Info("shutting down")
		shutdownErr = errors.Join(server.Close(), publisher.Close(), chain.Close())
	})
	return shutdownErr
}
