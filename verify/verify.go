// Package verify runs a verification request through analysis and anchors
// the outcome in the ledger.
//
// Content analysis (language models, scraping, web search) lives behind the
// Analyzer interface. Whatever happens upstream, Verify always answers with a
// block hash: when the ledger refuses the record a hash of the current time
// is returned instead and the result is marked as not anchored.
package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luca-patrignani/newsledger/events"
	"github.com/luca-patrignani/newsledger/ledger"
	"github.com/luca-patrignani/newsledger/receipt"
	"github.com/luca-patrignani/newsledger/stats"
)

const (
	// InputText marks pasted article text.
	InputText = "text"
	// InputURL marks a link; the URL is passed to the analyzer as source.
	InputURL = "url"

	// DefaultProofTag is the opaque proof stored in every verification block.
	DefaultProofTag int64 = 123
	// DefaultMaxContent is the number of runes of input kept for analysis
	// and storage.
	DefaultMaxContent = 4000
)

var (
	// ErrEmptyInput is returned when the request carries no text.
	ErrEmptyInput = errors.New("verify: no input provided")
	// ErrUnknownType is returned for input types other than text and url.
	ErrUnknownType = errors.New("verify: unknown input type")
)

// Ledger is the subset of *ledger.Ledger the service needs. Anchor must
// leave the ledger unchanged when it fails.
type Ledger interface {
	Anchor(content, verdict string, confidence float64, proof int64) (ledger.Block, error)
	Lookup(target string, mode ledger.LookupMode) ledger.LookupResult
}

// Request is a verification request as received from a client.
type Request struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Result is the answer to a verification request.
type Result struct {
	Prediction     string `json:"prediction"`
	Confidence     string `json:"confidence"`
	Explanation    string `json:"explanation"`
	StoredAbstract string `json:"stored_abstract"`
	BlockHash      string `json:"block_hash"`
	BlockIndex     int    `json:"block_index,omitempty"`
	Anchored       bool   `json:"anchored"`
	CyberReportID  string `json:"cyber_report_id,omitempty"`
	NodeID         string `json:"node_id"`
	Signature      string `json:"signature,omitempty"`
}

// Service ties the analyzer, the ledger and the side channels together.
type Service struct {
	ledger     Ledger
	analyzer   Analyzer
	stats      *stats.Stats
	signer     *receipt.Signer
	publisher  events.Publisher
	proofTag   int64
	maxContent int
	lookupMode ledger.LookupMode
	logger     *slog.Logger
	clock      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAnalyzer sets the analyzer. FallbackAnalyzer is used by default.
func WithAnalyzer(a Analyzer) Option { return func(s *Service) { s.analyzer = a } }

// WithStats sets the counters. By default they live on a private registry.
func WithStats(st *stats.Stats) Option { return func(s *Service) { s.stats = st } }

// WithSigner sets the node identity. A fresh one is generated by default.
func WithSigner(sg *receipt.Signer) Option { return func(s *Service) { s.signer = sg } }

// WithPublisher sets where block events go. Events are dropped by default.
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithClock replaces time.Now for fallback hashes.
func WithClock(c func() time.Time) Option { return func(s *Service) { s.clock = c } }

// WithProofTag sets the proof value stored in verification blocks.
func WithProofTag(tag int64) Option { return func(s *Service) { s.proofTag = tag } }

// WithMaxContent bounds the number of input runes kept.
func WithMaxContent(n int) Option { return func(s *Service) { s.maxContent = n } }

// WithLegacyLookup makes Lookup also match stored previous hashes.
func WithLegacyLookup(enabled bool) Option {
	return func(s *Service) {
		if enabled {
			s.lookupMode = ledger.LookupLegacy
		} else {
			s.lookupMode = ledger.LookupStrict
		}
	}
}

// NewService builds a service around l.
func NewService(l Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:     l,
		analyzer:   FallbackAnalyzer{},
		publisher:  events.Nop{},
		proofTag:   DefaultProofTag,
		maxContent: DefaultMaxContent,
		lookupMode: ledger.LookupStrict,
		logger:     slog.Default(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = stats.New(prometheus.NewRegistry())
	}
	if s.signer == nil {
		s.signer = receipt.NewSigner()
	}
	return s
}

// Stats returns the counters updated by Verify.
func (s *Service) Stats() *stats.Stats {
	return s.stats
}

// Signer returns the node identity used for receipts.
func (s *Service) Signer() *receipt.Signer {
	return s.signer
}

// Verify analyzes the request and anchors the verdict in the ledger. Every
// call counts as a scan, rejected input included.
func (s *Service) Verify(ctx context.Context, req Request) (Result, error) {
	s.stats.RecordScan()
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, ErrEmptyInput
	}
	inputType := req.Type
	if inputType == "" {
		inputType = InputText
	}
	if inputType != InputText && inputType != InputURL {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}

	content := truncate(text, s.maxContent)
	source := InputText
	if inputType == InputURL {
		source = text
	}

	analysis, err := s.analyzer.Analyze(ctx, content, source)
	if err != nil {
		s.logger.Warn("analysis failed, using fallback verdict", "error", err)
		analysis, _ = FallbackAnalyzer{}.Analyze(ctx, content, source)
	}
	analysis = analysis.withDefaults()

	res := Result{
		Prediction:     analysis.Verdict,
		Confidence:     ledger.FormatConfidence(analysis.Confidence),
		Explanation:    analysis.Explanation,
		StoredAbstract: analysis.Abstract,
		NodeID:         s.signer.NodeID(),
	}
	if analysis.Verdict == ledger.VerdictFake || analysis.Verdict == ledger.VerdictMalicious {
		s.stats.RecordThreat(analysis.Verdict)
		if analysis.Verdict == ledger.VerdictMalicious {
			res.CyberReportID = fmt.Sprintf("CYBER-INCIDENT-%d", 10000+rand.Intn(90000))
		}
	}

	block, err := s.ledger.Anchor(content, analysis.Verdict, analysis.Confidence, s.proofTag)
	if err != nil {
		s.logger.Error("could not anchor verification, returning fallback hash", "error", err)
		s.stats.RecordFallback()
		res.BlockHash = fallbackHash(s.clock())
	} else {
		s.stats.RecordBlock()
		res.BlockHash = ledger.Digest(block)
		res.BlockIndex = block.Index
		res.Anchored = true
	}

	sig, err := s.signer.Sign(res.BlockHash)
	if err != nil {
		s.logger.Warn("could not sign block hash", "error", err)
	}
	res.Signature = sig

	if res.Anchored {
		event := events.BlockEvent{
			NodeID:     res.NodeID,
			BlockIndex: block.Index,
			BlockHash:  res.BlockHash,
			Timestamp:  block.Timestamp,
			Verdict:    analysis.Verdict,
			Signature:  sig,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("could not publish block event", "block", block.Index, "error", err)
		}
	}
	return res, nil
}

// Lookup resolves a block hash previously returned by Verify.
func (s *Service) Lookup(hash string) ledger.LookupResult {
	return s.ledger.Lookup(strings.TrimSpace(hash), s.lookupMode)
}

// fallbackHash hashes the current time so that a request the ledger could not
// record still gets a reference value.
func fallbackHash(now time.Time) string {
	secs := float64(now.UnixNano()) / 1e9
	sum := sha256.Sum256([]byte(strconv.FormatFloat(secs, 'f', -1, 64)))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}
