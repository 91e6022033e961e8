package verify

import (
	"context"

	"github.com/luca-patrignani/newsledger/ledger"
)

// Analysis is an analyzer's opinion about a piece of content.
type Analysis struct {
	Verdict     string  `json:"verdict"`
	Confidence  float64 `json:"confidence"` // percentage, 0-100
	Explanation string  `json:"explanation"`
	Abstract    string  `json:"abstract"`
}

// Analyzer judges content. source is the URL the content came from, or
// "text" for pasted input.
type Analyzer interface {
	Analyze(ctx context.Context, content, source string) (Analysis, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, content, source string) (Analysis, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, content, source string) (Analysis, error) {
	return f(ctx, content, source)
}

// FallbackAnalyzer answers Unsure with 50% confidence. It is used when no
// analyzer is configured and whenever the configured one fails.
type FallbackAnalyzer struct{}

func (FallbackAnalyzer) Analyze(context.Context, string, string) (Analysis, error) {
	return Analysis{
		Verdict:     ledger.VerdictUnsure,
		Confidence:  50,
		Explanation: "AI Analysis failed.",
		Abstract:    "Log: Unverified.",
	}, nil
}

func (a Analysis) withDefaults() Analysis {
	if a.Verdict == "" {
		a.Verdict = ledger.VerdictUnsure
	}
	if a.Explanation == "" {
		a.Explanation = "Analyzed."
	}
	if a.Abstract == "" {
		a.Abstract = "Logged."
	}
	return a
}
