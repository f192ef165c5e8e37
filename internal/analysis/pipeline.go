package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rapport/internal/emotion"
	"rapport/internal/explain"
)

type Source string

const (
	SourceEnhanced Source = "enhanced"
	SourceFallback Source = "fallback"
)

const DefaultTimeout = 1500 * time.Millisecond

// Verdict is what an enhanced backend reports. Scores and Explanation are optional.
type Verdict struct {
	Label       emotion.Category
	Confidence  float64
	Scores      map[emotion.Category]float64
	Explanation string
}

// Backend is an optional, unreliable classifier that is tried before the
// lexical rules.
type Backend interface {
	Name() string
	Enabled() bool
	Classify(ctx context.Context, text string) (Verdict, error)
}

// Result has the same shape whichever path produced it.
type Result struct {
	emotion.Result
	Explanation string `json:"explanation"`
	Source      Source `json:"source"`
	Backend     string `json:"backend"`
}

type Config struct {
	Timeout time.Duration
}

type Pipeline struct {
	backend    Backend
	classifier *emotion.Classifier
	explainer  *explain.Explainer
	timeout    time.Duration
	logger     *slog.Logger
}

// NewPipeline builds the two-stage analyzer. backend may be nil.
func NewPipeline(backend Backend, classifier *emotion.Classifier, explainer *explain.Explainer, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		backend:    backend,
		classifier: classifier,
		explainer:  explainer,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

func (p *Pipeline) BackendName() string {
	if p.backend == nil || !p.backend.Enabled() {
		return "lexical"
	}
	return p.backend.Name()
}

// Analyze never fails: the lexical path answers whenever the enhanced backend
// is missing, errors, returns garbage or runs past the timeout.
func (p *Pipeline) Analyze(ctx context.Context, text string) Result {
	lexical := p.classifier.Classify(text)
	if p.backend != nil && p.backend.Enabled() && strings.TrimSpace(text) != "" {
		verdict, err := p.tryEnhanced(ctx, text)
		if err == nil {
			return p.fromVerdict(text, verdict, lexical)
		}
		p.logger.Warn("enhanced analysis failed, using lexical fallback", "backend", p.backend.Name(), "error", err)
	}
	return Result{
		Result:      lexical,
		Explanation: p.explainer.Explain(text, &lexical),
		Source:      SourceFallback,
		Backend:     "lexical",
	}
}

type enhancedOutcome struct {
	verdict Verdict
	err     error
}

func (p *Pipeline) tryEnhanced(ctx context.Context, text string) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan enhancedOutcome, 1)
	go func() {
		v, err := p.backend.Classify(ctx, text)
		done <- enhancedOutcome{verdict: v, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Verdict{}, out.err
		}
		return validate(out.verdict)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Verdict{}, fmt.Errorf("enhanced backend timed out after %s", p.timeout)
		}
		return Verdict{}, ctx.Err()
	}
}

func validate(v Verdict) (Verdict, error) {
	if !v.Label.Valid() {
		return Verdict{}, fmt.Errorf("enhanced backend returned unknown label %q", v.Label)
	}
	v.Confidence = emotion.ClampConfidence(v.Confidence)
	return v, nil
}

func (p *Pipeline) fromVerdict(text string, v Verdict, lexical emotion.Result) Result {
	scores := make(map[emotion.Category]float64, len(emotion.Categories()))
	for _, k := range emotion.Categories() {
		scores[k] = 0
	}
	if len(v.Scores) > 0 {
		for k, s := range v.Scores {
			if k.Valid() && s > 0 {
				scores[k] = s
			}
		}
	} else {
		scores[v.Label] = v.Confidence
	}

	res := emotion.Result{
		Label:       v.Label,
		Confidence:  v.Confidence,
		Scores:      scores,
		HasNegation: lexical.HasNegation,
	}
	explanation := strings.TrimSpace(v.Explanation)
	if explanation == "" {
		explanation = p.explainer.Explain(text, &res)
	}
	return Result{
		Result:      res,
		Explanation: explanation,
		Source:      SourceEnhanced,
		Backend:     p.backend.Name(),
	}
}
