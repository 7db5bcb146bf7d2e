package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// MinChars is the shortest text accepted for analysis.
	MinChars = 100
	// CharsPerPage is the character count of one estimated script page.
	CharsPerPage = 600
	// MaxPages is the longest script analyzed in one pass.
	MaxPages = 200
	// MaxChars is the character budget of MaxPages pages.
	MaxChars = MaxPages * CharsPerPage

	MaxAttempts       = 2
	DefaultTimeout    = 120 * time.Second
	DefaultRetryDelay = 3 * time.Second
)

// Analyzer bounds a remote analysis call with a timeout and a small retry loop.
type Analyzer struct {
	client     Client
	timeout    time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

type Option func(*Analyzer)

func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

func WithRetryDelay(d time.Duration) Option {
	return func(a *Analyzer) { a.retryDelay = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer wraps client with the default 120s timeout and 3s retry delay.
func NewAnalyzer(client Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:     client,
		timeout:    DefaultTimeout,
		retryDelay: DefaultRetryDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EstimatePages estimates the page count of a script from its length.
func EstimatePages(text string) float64 {
	return float64(utf8.RuneCountInString(text)) / CharsPerPage
}

// Validate runs the pre-flight checks. No network call is made for a text
// that fails them.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewError(KindValidation, "script text is empty", nil)
	}
	if n := utf8.RuneCountInString(text); n < MinChars {
		return NewError(KindValidation, fmt.Sprintf("script text is too short (%d characters, minimum %d)", n, MinChars), nil)
	}
	if pages := EstimatePages(text); pages > MaxPages {
		return NewError(KindScriptTooLong, fmt.Sprintf("script is about %.0f pages, the limit is %d", pages, MaxPages), nil)
	}
	return nil
}

// Truncate cuts text to the MaxPages budget. It ends at the last line break
// when that keeps at least half the budget, otherwise at the rune limit. It
// reports whether anything was removed.
func Truncate(text string) (string, bool) {
	if utf8.RuneCountInString(text) <= MaxChars {
		return text, false
	}
	runes := []rune(text)
	cut := string(runes[:MaxChars])
	if i := strings.LastIndex(cut, "\n"); i >= len(cut)/2 {
		cut = cut[:i]
	}
	return cut, true
}

// Analyze validates text and runs the remote analysis, retrying once on
// transient failures.
func (a *Analyzer) Analyze(ctx context.Context, text string, onProgress ProgressFunc) (*Result, error) {
	if err := Validate(text); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt == 1 {
			a.report(onProgress, fmt.Sprintf("Analyzing script (~%.0f pages)...", EstimatePages(text)), attempt)
		} else {
			a.report(onProgress, fmt.Sprintf("Retrying analysis (attempt %d of %d)...", attempt, MaxAttempts), attempt)
		}

		result, err := a.attempt(ctx, text)
		if err == nil {
			a.report(onProgress, "Analysis complete", attempt)
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		ae, ok := AsError(err)
		if !ok || !ae.Retryable() {
			a.logger.Info("analysis failed, not retrying", zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}
		if attempt == MaxAttempts {
			break
		}

		a.logger.Warn("analysis attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.String("kind", string(ae.Kind)),
			zap.Duration("delay", a.retryDelay),
			zap.Error(err))
		a.report(onProgress, fmt.Sprintf("Attempt %d failed (%s), retrying in %s", attempt, ae.Kind, a.retryDelay), attempt)

		timer := time.NewTimer(a.retryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// AnalyzeTruncated analyzes the first MaxPages pages of text. The truncated
// text is what reaches the client.
func (a *Analyzer) AnalyzeTruncated(ctx context.Context, text string, onProgress ProgressFunc) (*Result, error) {
	truncated, cut := Truncate(text)
	if cut {
		a.logger.Info("script truncated for analysis",
			zap.Int("original_chars", utf8.RuneCountInString(text)),
			zap.Int("truncated_chars", utf8.RuneCountInString(truncated)))
		a.report(onProgress, fmt.Sprintf("Script truncated to the first %d pages", MaxPages), 1)
	}
	return a.Analyze(ctx, truncated, onProgress)
}

type outcome struct {
	result *Result
	err    error
}

// attempt races one client call against the timeout. The call is not
// cancelled when the timer fires; its late result is dropped.
func (a *Analyzer) attempt(ctx context.Context, text string) (*Result, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: NewError(KindAPI, "analysis client panicked", fmt.Errorf("%v", r))}
			}
		}()
		res, err := a.client.AnalyzeScript(ctx, text)
		done <- outcome{result: res, err: err}
	}()

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, classify(o.err)
		}
		if err := o.result.Validate(); err != nil {
			return nil, err
		}
		return o.result, nil
	case <-timer.C:
		return nil, NewError(KindTimeout, fmt.Sprintf("analysis did not finish within %s", a.timeout), nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Analyzer) report(onProgress ProgressFunc, message string, attempt int) {
	if onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("progress callback panicked", zap.Any("panic", r))
		}
	}()
	onProgress(message, attempt)
}

// classify maps client errors outside the taxonomy onto it.
func classify(err error) error {
	if _, ok := AsError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, "analysis request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewError(KindNetwork, "could not reach the analysis service", err)
	}
	return NewError(KindAPI, "analysis service error", err)
}
