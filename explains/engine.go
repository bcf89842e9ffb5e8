package explains

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/reusee/taitrace/debugs"
	"github.com/reusee/taitrace/generators"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/metrics"
	"github.com/reusee/taitrace/models"
	"github.com/reusee/taitrace/telemetry"
	"github.com/reusee/taitrace/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	NotReady         = "Explanation service not ready"
	NoExplanation    = "No explanation generated"
	FormatError      = "Explanation format error"
	OutOfMemory      = "GPU memory exhausted - try smaller code segments"
	ChunkFailed      = "Explanation failed"
	errorPlaceholder = "Explanation error: "
)

// ChunkSize bounds how many steps are explained between accelerator reclaims.
const ChunkSize = 3

type Engine struct {
	provider    *models.Provider
	logger      logs.Logger
	tap         debugs.Tap
	cache       *lru.Cache[string, string]
	maxTokens   int
	temperature float32

	// replaced in tests
	explain func(ctx context.Context, handle *models.Handle, source string, step tracing.TransportStep) string
}

func (Module) Engine(
	provider *models.Provider,
	logger logs.Logger,
	tap debugs.Tap,
	maxTokens MaxNewTokens,
	temperature Temperature,
	cacheSize CacheSize,
) *Engine {
	engine := &Engine{
		provider:    provider,
		logger:      logger,
		tap:         tap,
		maxTokens:   int(maxTokens),
		temperature: float32(temperature),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, string](int(cacheSize))
		if err != nil {
			panic(err)
		}
		engine.cache = cache
	}
	engine.explain = engine.Explain
	return engine
}

// Explain returns a plain-language explanation of one step.
// Failures are returned as placeholder text.
func (e *Engine) Explain(ctx context.Context, handle *models.Handle, source string, step tracing.TransportStep) (ret string) {
	outcome := "success"
	defer func() {
		if p := recover(); p != nil {
			e.logger.ErrorContext(ctx, "explain panic",
				"panic", p,
				"line", step.LineNo,
			)
			outcome = "error"
			ret = errorPlaceholder + fmt.Sprint(p)
		}
		metrics.ExplanationsTotal.WithLabelValues(outcome).Inc()
	}()

	if handle == nil || handle.Generator == nil {
		outcome = "not_ready"
		return NotReady
	}

	prompt := buildPrompt(source, step)
	key := string(handle.Tier) + "\x00" + prompt
	if e.cache != nil {
		if text, ok := e.cache.Get(key); ok {
			metrics.ExplanationCacheHits.Inc()
			outcome = "cached"
			return text
		}
	}

	e.tap(ctx, "explain", map[string]any{
		"prompt": prompt,
		"step":   step,
	})

	text, err := e.generate(ctx, handle, prompt)
	if err != nil {
		e.logger.ErrorContext(ctx, "generate explanation",
			"error", err,
			"line", step.LineNo,
			"event", step.Event,
		)
		if errors.Is(err, generators.ErrOutOfMemory) {
			outcome = "oom"
			return OutOfMemory
		}
		outcome = "error"
		return errorPlaceholder + err.Error()
	}

	if text == "" {
		e.logger.WarnContext(ctx, "empty generation",
			"line", step.LineNo,
		)
		outcome = "empty"
		return NoExplanation
	}
	idx := strings.LastIndex(text, Marker)
	if idx < 0 {
		e.logger.WarnContext(ctx, "generation without instruction marker",
			"line", step.LineNo,
			"text", text,
		)
		outcome = "format_error"
		return FormatError
	}

	explanation := strings.TrimSpace(text[idx+len(Marker):])
	if e.cache != nil {
		e.cache.Add(key, explanation)
	}
	return explanation
}

func (e *Engine) generate(ctx context.Context, handle *models.Handle, prompt string) (text string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "explains.generate",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("model.tier", string(handle.Tier)),
		attribute.String("model.name", handle.Generator.Args().Model),
	)
	defer span.End()

	start := time.Now()
	text, err = handle.Generator.Generate(ctx, prompt, e.maxTokens, e.temperature)
	metrics.ExplanationDuration.WithLabelValues(string(handle.Tier)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return
}

// ExplainAll explains every step in order. The result always has one entry per step.
// An error is returned only when no model could be obtained.
func (e *Engine) ExplainAll(ctx context.Context, source string, steps []tracing.TransportStep) ([]string, error) {
	handle, err := e.provider.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	explanations := make([]string, 0, len(steps))
	for start := 0; start < len(steps); start += ChunkSize {
		chunk := steps[start:min(start+ChunkSize, len(steps))]
		explanations = append(explanations, e.explainChunk(ctx, handle, source, chunk)...)
		if handle.Accelerator != nil && handle.Accelerator.Available(ctx) {
			if err := handle.Reclaim(ctx); err != nil {
				e.logger.WarnContext(ctx, "reclaim accelerator memory",
					"error", err,
				)
			}
		}
	}
	return explanations, nil
}

func (e *Engine) explainChunk(ctx context.Context, handle *models.Handle, source string, chunk []tracing.TransportStep) (ret []string) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.ErrorContext(ctx, "chunk failed",
				"panic", p,
			)
			ret = make([]string, len(chunk))
			for i := range ret {
				ret[i] = ChunkFailed
			}
		}
	}()
	ret = make([]string, 0, len(chunk))
	for _, step := range chunk {
		ret = append(ret, e.explain(ctx, handle, source, step))
	}
	return
}
