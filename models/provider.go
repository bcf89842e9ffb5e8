package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/metrics"
	"github.com/reusee/taitrace/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrModelUnavailable = errors.New("model unavailable")

// Provider lazily loads the model once per process.
type Provider struct {
	strategies Strategies
	logger     logs.Logger

	mu     sync.Mutex
	done   bool
	err    error
	handle atomic.Pointer[Handle]
}

type NewProvider func(strategies Strategies) *Provider

func (Module) NewProvider(
	logger logs.Logger,
) NewProvider {
	return func(strategies Strategies) *Provider {
		return &Provider{
			strategies: strategies,
			logger:     logger,
		}
	}
}

func (Module) Provider(
	newProvider NewProvider,
	strategies Strategies,
) *Provider {
	return newProvider(strategies)
}

// GetOrCreate returns the shared handle, loading it on first use.
// Concurrent callers block until the first load finishes.
// A load that exhausted every strategy is remembered and returned to all later callers.
func (p *Provider) GetOrCreate(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return p.handle.Load(), p.err
	}

	errs := []error{ErrModelUnavailable}
	for _, strategy := range p.strategies {
		handle, err := p.load(ctx, strategy)
		if err == nil {
			p.handle.Store(handle)
			p.done = true
			return handle, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			// caller gave up; let the next caller try again
			return nil, ctxErr
		}
		p.logger.WarnContext(ctx, "model load failed",
			"tier", strategy.Tier,
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", strategy.Tier, err))
	}

	p.done = true
	p.err = errors.Join(errs...)
	p.logger.ErrorContext(ctx, "no model available",
		"error", p.err,
	)
	return nil, p.err
}

// Loaded returns the published handle without blocking, or nil.
func (p *Provider) Loaded() *Handle {
	return p.handle.Load()
}

// Close asks the serving backend to unload the model, if one was loaded.
func (p *Provider) Close(ctx context.Context) error {
	handle := p.handle.Load()
	if handle == nil {
		return nil
	}
	if unloader, ok := handle.Generator.(interface{ Unload(context.Context) error }); ok {
		return unloader.Unload(ctx)
	}
	return nil
}

func (p *Provider) load(ctx context.Context, strategy Strategy) (handle *Handle, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "models.load")
	span.SetAttributes(attribute.String("model.tier", string(strategy.Tier)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.ModelLoadsTotal.WithLabelValues(string(strategy.Tier), outcome).Inc()
		p.logger.InfoContext(ctx, "model load",
			"tier", strategy.Tier,
			"outcome", outcome,
			"duration", time.Since(start),
		)
	}()

	handle, err = strategy.Load(ctx)
	if err == nil && handle == nil {
		err = fmt.Errorf("strategy returned no handle")
	}
	return
}
