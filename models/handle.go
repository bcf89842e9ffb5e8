package models

import (
	"context"

	"github.com/reusee/taitrace/generators"
)

type Tier string

const (
	TierAccelerated Tier = "accelerated-quantized"
	TierGeneral     Tier = "general-compute"
)

// Handle is published once and shared read-only.
type Handle struct {
	Tier      Tier
	Generator generators.Generator
	// nil unless the model runs on an accelerator
	Accelerator Accelerator
}

// Reclaim releases transient accelerator memory. It is a no-op for general-compute handles.
func (h *Handle) Reclaim(ctx context.Context) error {
	if h == nil || h.Accelerator == nil {
		return nil
	}
	return h.Accelerator.Reclaim(ctx)
}
