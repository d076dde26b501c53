package extract

import (
	"context"

	"github.com/yuchen-w/fangnote/internal/config"
	"github.com/yuchen-w/fangnote/internal/metrics"
)

// New creates the Extractor selected by the configuration.
func New(ctx context.Context, cfg config.Config, collector *metrics.Collector) (Extractor, error) {
	if cfg.Provider == config.ProviderBedrock {
		return NewBedrockExtractor(ctx, cfg, collector)
	}
	return NewLLMExtractor(ctx, cfg, collector)
}
