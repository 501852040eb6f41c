package job

import (
	"fmt"

	"github.com/hyperjump/radlabel/internal/config"
	"github.com/hyperjump/radlabel/internal/pipeline"
	"github.com/hyperjump/radlabel/internal/rules"
	"github.com/hyperjump/radlabel/internal/ssplit"
	"go.uber.org/zap"
)

// BuildEngines loads the rule files named in cfg. The returned engines hold only
// compiled rules, so one set is shared by every chunk.
func BuildEngines(cfg *config.Config, logger *zap.Logger) (pipeline.Engines, error) {
	extractor, err := rules.LoadPhraseExtractor(cfg.Rules.MentionDir, cfg.Rules.UnmentionDir)
	if err != nil {
		return pipeline.Engines{}, fmt.Errorf("failed to load extractor: %w", err)
	}
	classifier, err := rules.LoadPatternClassifier(
		cfg.Rules.PreNegationUncertaintyPath,
		cfg.Rules.NegationPath,
		cfg.Rules.PostNegationUncertaintyPath,
	)
	if err != nil {
		return pipeline.Engines{}, fmt.Errorf("failed to load classifier: %w", err)
	}
	aggregator, err := rules.NewCategoryAggregator(cfg.Categories)
	if err != nil {
		return pipeline.Engines{}, err
	}

	if logger != nil {
		known := make(map[string]bool, len(cfg.Categories))
		for _, c := range cfg.Categories {
			known[c] = true
		}
		for _, c := range extractor.Categories() {
			if !known[c] {
				logger.Warn("mention category is not configured and will be ignored", zap.String("category", c))
			}
		}
	}

	return pipeline.Engines{
		Splitter:   ssplit.NewSplitter(),
		Extractor:  extractor,
		Classifier: classifier,
		Aggregator: aggregator,
	}, nil
}
