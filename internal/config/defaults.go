package config

// DefaultCategories is the CheXpert observation set in output column order.
var DefaultCategories = []string{
	"No Finding",
	"Enlarged Cardiomediastinum",
	"Cardiomegaly",
	"Lung Lesion",
	"Lung Opacity",
	"Edema",
	"Consolidation",
	"Pneumonia",
	"Atelectasis",
	"Pneumothorax",
	"Pleural Effusion",
	"Pleural Other",
	"Fracture",
	"Support Devices",
}

// ApplyDefaults sets default values for any zero values in cfg.
// Rule paths default to a rules/ directory next to the config file.
func ApplyDefaults(cfg *Config) {
	if cfg.Input.ReportColumn == "" {
		cfg.Input.ReportColumn = "Report"
	}
	if cfg.Input.IDColumn == "" {
		cfg.Input.IDColumn = "ACC_NBR"
	}
	if cfg.Batch.WindowSize == 0 {
		cfg.Batch.WindowSize = 5000
	}
	if cfg.Batch.ChunkSize == 0 {
		cfg.Batch.ChunkSize = 50
	}
	if cfg.Rules.MentionDir == "" {
		cfg.Rules.MentionDir = "./rules/mention"
	}
	if cfg.Rules.UnmentionDir == "" {
		cfg.Rules.UnmentionDir = "./rules/unmention"
	}
	if cfg.Rules.PreNegationUncertaintyPath == "" {
		cfg.Rules.PreNegationUncertaintyPath = "./rules/patterns/pre_negation_uncertainty.txt"
	}
	if cfg.Rules.NegationPath == "" {
		cfg.Rules.NegationPath = "./rules/patterns/negation.txt"
	}
	if cfg.Rules.PostNegationUncertaintyPath == "" {
		cfg.Rules.PostNegationUncertaintyPath = "./rules/patterns/post_negation_uncertainty.txt"
	}
	if cfg.Categories == nil {
		cfg.Categories = append([]string(nil), DefaultCategories...)
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 500
	}
}
