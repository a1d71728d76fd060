package sources

// Configuration types for research sources (publishing institutions)

type Config struct {
	ID       string         // Derived from filename (without .yml extension)
	Name     string         `yaml:"name"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool   `yaml:"enabled"`
	CredibilityTier int    `yaml:"credibility_tier"` // 1 (most credible) .. 3
	CategoryHint    string `yaml:"category_hint"`    // pins classification for single-desk sources
}
