package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bondlens/bondlens/app/classifier"
)

// DefaultTier is assigned to documents from sources without a configuration
// file. Unknown sources are not rejected, they just carry the lowest weight.
const DefaultTier = 3

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		// Derive source ID from filename (remove .yml extension)
		fileName := filepath.Base(file)
		sourceID := fileName[:len(fileName)-4]

		config, err := cc.LoadConfig(sourceID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "source", sourceID, "enabled", config.Settings.Enabled, "tier", config.Settings.CredibilityTier)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceID string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceID)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Set source ID from parameter
	sourceConfig.ID = sourceID

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.ID] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceID string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceID]
	if !ok {
		return nil, fmt.Errorf("source config with ID '%s' not found", sourceID)
	}
	return sourceConfig, nil
}

// Tier returns the credibility tier for a source, falling back to DefaultTier
// for sources without a configuration file.
func (cc *ConfigCache) Tier(sourceID string) int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if sourceConfig, ok := cc.cache[sourceID]; ok {
		return sourceConfig.Settings.CredibilityTier
	}
	return DefaultTier
}

// CategoryHint returns the pinned category for a source, or "" when the source
// is unknown or unpinned and keyword classification should decide.
func (cc *ConfigCache) CategoryHint(sourceID string) string {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if sourceConfig, ok := cc.cache[sourceID]; ok {
		return sourceConfig.Settings.CategoryHint
	}
	return ""
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sourceConfig.Settings.CredibilityTier == 0 {
		sourceConfig.Settings.CredibilityTier = DefaultTier
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	if sourceConfig.Name == "" {
		return fmt.Errorf("source name is required")
	}

	if sourceConfig.Settings.CredibilityTier < 1 || sourceConfig.Settings.CredibilityTier > 3 {
		return fmt.Errorf("credibility tier must be between 1 and 3, got %d", sourceConfig.Settings.CredibilityTier)
	}

	if hint := sourceConfig.Settings.CategoryHint; hint != "" && !classifier.ValidCategory(hint) {
		return fmt.Errorf("invalid category hint: %s", hint)
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceID string) string {
	return filepath.Join(cc.sourcesDir, sourceID+".yml")
}
