package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSourceConfig(t *testing.T, dir, sourceID, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, sourceID+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCache_Run(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "alpha-research", "name: Alpha Research\nsettings:\n  enabled: true\n  credibility_tier: 1\n")
	writeSourceConfig(t, dir, "beta-desk", "name: Beta Desk\nsettings:\n  enabled: false\n  credibility_tier: 2\n  category_hint: macro\n")

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatal(err)
	}

	if cc.GetConfigCount() != 2 {
		t.Errorf("Expected 2 configs, got %d", cc.GetConfigCount())
	}

	config, err := cc.GetConfig("alpha-research")
	if err != nil {
		t.Fatal(err)
	}
	if config.Name != "Alpha Research" || config.Settings.CredibilityTier != 1 {
		t.Errorf("Unexpected config: %+v", config)
	}

	enabled := cc.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Errorf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["alpha-research"]; !ok {
		t.Error("Expected alpha-research to be enabled")
	}
}

func TestConfigCache_TierFallback(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "alpha-research", "name: Alpha Research\nsettings:\n  enabled: true\n  credibility_tier: 1\n")

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatal(err)
	}

	if got := cc.Tier("alpha-research"); got != 1 {
		t.Errorf("Expected tier 1, got %d", got)
	}
	if got := cc.Tier("unknown-source"); got != DefaultTier {
		t.Errorf("Expected default tier %d for unknown source, got %d", DefaultTier, got)
	}
}

func TestConfigCache_TierDefaultWhenOmitted(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "gamma-notes", "name: Gamma Notes\nsettings:\n  enabled: true\n")

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatal(err)
	}

	if got := cc.Tier("gamma-notes"); got != DefaultTier {
		t.Errorf("Expected omitted tier to default to %d, got %d", DefaultTier, got)
	}
}

func TestConfigCache_CategoryHint(t *testing.T) {
	dir := t.TempDir()
	writeSourceConfig(t, dir, "macro-desk", "name: Macro Desk\nsettings:\n  enabled: true\n  credibility_tier: 2\n  category_hint: macro\n")

	cc := NewConfigCache(dir)
	if err := cc.Run(); err != nil {
		t.Fatal(err)
	}

	if got := cc.CategoryHint("macro-desk"); got != "macro" {
		t.Errorf("Expected macro hint, got %q", got)
	}
	if got := cc.CategoryHint("unknown-source"); got != "" {
		t.Errorf("Expected empty hint for unknown source, got %q", got)
	}
}

func TestConfigCache_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "settings:\n  enabled: true\n  credibility_tier: 1\n"},
		{"tier out of range", "name: Bad Tier\nsettings:\n  enabled: true\n  credibility_tier: 5\n"},
		{"invalid category hint", "name: Bad Hint\nsettings:\n  enabled: true\n  credibility_tier: 1\n  category_hint: crypto\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSourceConfig(t, dir, "bad-source", tt.content)

			cc := NewConfigCache(dir)
			if err := cc.Run(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestConfigCache_MissingDirectory(t *testing.T) {
	cc := NewConfigCache("/nonexistent/sources")
	if err := cc.Run(); err != nil {
		t.Errorf("Expected missing directory to be tolerated, got %v", err)
	}
	if cc.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", cc.GetConfigCount())
	}
}
