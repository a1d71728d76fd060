package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"bondlens_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"bondlens_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"bondlens" description:"Database name"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers; bounds concurrent LLM analysis calls"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for ingest and admin endpoints (optional)"`

	// LLM collaborator configuration
	LLMBaseURL    string `long:"llm-base-url" env:"LLM_BASE_URL" default:"https://api.deepseek.com/v1" description:"OpenAI-compatible LLM endpoint"`
	LLMAPIKey     string `long:"llm-api-key" env:"LLM_API_KEY" description:"LLM API key (required for analysis)"`
	LLMModel      string `long:"llm-model" env:"LLM_MODEL" default:"deepseek-chat" description:"LLM model name"`
	LLMTimeout    int    `long:"llm-timeout" env:"LLM_TIMEOUT" default:"90" description:"Per-call LLM timeout in seconds"`
	AnalysisRPM   int    `long:"analysis-rpm" env:"ANALYSIS_RPM" default:"60" description:"LLM requests per minute across all workers"`
	AnalysisBurst int    `long:"analysis-burst" env:"ANALYSIS_BURST" default:"2" description:"LLM request burst size"`

	// Extraction schema tunables
	ScaleMin     float64 `long:"scale-min" env:"SCALE_MIN" default:"0" description:"Lower bound of dimension score scale"`
	ScaleMax     float64 `long:"scale-max" env:"SCALE_MAX" default:"10" description:"Upper bound of dimension score scale"`
	ThesisMax    int     `long:"thesis-max" env:"THESIS_MAX" default:"5" description:"Maximum key theses per assessment"`
	ThesisMaxLen int     `long:"thesis-max-len" env:"THESIS_MAX_LEN" default:"200" description:"Maximum length of a single thesis in characters"`

	// Weighting tunables
	ReadCountCeiling int     `long:"read-count-ceiling" env:"READ_COUNT_CEILING" default:"10000" description:"Read count above which engagement no longer raises weight"`
	ReadCountBoost   float64 `long:"read-count-boost" env:"READ_COUNT_BOOST" default:"0.5" description:"Maximum fractional weight boost from engagement"`

	// Deduplication tunables
	DedupWindowHours    int     `long:"dedup-window-hours" env:"DEDUP_WINDOW_HOURS" default:"72" description:"Recency window for duplicate detection in hours"`
	SimilarityThreshold float64 `long:"similarity-threshold" env:"SIMILARITY_THRESHOLD" default:"0.6" description:"Shingle similarity above which documents are near-duplicates"`

	// Synthesis tunables
	WindowHours     int     `long:"window-hours" env:"WINDOW_HOURS" default:"24" description:"Consensus window length in hours"`
	ContestedMargin float64 `long:"contested-margin" env:"CONTESTED_MARGIN" default:"0.15" description:"Weighted-share margin below which consensus is contested"`
	TieEpsilon      float64 `long:"tie-epsilon" env:"TIE_EPSILON" default:"1e-9" description:"Weighted-share difference treated as an exact tie"`
	OutlierSigma    float64 `long:"outlier-sigma" env:"OUTLIER_SIGMA" default:"2.0" description:"Dispersion units beyond which a score is flagged as an outlier"`
	ThemeTopN       int     `long:"theme-top-n" env:"THEME_TOP_N" default:"10" description:"Number of dominant theme clusters reported"`
	ThemeThreshold  float64 `long:"theme-threshold" env:"THEME_THRESHOLD" default:"0.5" description:"Similarity above which theses join the same theme cluster"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		SourcesDir:          raw.SourcesDir,
		Port:                raw.Port,
		WorkerCount:         raw.WorkerCount,
		SchedulerInterval:   raw.SchedulerInterval,
		APIAccessKey:        raw.APIAccessKey,
		LLMBaseURL:          raw.LLMBaseURL,
		LLMAPIKey:           raw.LLMAPIKey,
		LLMModel:            raw.LLMModel,
		LLMTimeout:          raw.LLMTimeout,
		AnalysisRPM:         raw.AnalysisRPM,
		AnalysisBurst:       raw.AnalysisBurst,
		ScaleMin:            raw.ScaleMin,
		ScaleMax:            raw.ScaleMax,
		ThesisMax:           raw.ThesisMax,
		ThesisMaxLen:        raw.ThesisMaxLen,
		ReadCountCeiling:    raw.ReadCountCeiling,
		ReadCountBoost:      raw.ReadCountBoost,
		DedupWindowHours:    raw.DedupWindowHours,
		SimilarityThreshold: raw.SimilarityThreshold,
		WindowHours:         raw.WindowHours,
		ContestedMargin:     raw.ContestedMargin,
		TieEpsilon:          raw.TieEpsilon,
		OutlierSigma:        raw.OutlierSigma,
		ThemeTopN:           raw.ThemeTopN,
		ThemeThreshold:      raw.ThemeThreshold,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if cfg.ScaleMin >= cfg.ScaleMax {
		return nil, fmt.Errorf("invalid score scale: min %.2f must be below max %.2f", cfg.ScaleMin, cfg.ScaleMax)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
