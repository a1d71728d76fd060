package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// LLM collaborator configuration
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    int
	AnalysisRPM   int
	AnalysisBurst int

	// Extraction schema tunables (configuration, not contract)
	ScaleMin     float64
	ScaleMax     float64
	ThesisMax    int
	ThesisMaxLen int

	// Weighting tunables
	ReadCountCeiling int
	ReadCountBoost   float64

	// Deduplication tunables
	DedupWindowHours    int
	SimilarityThreshold float64

	// Synthesis tunables
	WindowHours     int
	ContestedMargin float64
	TieEpsilon      float64
	OutlierSigma    float64
	ThemeTopN       int
	ThemeThreshold  float64

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
