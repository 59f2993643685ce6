package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig         `yaml:"store" mapstructure:"store"`
	Log        LogConfig           `yaml:"log" mapstructure:"log"`
	Server     ServerConfig        `yaml:"server" mapstructure:"server"`
	Collector  CollectorConfig     `yaml:"collector" mapstructure:"collector"`
	Pipeline   PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Features   FeatureConfig       `yaml:"features" mapstructure:"features"`
	Engagement EngagementConfig    `yaml:"engagement" mapstructure:"engagement"`
	Thresholds ThresholdConfig     `yaml:"thresholds" mapstructure:"thresholds"`
	Classifier ClassifierConfig    `yaml:"classifier" mapstructure:"classifier"`
	Anthropic  AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Vocabulary VocabularyConfig    `yaml:"vocabulary" mapstructure:"vocabulary"`
	Report     ReportConfig        `yaml:"report" mapstructure:"report"`
	Monitoring MonitoringConfig    `yaml:"monitoring" mapstructure:"monitoring"`
	Categories map[string][]string `yaml:"categories" mapstructure:"categories"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// CollectorConfig configures the Reddit collector.
type CollectorConfig struct {
	BaseURL           string   `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string   `yaml:"user_agent" mapstructure:"user_agent"`
	Subreddits        []string `yaml:"subreddits" mapstructure:"subreddits"`
	TimeFilter        string   `yaml:"time_filter" mapstructure:"time_filter"`
	PostsPerSubreddit int      `yaml:"posts_per_subreddit" mapstructure:"posts_per_subreddit"`
	PageSize          int      `yaml:"page_size" mapstructure:"page_size"`
	MinScore          int      `yaml:"min_score" mapstructure:"min_score"`
	RateLimitSecs     float64  `yaml:"rate_limit_secs" mapstructure:"rate_limit_secs"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int      `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs  int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold  int      `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs  int      `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// PipelineConfig configures the batch run.
type PipelineConfig struct {
	DaysBack       int `yaml:"days_back" mapstructure:"days_back"`
	MinScore       int `yaml:"min_score" mapstructure:"min_score"`
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	QueryDaysBack  int `yaml:"query_days_back" mapstructure:"query_days_back"`
}

// FeatureConfig configures windowed aggregation and trend labeling.
type FeatureConfig struct {
	Windows          []int   `yaml:"windows" mapstructure:"windows"`
	ScoreWindow      int     `yaml:"score_window" mapstructure:"score_window"`
	MinMentions      int     `yaml:"min_mentions" mapstructure:"min_mentions"`
	TrendingQuantile float64 `yaml:"trending_quantile" mapstructure:"trending_quantile"`
	MinPopulation    int     `yaml:"min_population" mapstructure:"min_population"`
	VelocityWeight   float64 `yaml:"velocity_weight" mapstructure:"velocity_weight"`
	GrowthWeight     float64 `yaml:"growth_weight" mapstructure:"growth_weight"`
	EngagementWeight float64 `yaml:"engagement_weight" mapstructure:"engagement_weight"`
}

// EngagementConfig holds the per-signal engagement weights.
type EngagementConfig struct {
	ScoreWeight    float64 `yaml:"score_weight" mapstructure:"score_weight"`
	CommentsWeight float64 `yaml:"comments_weight" mapstructure:"comments_weight"`
	ApprovalWeight float64 `yaml:"approval_weight" mapstructure:"approval_weight"`
}

// ThresholdConfig holds the probability cut-offs used by insights.
type ThresholdConfig struct {
	High          float64 `yaml:"high" mapstructure:"high"`
	Medium        float64 `yaml:"medium" mapstructure:"medium"`
	Low           float64 `yaml:"low" mapstructure:"low"`
	HighPotential float64 `yaml:"high_potential" mapstructure:"high_potential"`
	Emerging      float64 `yaml:"emerging" mapstructure:"emerging"`
	MinVelocity   float64 `yaml:"min_velocity" mapstructure:"min_velocity"`
	MinGrowth     float64 `yaml:"min_growth" mapstructure:"min_growth"`
}

// ClassifierConfig selects and tunes the trend classifier.
type ClassifierConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"`
	ChunkSize      int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// VocabularyConfig points at an optional YAML vocabulary file.
type VocabularyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ReportConfig configures the insights report.
type ReportConfig struct {
	TopN             int `yaml:"top_n" mapstructure:"top_n"`
	PredictionsLimit int `yaml:"predictions_limit" mapstructure:"predictions_limit"`
	CategoryLimit    int `yaml:"category_limit" mapstructure:"category_limit"`
	ListLimit        int `yaml:"list_limit" mapstructure:"list_limit"`
}

// MonitoringConfig configures the run-history health snapshot.
type MonitoringConfig struct {
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StaleAfterHours      int     `yaml:"stale_after_hours" mapstructure:"stale_after_hours"`
}

// DefaultSubreddits is the set of food communities collected by default.
var DefaultSubreddits = []string{
	"food", "cooking", "recipes", "AskCulinary", "foodhacks",
	"EatCheapAndHealthy", "FoodPorn", "Baking", "GifRecipes",
	"healthyfood", "veganrecipes", "vegetarian", "ketorecipes",
	"MealPrepSunday", "Cooking", "Pizza", "sushi", "BBQ",
	"Coffee", "tea", "spicy", "FoodNerds", "AsianFood",
}

// DefaultCategories maps food categories to their member items.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"asian":       {"sushi", "ramen", "pho", "kimchi", "dumplings", "pad thai", "curry", "bibimbap", "banh mi", "tikka", "biryani"},
		"italian":     {"pizza", "pasta", "tiramisu", "risotto", "carbonara"},
		"american":    {"burger", "bbq", "pancakes", "waffles", "bagel", "hot dog"},
		"mexican":     {"tacos", "burrito", "empanada", "quesadilla", "nachos"},
		"desserts":    {"cake", "cookies", "pie", "ice cream", "chocolate", "churros", "croissant", "donut"},
		"healthy":     {"salad", "quinoa", "kale", "avocado", "smoothie", "poke", "açaí", "brussels sprouts", "broccoli"},
		"plant-based": {"tofu", "tempeh", "seitan", "hummus", "falafel"},
		"comfort":     {"mac and cheese", "fried chicken", "mashed potatoes", "soup", "stew"},
		"breakfast":   {"pancakes", "waffles", "bagel", "croissant", "omelette", "eggs"},
		"beverages":   {"coffee", "tea", "kombucha", "matcha", "smoothie"},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FOODTREND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "foodtrend.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("collector.base_url", "https://www.reddit.com")
	v.SetDefault("collector.user_agent", "FoodTrendPredictor/1.0")
	v.SetDefault("collector.subreddits", DefaultSubreddits)
	v.SetDefault("collector.time_filter", "month")
	v.SetDefault("collector.posts_per_subreddit", 4500)
	v.SetDefault("collector.page_size", 100)
	v.SetDefault("collector.min_score", 5)
	v.SetDefault("collector.rate_limit_secs", 2.0)
	v.SetDefault("collector.timeout_secs", 30)
	v.SetDefault("collector.max_retries", 3)
	v.SetDefault("collector.initial_backoff_ms", 1000)
	v.SetDefault("collector.max_backoff_ms", 30000)
	v.SetDefault("collector.breaker_threshold", 5)
	v.SetDefault("collector.breaker_reset_secs", 60)

	v.SetDefault("pipeline.days_back", 90)
	v.SetDefault("pipeline.min_score", 5)
	v.SetDefault("pipeline.max_concurrency", 8)
	v.SetDefault("pipeline.query_days_back", 30)

	v.SetDefault("features.windows", []int{7, 14, 30})
	v.SetDefault("features.score_window", 7)
	v.SetDefault("features.min_mentions", 5)
	v.SetDefault("features.trending_quantile", 0.80)
	v.SetDefault("features.min_population", 5)
	v.SetDefault("features.velocity_weight", 0.3)
	v.SetDefault("features.growth_weight", 0.4)
	v.SetDefault("features.engagement_weight", 0.3)

	v.SetDefault("engagement.score_weight", 1.0)
	v.SetDefault("engagement.comments_weight", 2.0)
	v.SetDefault("engagement.approval_weight", 100.0)

	v.SetDefault("thresholds.high", 0.8)
	v.SetDefault("thresholds.medium", 0.6)
	v.SetDefault("thresholds.low", 0.4)
	v.SetDefault("thresholds.high_potential", 0.7)
	v.SetDefault("thresholds.emerging", 0.5)
	v.SetDefault("thresholds.min_velocity", 1.0)
	v.SetDefault("thresholds.min_growth", 0.1)

	v.SetDefault("classifier.provider", "heuristic")
	v.SetDefault("classifier.chunk_size", 25)
	v.SetDefault("classifier.max_concurrency", 4)

	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("vocabulary.path", "")

	v.SetDefault("report.top_n", 10)
	v.SetDefault("report.predictions_limit", 50)
	v.SetDefault("report.category_limit", 100)
	v.SetDefault("report.list_limit", 5)

	v.SetDefault("monitoring.lookback_hours", 168)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.stale_after_hours", 48)

	v.SetDefault("categories", DefaultCategories())
}

// Validate checks that the configuration is internally consistent. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	if len(c.Features.Windows) == 0 {
		errs = append(errs, "features.windows must not be empty")
	}
	hasScoreWindow := false
	for _, w := range c.Features.Windows {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("features.windows must be positive, got %d", w))
		}
		if w == c.Features.ScoreWindow {
			hasScoreWindow = true
		}
	}
	if !hasScoreWindow {
		errs = append(errs, fmt.Sprintf("features.score_window %d must be one of features.windows", c.Features.ScoreWindow))
	}
	if c.Features.MinMentions < 1 {
		errs = append(errs, "features.min_mentions must be >= 1")
	}
	if c.Features.TrendingQuantile < 0 || c.Features.TrendingQuantile > 1 {
		errs = append(errs, "features.trending_quantile must be between 0 and 1")
	}
	if c.Features.MinPopulation < 0 {
		errs = append(errs, "features.min_population must be >= 0")
	}
	sum := c.Features.VelocityWeight + c.Features.GrowthWeight + c.Features.EngagementWeight
	if math.Abs(sum-1) > 0.001 {
		errs = append(errs, fmt.Sprintf("features weights should sum to 1, got %.3f", sum))
	}

	if c.Thresholds.High < c.Thresholds.Medium || c.Thresholds.Medium < c.Thresholds.Low {
		errs = append(errs, "thresholds must satisfy high >= medium >= low")
	}

	if c.Pipeline.DaysBack <= 0 {
		errs = append(errs, "pipeline.days_back must be > 0")
	}

	switch c.Classifier.Provider {
	case "heuristic":
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required when classifier.provider is anthropic (FOODTREND_ANTHROPIC_KEY)")
		}
	default:
		errs = append(errs, fmt.Sprintf("classifier.provider must be heuristic or anthropic, got %q", c.Classifier.Provider))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Hash returns a short stable digest of the settings that affect scoring,
// so a run can be tied to the configuration that produced it.
func (c *Config) Hash() string {
	payload := struct {
		Features   FeatureConfig
		Engagement EngagementConfig
		MinScore   int
		DaysBack   int
	}{c.Features, c.Engagement, c.Pipeline.MinScore, c.Pipeline.DaysBack}

	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
