package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Reddit struct {
		Subreddit       string `yaml:"subreddit"`
		Sort            string `yaml:"sort"`
		Limit           int    `yaml:"limit"`
		TimeFilter      string `yaml:"time_filter"`
		CollectionMode  string `yaml:"collection_mode"`
		CommentsPerPost int    `yaml:"comments_per_post"`
		UserAgent       string `yaml:"user_agent"`
	} `yaml:"reddit"`
	Sentiment struct {
		PositiveThreshold float64 `yaml:"positive_threshold"`
		NegativeThreshold float64 `yaml:"negative_threshold"`
		MaxTextBytes      int     `yaml:"max_text_bytes"`
	} `yaml:"sentiment"`
	Analysis struct {
		WindowDays  int `yaml:"window_days"`
		MinMentions int `yaml:"min_mentions"`
		TopN        int `yaml:"top_n"`
		Weights     struct {
			Mentions   float64 `yaml:"mentions"`
			Sentiment  float64 `yaml:"sentiment"`
			Confidence float64 `yaml:"confidence"`
		} `yaml:"weights"`
	} `yaml:"analysis"`
	Backtest struct {
		Horizons            []int   `yaml:"horizons"`
		DirectionThreshold  float64 `yaml:"direction_threshold"`
		MaxTradingDaySearch int     `yaml:"max_trading_day_search"`
	} `yaml:"backtest"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Output struct {
		ResultsDir string `yaml:"results_dir"`
		LogDir     string `yaml:"log_dir"`
	} `yaml:"output"`
	HTTP struct {
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RetryMaxAttempts  int     `yaml:"retry_max_attempts"`
		RetryBaseDelayMs  int     `yaml:"retry_base_delay_ms"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"http"`
}

func (c *Config) Validate() error {
	switch c.Reddit.Sort {
	case "hot", "new", "top", "rising":
	default:
		return fmt.Errorf("reddit.sort must be 'hot', 'new', 'top', or 'rising', got '%s'", c.Reddit.Sort)
	}
	switch c.Reddit.CollectionMode {
	case "normal", "extended", "comprehensive":
	default:
		return fmt.Errorf("reddit.collection_mode must be 'normal', 'extended', or 'comprehensive', got '%s'", c.Reddit.CollectionMode)
	}
	if c.Reddit.Limit <= 0 {
		return fmt.Errorf("reddit.limit must be positive, got %d", c.Reddit.Limit)
	}
	if c.Sentiment.PositiveThreshold < 0 {
		return fmt.Errorf("sentiment.positive_threshold must be >= 0, got %.3f", c.Sentiment.PositiveThreshold)
	}
	if c.Sentiment.NegativeThreshold > 0 {
		return fmt.Errorf("sentiment.negative_threshold must be <= 0, got %.3f", c.Sentiment.NegativeThreshold)
	}
	if c.Analysis.WindowDays <= 0 {
		return fmt.Errorf("analysis.window_days must be positive, got %d", c.Analysis.WindowDays)
	}
	if c.Analysis.MinMentions < 1 {
		return fmt.Errorf("analysis.min_mentions must be >= 1, got %d", c.Analysis.MinMentions)
	}
	w := c.Analysis.Weights
	if w.Mentions < 0 || w.Sentiment < 0 || w.Confidence < 0 {
		return fmt.Errorf("analysis.weights must be non-negative, got %.2f/%.2f/%.2f", w.Mentions, w.Sentiment, w.Confidence)
	}
	if w.Mentions+w.Sentiment+w.Confidence == 0 {
		return fmt.Errorf("analysis.weights cannot all be zero")
	}
	if len(c.Backtest.Horizons) == 0 {
		return fmt.Errorf("backtest.horizons cannot be empty")
	}
	for _, h := range c.Backtest.Horizons {
		if h <= 0 {
			return fmt.Errorf("backtest.horizons must be positive, got %d", h)
		}
	}
	if c.Backtest.DirectionThreshold < 0 {
		return fmt.Errorf("backtest.direction_threshold must be >= 0, got %.3f", c.Backtest.DirectionThreshold)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// DefaultConfig returns a config with all defaults applied, used when no
// config file is present.
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Reddit.Subreddit == "" {
		c.Reddit.Subreddit = "wallstreetbets"
	}
	if c.Reddit.Sort == "" {
		c.Reddit.Sort = "hot"
	}
	if c.Reddit.Limit == 0 {
		c.Reddit.Limit = 100
	}
	if c.Reddit.TimeFilter == "" {
		c.Reddit.TimeFilter = "day"
	}
	if c.Reddit.CollectionMode == "" {
		c.Reddit.CollectionMode = "normal"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "wsb-sentiment/1.0"
	}
	if c.Sentiment.PositiveThreshold == 0 {
		c.Sentiment.PositiveThreshold = 0.05
	}
	if c.Sentiment.NegativeThreshold == 0 {
		c.Sentiment.NegativeThreshold = -0.05
	}
	if c.Sentiment.MaxTextBytes == 0 {
		c.Sentiment.MaxTextBytes = 20000
	}
	if c.Analysis.WindowDays == 0 {
		c.Analysis.WindowDays = 7
	}
	if c.Analysis.MinMentions == 0 {
		c.Analysis.MinMentions = 3
	}
	if c.Analysis.TopN == 0 {
		c.Analysis.TopN = 10
	}
	if c.Analysis.Weights.Mentions == 0 && c.Analysis.Weights.Sentiment == 0 && c.Analysis.Weights.Confidence == 0 {
		c.Analysis.Weights.Mentions = 0.4
		c.Analysis.Weights.Sentiment = 0.4
		c.Analysis.Weights.Confidence = 0.2
	}
	if len(c.Backtest.Horizons) == 0 {
		c.Backtest.Horizons = []int{1, 3, 7}
	}
	if c.Backtest.DirectionThreshold == 0 {
		c.Backtest.DirectionThreshold = 0.1
	}
	if c.Backtest.MaxTradingDaySearch == 0 {
		c.Backtest.MaxTradingDaySearch = 5
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/wsb_sentiment.db"
	}
	if c.Output.ResultsDir == "" {
		c.Output.ResultsDir = "daily_results"
	}
	if c.Output.LogDir == "" {
		c.Output.LogDir = "logs"
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	if c.HTTP.RetryMaxAttempts == 0 {
		c.HTTP.RetryMaxAttempts = 3
	}
	if c.HTTP.RetryBaseDelayMs == 0 {
		c.HTTP.RetryBaseDelayMs = 500
	}
	if c.HTTP.RequestsPerSecond == 0 {
		c.HTTP.RequestsPerSecond = 1
	}
}
