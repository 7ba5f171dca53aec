// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Agent() AgentConfig
	LLM() LLMConfig
	Browser() BrowserConfig
	Store() StoreConfig

	// Agent Setters
	SetAgentMaxSteps(int)
	SetAgentUseGrid(bool)
	SetAgentGridStep(int)

	// LLM Setters
	SetLLMProvider(LLMProvider)
	SetLLMModel(string)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserStartURL(string)

	// Store Setters
	SetStoreEnabled(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	AgentCfg   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	LLMCfg     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	StoreCfg   StoreConfig   `mapstructure:"store" yaml:"store"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Agent() AgentConfig     { return c.AgentCfg }
func (c *Config) LLM() LLMConfig         { return c.LLMCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Store() StoreConfig     { return c.StoreCfg }

// -- Agent Setters --
func (c *Config) SetAgentMaxSteps(n int) { c.AgentCfg.MaxSteps = n }
func (c *Config) SetAgentUseGrid(b bool) { c.AgentCfg.UseGrid = b }
func (c *Config) SetAgentGridStep(n int) { c.AgentCfg.GridStep = n }

// -- LLM Setters --
func (c *Config) SetLLMProvider(p LLMProvider) { c.LLMCfg.Provider = p }
func (c *Config) SetLLMModel(m string)         { c.LLMCfg.Model = m }

// -- Browser Setters --
func (c *Config) SetBrowserHeadless(b bool)   { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserStartURL(u string) { c.BrowserCfg.StartURL = u }

// -- Store Setters --
func (c *Config) SetStoreEnabled(b bool) { c.StoreCfg.Enabled = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color settings for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AgentConfig is the immutable snapshot a run is configured with.
type AgentConfig struct {
	MaxSteps  int           `mapstructure:"max_steps" yaml:"max_steps"`
	StepDelay time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
	UseGrid   bool          `mapstructure:"use_grid" yaml:"use_grid"`
	GridStep  int           `mapstructure:"grid_step" yaml:"grid_step"`
	// Per-step caps on corrective retries.
	MaxParseRetries  int           `mapstructure:"max_parse_retries" yaml:"max_parse_retries"`
	MaxDenialRetries int           `mapstructure:"max_denial_retries" yaml:"max_denial_retries"`
	MaxWait          time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
	// SystemPrompt overrides the generated prompt when non-empty.
	SystemPrompt      string       `mapstructure:"system_prompt" yaml:"system_prompt"`
	IncludeHistory    bool         `mapstructure:"include_history" yaml:"include_history"`
	IncludeTranscript bool         `mapstructure:"include_transcript" yaml:"include_transcript"`
	Safety            SafetyConfig `mapstructure:"safety" yaml:"safety"`
	Memory            MemoryConfig `mapstructure:"memory" yaml:"memory"`
}

// SafetyConfig configures the policy gate in front of the execution backend.
type SafetyConfig struct {
	MaxActionsPerMinute int           `mapstructure:"max_actions_per_minute" yaml:"max_actions_per_minute"`
	MinActionDelay      time.Duration `mapstructure:"min_action_delay" yaml:"min_action_delay"`
	DeniedActions       []string      `mapstructure:"denied_actions" yaml:"denied_actions"`
	DeniedHotkeys       [][]string    `mapstructure:"denied_hotkeys" yaml:"denied_hotkeys"`
	ScreenBounds        BoundsConfig  `mapstructure:"screen_bounds" yaml:"screen_bounds"`
	EdgeMargin          int           `mapstructure:"edge_margin" yaml:"edge_margin"`
}

// BoundsConfig is a screen rectangle given as origin and size.
type BoundsConfig struct {
	X      int `mapstructure:"x" yaml:"x"`
	Y      int `mapstructure:"y" yaml:"y"`
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// MemoryConfig bounds the conversation history kept between steps.
type MemoryConfig struct {
	MaxEntries int `mapstructure:"max_entries" yaml:"max_entries"`
	MinWindow  int `mapstructure:"min_window" yaml:"min_window"`
	// MaxTokens is an optional token budget; zero disables it.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini     LLMProvider = "gemini"
	ProviderOpenRouter LLMProvider = "openrouter"
)

// LLMConfig configures the vision model client.
type LLMConfig struct {
	Provider LLMProvider `mapstructure:"provider" yaml:"provider"`
	Model    string      `mapstructure:"model" yaml:"model"`
	// FallbackModel, when set, serves requests the primary model fails.
	FallbackModel string        `mapstructure:"fallback_model" yaml:"fallback_model"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	// Client-side pacing of requests.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
	// MaxRetryElapsed bounds the total time spent retrying transient failures.
	MaxRetryElapsed time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
	// Attribution headers sent to OpenRouter.
	Referer  string `mapstructure:"referer" yaml:"referer"`
	AppTitle string `mapstructure:"app_title" yaml:"app_title"`
}

// BrowserConfig configures the Chrome session used as the automation driver.
type BrowserConfig struct {
	Headless      bool           `mapstructure:"headless" yaml:"headless"`
	StartURL      string         `mapstructure:"start_url" yaml:"start_url"`
	Args          []string       `mapstructure:"args" yaml:"args"`
	Debug         bool           `mapstructure:"debug" yaml:"debug"`
	ActionTimeout time.Duration  `mapstructure:"action_timeout" yaml:"action_timeout"`
	Humanoid      HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// StoreConfig configures optional run persistence.
type StoreConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	URL         string `mapstructure:"url" yaml:"url"`
	AutoMigrate bool   `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// NewDefaultConfig creates a new configuration object populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// DefaultDeniedHotkeys are shortcuts that quit applications or delete data.
var DefaultDeniedHotkeys = [][]string{
	{"command", "q"},
	{"command", "delete"},
	{"command", "shift", "delete"},
	{"ctrl", "alt", "delete"},
}

// SetDefaults sets the default values for all configuration parameters in Viper.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "odin")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Agent --
	v.SetDefault("agent.max_steps", 50)
	v.SetDefault("agent.step_delay", "500ms")
	v.SetDefault("agent.use_grid", true)
	v.SetDefault("agent.grid_step", 100)
	v.SetDefault("agent.max_parse_retries", 3)
	v.SetDefault("agent.max_denial_retries", 3)
	v.SetDefault("agent.max_wait", "30s")
	v.SetDefault("agent.include_history", true)
	v.SetDefault("agent.include_transcript", false)

	v.SetDefault("agent.safety.max_actions_per_minute", 60)
	v.SetDefault("agent.safety.min_action_delay", "100ms")
	v.SetDefault("agent.safety.denied_actions", []string{})
	v.SetDefault("agent.safety.denied_hotkeys", DefaultDeniedHotkeys)
	v.SetDefault("agent.safety.screen_bounds.x", 0)
	v.SetDefault("agent.safety.screen_bounds.y", 0)
	v.SetDefault("agent.safety.screen_bounds.width", 1920)
	v.SetDefault("agent.safety.screen_bounds.height", 1080)
	v.SetDefault("agent.safety.edge_margin", 0)

	v.SetDefault("agent.memory.max_entries", 20)
	v.SetDefault("agent.memory.min_window", 3)
	v.SetDefault("agent.memory.max_tokens", 0)

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderOpenRouter))
	v.SetDefault("llm.model", "google/gemini-2.0-flash-001")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.requests_per_second", 1.0)
	v.SetDefault("llm.burst", 10)
	v.SetDefault("llm.max_retry_elapsed", "2m")
	v.SetDefault("llm.app_title", "odin")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.start_url", "about:blank")
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.action_timeout", "15s")
	setHumanoidDefaults(v)

	// -- Store --
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.auto_migrate", true)
}

// NewConfigFromViper creates a new configuration object from a Viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Provider keys are read from their conventional variables as well as ODIN_LLM_API_KEY.
	_ = v.BindEnv("llm.api_key", "ODIN_LLM_API_KEY", "OPENROUTER_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("store.url", "ODIN_STORE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.AgentCfg.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	switch c.LLMCfg.Provider {
	case ProviderGemini, ProviderOpenRouter:
	default:
		return fmt.Errorf("llm.provider %q is not supported (use %q or %q)", c.LLMCfg.Provider, ProviderGemini, ProviderOpenRouter)
	}
	if c.StoreCfg.Enabled && strings.TrimSpace(c.StoreCfg.URL) == "" {
		return fmt.Errorf("store.url is required when store.enabled is true")
	}
	return nil
}

// Validate checks the run configuration.
func (a AgentConfig) Validate() error {
	if a.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be a positive integer")
	}
	if a.StepDelay < 0 {
		return fmt.Errorf("step_delay must be non-negative")
	}
	if a.UseGrid && a.GridStep <= 0 {
		return fmt.Errorf("grid_step must be positive when use_grid is enabled")
	}
	if a.MaxParseRetries < 0 || a.MaxDenialRetries < 0 {
		return fmt.Errorf("retry caps must be non-negative")
	}
	if err := a.Safety.Validate(); err != nil {
		return fmt.Errorf("safety: %w", err)
	}
	if err := a.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	return nil
}

// Validate checks the safety configuration.
func (s SafetyConfig) Validate() error {
	if s.MaxActionsPerMinute <= 0 {
		return fmt.Errorf("max_actions_per_minute must be a positive integer")
	}
	if s.MinActionDelay < 0 {
		return fmt.Errorf("min_action_delay must be non-negative")
	}
	if s.ScreenBounds.Width <= 0 || s.ScreenBounds.Height <= 0 {
		return fmt.Errorf("screen_bounds must have a positive width and height")
	}
	if s.EdgeMargin < 0 || 2*s.EdgeMargin >= s.ScreenBounds.Width || 2*s.EdgeMargin >= s.ScreenBounds.Height {
		return fmt.Errorf("edge_margin %d does not fit inside screen_bounds", s.EdgeMargin)
	}
	for _, combo := range s.DeniedHotkeys {
		if len(combo) == 0 {
			return fmt.Errorf("denied_hotkeys entries must not be empty")
		}
	}
	return nil
}

// Validate checks the memory configuration.
func (m MemoryConfig) Validate() error {
	if m.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be a positive integer")
	}
	if m.MinWindow < 0 || m.MinWindow >= m.MaxEntries {
		return fmt.Errorf("min_window must be in [0, max_entries)")
	}
	if m.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}
