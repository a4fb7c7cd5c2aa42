// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Navigator() NavigatorConfig
	Input() InputConfig
	Document() DocumentConfig
	Browser() BrowserConfig

	// Document Setters
	SetDocumentPath(string)
	SetDocumentWatch(bool)

	// Input Setters
	SetInputCommandFile(string)

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserURL(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	NavigatorCfg NavigatorConfig `mapstructure:"navigator" yaml:"navigator"`
	InputCfg     InputConfig     `mapstructure:"input" yaml:"input"`
	DocumentCfg  DocumentConfig  `mapstructure:"document" yaml:"document"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Navigator() NavigatorConfig { return c.NavigatorCfg }
func (c *Config) Input() InputConfig         { return c.InputCfg }
func (c *Config) Document() DocumentConfig   { return c.DocumentCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetDocumentPath(p string)   { c.DocumentCfg.Path = p }
func (c *Config) SetDocumentWatch(b bool)    { c.DocumentCfg.Watch = b }
func (c *Config) SetInputCommandFile(p string) { c.InputCfg.CommandFile = p }
func (c *Config) SetBrowserHeadless(b bool)  { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserURL(u string)     { c.BrowserCfg.URL = u }

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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// NavigatorConfig mirrors the flat option set of the navigator.
type NavigatorConfig struct {
	HoverClass   string  `mapstructure:"hover_class" yaml:"hover_class"`
	AreaClass    string  `mapstructure:"area_class" yaml:"area_class"`
	TrackClass   string  `mapstructure:"track_class" yaml:"track_class"`
	BlockedClass string  `mapstructure:"blocked_class" yaml:"blocked_class"`
	Overlap      float64 `mapstructure:"overlap" yaml:"overlap"`
	// Position is an optional initial pointer position in the form "x,y".
	Position     string `mapstructure:"position" yaml:"position"`
	Priority     string `mapstructure:"priority" yaml:"priority"`
	Prefix       string `mapstructure:"prefix" yaml:"prefix"`
	AreaSelector string `mapstructure:"area_selector" yaml:"area_selector"`
	ItemSelector string `mapstructure:"item_selector" yaml:"item_selector"`
}

// InputConfig configures how physical input turns into navigation commands.
type InputConfig struct {
	// Keys maps a physical key name to a command (left, up, right, down, click).
	Keys        map[string]string `mapstructure:"keys" yaml:"keys"`
	RepeatRate  float64           `mapstructure:"repeat_rate" yaml:"repeat_rate"`
	RepeatBurst int               `mapstructure:"repeat_burst" yaml:"repeat_burst"`
	CommandFile string            `mapstructure:"command_file" yaml:"command_file"`
}

// DocumentConfig locates the HTML document driven in headless and TUI modes.
type DocumentConfig struct {
	Path           string        `mapstructure:"path" yaml:"path"`
	Watch          bool          `mapstructure:"watch" yaml:"watch"`
	Debounce       time.Duration `mapstructure:"debounce" yaml:"debounce"`
	ViewportWidth  float64       `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64       `mapstructure:"viewport_height" yaml:"viewport_height"`
}

// BrowserConfig holds settings for the live browser session.
type BrowserConfig struct {
	Headless bool              `mapstructure:"headless" yaml:"headless"`
	URL      string            `mapstructure:"url" yaml:"url"`
	Flags    map[string]string `mapstructure:"flags" yaml:"flags"`
	Timeout  time.Duration     `mapstructure:"timeout" yaml:"timeout"`
	// Emulation pins the tab's viewport and locale so boxes are reproducible.
	Emulation EmulationConfig `mapstructure:"emulation" yaml:"emulation"`
}

// EmulationConfig overrides what the page sees of the device. Zero values
// leave the browser's own settings alone.
type EmulationConfig struct {
	ViewportWidth  int64   `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int64   `mapstructure:"viewport_height" yaml:"viewport_height"`
	ScaleFactor    float64 `mapstructure:"scale_factor" yaml:"scale_factor"`
	UserAgent      string  `mapstructure:"user_agent" yaml:"user_agent"`
	Locale         string  `mapstructure:"locale" yaml:"locale"`
	Timezone       string  `mapstructure:"timezone" yaml:"timezone"`
}

// NewDefaultConfig builds a configuration made only of defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "scalpel-nav")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Navigator --
	v.SetDefault("navigator.hover_class", "hover")
	v.SetDefault("navigator.area_class", "hover")
	v.SetDefault("navigator.track_class", "tracked")
	v.SetDefault("navigator.blocked_class", "blocked")
	v.SetDefault("navigator.overlap", 0.0)
	v.SetDefault("navigator.position", "")
	v.SetDefault("navigator.priority", "left,top")
	v.SetDefault("navigator.prefix", "data-nav-")
	v.SetDefault("navigator.area_selector", "[data-nav-area]")
	v.SetDefault("navigator.item_selector", "a, button, [data-nav-item]")

	// -- Input --
	v.SetDefault("input.keys", map[string]string{
		"left":  "left",
		"up":    "up",
		"right": "right",
		"down":  "down",
		"enter": "click",
	})
	v.SetDefault("input.repeat_rate", 0.0)
	v.SetDefault("input.repeat_burst", 1)
	v.SetDefault("input.command_file", "")

	// -- Document --
	v.SetDefault("document.path", "")
	v.SetDefault("document.watch", false)
	v.SetDefault("document.debounce", "150ms")
	v.SetDefault("document.viewport_width", 1920.0)
	v.SetDefault("document.viewport_height", 1080.0)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.url", "")
	v.SetDefault("browser.timeout", "60s")
	v.SetDefault("browser.emulation.viewport_width", 1920)
	v.SetDefault("browser.emulation.viewport_height", 1080)
	v.SetDefault("browser.emulation.scale_factor", 1.0)
}

// NewConfigFromViper unmarshals, expands and validates the configuration.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every file path setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.DocumentCfg.Path, &c.InputCfg.CommandFile, &c.LoggerCfg.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.NavigatorCfg.Validate(); err != nil {
		return fmt.Errorf("navigator configuration invalid: %w", err)
	}
	if err := c.InputCfg.Validate(); err != nil {
		return fmt.Errorf("input configuration invalid: %w", err)
	}
	if c.DocumentCfg.ViewportWidth <= 0 || c.DocumentCfg.ViewportHeight <= 0 {
		return fmt.Errorf("document viewport must have a positive width and height")
	}
	if c.DocumentCfg.Debounce < 0 {
		return fmt.Errorf("document.debounce cannot be negative")
	}
	if e := c.BrowserCfg.Emulation; e.ViewportWidth < 0 || e.ViewportHeight < 0 || e.ScaleFactor < 0 {
		return fmt.Errorf("browser.emulation values cannot be negative")
	}
	return nil
}

// Validate checks the navigator options.
func (n NavigatorConfig) Validate() error {
	if n.Prefix == "" {
		return fmt.Errorf("navigator.prefix is required")
	}
	if strings.TrimSpace(n.ItemSelector) == "" {
		return fmt.Errorf("navigator.item_selector is required")
	}
	if strings.TrimSpace(n.AreaSelector) == "" {
		return fmt.Errorf("navigator.area_selector is required")
	}
	if n.Overlap < 0 {
		return fmt.Errorf("navigator.overlap cannot be negative")
	}
	for _, token := range strings.FieldsFunc(n.Priority, func(r rune) bool { return r == ',' || r == ' ' }) {
		switch token {
		case "left", "right", "top", "bottom":
		default:
			return fmt.Errorf("navigator.priority has unknown preference %q", token)
		}
	}
	return nil
}

var validCommands = map[string]bool{"left": true, "up": true, "right": true, "down": true, "click": true}

// Validate checks the input options.
func (i InputConfig) Validate() error {
	for key, cmd := range i.Keys {
		if !validCommands[strings.ToLower(cmd)] {
			return fmt.Errorf("input.keys[%s] has unknown command %q", key, cmd)
		}
	}
	if i.RepeatRate < 0 {
		return fmt.Errorf("input.repeat_rate cannot be negative")
	}
	if i.RepeatRate > 0 && i.RepeatBurst <= 0 {
		return fmt.Errorf("input.repeat_burst must be positive when repeat_rate is set")
	}
	return nil
}
