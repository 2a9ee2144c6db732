package config

type Config struct {
	Server Server   `mapstructure:"server"`
	Audit  Audit    `mapstructure:"audit"`
	Probe  Probe    `mapstructure:"probe"`
	Sites  []Site   `mapstructure:"sites"`
	Hosts  []Host   `mapstructure:"hosts"`
	Report Report   `mapstructure:"report"`
	Logger Logger   `mapstructure:"logger"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type Audit struct {
	MaxWorkers       int `mapstructure:"max_workers"`
	MaxSitemapDepth  int `mapstructure:"max_sitemap_depth"`
	MaxURLsPerLeaf   int `mapstructure:"max_urls_per_leaf"`
	SoftCheckWorkers int `mapstructure:"soft_check_workers"`
}

type Probe struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	BaseDelayMs    int     `mapstructure:"base_delay_ms"`
	MaxDelayMs     int     `mapstructure:"max_delay_ms"`
	BackoffFactor  float64 `mapstructure:"backoff_factor"`
}

type Site struct {
	ID       string   `mapstructure:"id"`
	Sitemaps []string `mapstructure:"sitemaps"`
	Enabled  bool     `mapstructure:"enabled"`
}

// Host attaches extra request headers to every probe whose hostname ends
// with Suffix. Replaces per-domain special cases in code.
type Host struct {
	Suffix  string            `mapstructure:"suffix"`
	Headers map[string]string `mapstructure:"headers"`
}

type Report struct {
	OutputDir string `mapstructure:"output_dir"`
}

type Logger struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}

// Default returns a config usable without a config file; flags and
// environment variables fill in the rest.
func Default() *Config {
	return &Config{
		Server: Server{Host: "0.0.0.0", Port: 8080},
		Audit: Audit{
			MaxWorkers:       10,
			MaxSitemapDepth:  5,
			MaxURLsPerLeaf:   100000,
			SoftCheckWorkers: 4,
		},
		Probe: Probe{
			TimeoutSeconds: 15,
			MaxAttempts:    4,
			BaseDelayMs:    500,
			MaxDelayMs:     10000,
			BackoffFactor:  2.0,
		},
		Report: Report{OutputDir: "./reports"},
		Logger: Logger{Level: "info", Format: "json", Output: "stdout"},
	}
}
