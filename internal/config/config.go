package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort         = 8000
	DefaultModelDir         = "models"
	DefaultMachines         = 5
	DefaultTickInterval     = 2 * time.Second
	DefaultFailureThreshold = 0.6
	DefaultVerdictTTL       = 5 * time.Minute
)

// Config is the top-level configuration parsed from config.yaml.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Simulation SimulationConfig `yaml:"simulation"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Sensors    SensorRanges     `yaml:"sensor_ranges"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8000).
	HTTPPort int `yaml:"http_port"`

	// ModelDir is the directory holding the frozen model artifact
	// (model_metadata.json, <model_name>.json, label_encoder.json).
	ModelDir string `yaml:"model_dir"`

	// Auth configures how incoming HTTP clients authenticate.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SimulationConfig holds fleet simulation settings.
type SimulationConfig struct {
	// Machines is the number of simulated machines in the fleet (default 5).
	Machines int `yaml:"machines"`

	// TickInterval controls how often the continuous simulation loop
	// generates a fleet-wide set of readings (default 2s).
	TickInterval time.Duration `yaml:"tick_interval"`

	// Seed seeds the simulator's random source. Zero means time-seeded.
	Seed int64 `yaml:"seed"`

	// VerdictTTL is how long a machine's latest verdict remains in the
	// in-memory store after its last update (default 5m).
	VerdictTTL time.Duration `yaml:"verdict_ttl"`
}

// MonitoringConfig holds the health classification policy.
type MonitoringConfig struct {
	// FailureThreshold is the failure probability at or above which the
	// alert flag is raised (default 0.6).
	FailureThreshold float64 `yaml:"failure_threshold"`

	// HealthBands maps failure probability intervals to named bands.
	// Intervals are half-open [min, max); the last band includes its max.
	HealthBands []Band `yaml:"health_bands"`
}

// Band is one health-status interval.
type Band struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// Range is a closed physical range for one sensor.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// SensorRanges holds the valid physical range for each simulated sensor.
// All generated readings are clamped to these before leaving the simulator.
type SensorRanges struct {
	AirTemperature     Range `yaml:"air_temperature"`
	ProcessTemperature Range `yaml:"process_temperature"`
	RotationalSpeed    Range `yaml:"rotational_speed"`
	Torque             Range `yaml:"torque"`
	ToolWear           Range `yaml:"tool_wear"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "failure_probability >= 0.6",
	// "tool_wear > 200", "band == maintenance_required".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. The sensor
// ranges and health bands match the dataset the frozen classifier was
// trained on, so overriding them is rarely needed.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			HTTPPort: DefaultHTTPPort,
			ModelDir: DefaultModelDir,
		},
		Simulation: SimulationConfig{
			Machines:     DefaultMachines,
			TickInterval: DefaultTickInterval,
			VerdictTTL:   DefaultVerdictTTL,
		},
		Monitoring: MonitoringConfig{
			FailureThreshold: DefaultFailureThreshold,
			HealthBands: []Band{
				{Name: "healthy", Min: 0, Max: 0.3},
				{Name: "risk", Min: 0.3, Max: 0.6},
				{Name: "maintenance_required", Min: 0.6, Max: 1.0},
			},
		},
		Sensors: SensorRanges{
			AirTemperature:     Range{Min: 295, Max: 304},
			ProcessTemperature: Range{Min: 305, Max: 313},
			RotationalSpeed:    Range{Min: 1200, Max: 2500},
			Torque:             Range{Min: 15, Max: 70},
			ToolWear:           Range{Min: 0, Max: 250},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Service.HTTPPort <= 0 || cfg.Service.HTTPPort > 65535 {
		return fmt.Errorf("service.http_port %d is out of range [1, 65535]", cfg.Service.HTTPPort)
	}
	switch cfg.Service.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("service.auth.mode %q unknown: want apikey|none", cfg.Service.Auth.Mode)
	}
	if cfg.Simulation.Machines < 1 {
		return fmt.Errorf("simulation.machines must be at least 1, got %d", cfg.Simulation.Machines)
	}
	if cfg.Simulation.TickInterval <= 0 {
		return fmt.Errorf("simulation.tick_interval must be positive")
	}
	if cfg.Simulation.VerdictTTL < 0 {
		return fmt.Errorf("simulation.verdict_ttl must not be negative")
	}
	if cfg.Monitoring.FailureThreshold < 0 || cfg.Monitoring.FailureThreshold > 1 {
		return fmt.Errorf("monitoring.failure_threshold %v is out of range [0, 1]", cfg.Monitoring.FailureThreshold)
	}
	if err := validateBands(cfg.Monitoring.HealthBands); err != nil {
		return err
	}
	for _, r := range []struct {
		name string
		rng  Range
	}{
		{"air_temperature", cfg.Sensors.AirTemperature},
		{"process_temperature", cfg.Sensors.ProcessTemperature},
		{"rotational_speed", cfg.Sensors.RotationalSpeed},
		{"torque", cfg.Sensors.Torque},
		{"tool_wear", cfg.Sensors.ToolWear},
	} {
		if r.rng.Min >= r.rng.Max {
			return fmt.Errorf("sensor_ranges.%s: min %v must be below max %v", r.name, r.rng.Min, r.rng.Max)
		}
	}
	return nil
}

// validateBands requires the band table to tile [0, 1] contiguously so that
// every probability maps to exactly one band. A table with gaps or overlaps
// is a misconfiguration caught at load time, not at classification time.
func validateBands(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("monitoring.health_bands must not be empty")
	}
	if bands[0].Min != 0 {
		return fmt.Errorf("monitoring.health_bands: first band must start at 0, got %v", bands[0].Min)
	}
	for i, b := range bands {
		if b.Name == "" {
			return fmt.Errorf("monitoring.health_bands[%d]: name must not be empty", i)
		}
		if b.Min >= b.Max {
			return fmt.Errorf("monitoring.health_bands[%d] %q: min %v must be below max %v", i, b.Name, b.Min, b.Max)
		}
		if i > 0 && b.Min != bands[i-1].Max {
			return fmt.Errorf("monitoring.health_bands[%d] %q: starts at %v but previous band ends at %v",
				i, b.Name, b.Min, bands[i-1].Max)
		}
	}
	if last := bands[len(bands)-1]; last.Max != 1 {
		return fmt.Errorf("monitoring.health_bands: last band must end at 1, got %v", last.Max)
	}
	return nil
}
