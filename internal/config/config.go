package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "5m" style values in YAML, or a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := value.Value
	if dur, err := time.ParseDuration(s); err == nil {
		*d = Duration(dur)
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration %q", s)
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type StoreConfig struct {
	// Driver is "file" (JSON keyed by username) or "postgres".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret        string   `yaml:"jwt_secret"`
	TwoFactor        bool     `yaml:"two_factor"`
	MaxLoginAttempts int      `yaml:"max_login_attempts"`
	SessionTTL       Duration `yaml:"session_ttl"`
}

type VerificationConfig struct {
	CodeLength      int      `yaml:"code_length"`
	TTL             Duration `yaml:"ttl"`
	MaxCodeAttempts int      `yaml:"max_code_attempts"`
	MaxResends      int      `yaml:"max_resends"`
	ResendWindow    Duration `yaml:"resend_window"`
}

type NotifierConfig struct {
	// Channel is "email", "telegram" or "simulation".
	Channel string `yaml:"channel"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Auth         AuthConfig         `yaml:"auth"`
	Verification VerificationConfig `yaml:"verification"`
	Notifier     NotifierConfig     `yaml:"notifier"`
	Email        struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
	} `yaml:"telegram"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) ApplyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = "user_database.json"
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		c.Auth.MaxLoginAttempts = 3
	}
	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = Duration(15 * time.Minute)
	}
	if c.Verification.CodeLength <= 0 {
		c.Verification.CodeLength = 6
	}
	if c.Verification.TTL <= 0 {
		c.Verification.TTL = Duration(5 * time.Minute)
	}
	if c.Verification.MaxCodeAttempts <= 0 {
		c.Verification.MaxCodeAttempts = 3
	}
	if c.Verification.MaxResends <= 0 {
		c.Verification.MaxResends = 3
	}
	if c.Verification.ResendWindow <= 0 {
		c.Verification.ResendWindow = Duration(10 * time.Minute)
	}
	if c.Notifier.Channel == "" {
		c.Notifier.Channel = "simulation"
	}
}
