package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Telegram struct {
		Token   string `yaml:"token"`
		AdminID int64  `yaml:"admin_id"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Payment struct {
		BaseURL      string `yaml:"base_url"`
		SecretKey    string `yaml:"secret_key"`
		CallbackURL  string `yaml:"callback_url"`
		PremiumPrice int64  `yaml:"premium_price"`
	} `yaml:"payment"`
	Trivia struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"trivia"`
	Quiz struct {
		BankTTL string `yaml:"bank_ttl"`
	} `yaml:"quiz"`
	Payout struct {
		CheckInterval string `yaml:"check_interval"`
	} `yaml:"payout"`
}

// Load reads YAML config from path, then applies environment overrides for
// secrets so they stay out of the config file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_ADMIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.AdminID = id
		}
	}
	if v := os.Getenv("CHAPA_SECRET_KEY"); v != "" {
		c.Payment.SecretKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = "https://api.chapa.co"
	}
	if c.Payment.PremiumPrice == 0 {
		c.Payment.PremiumPrice = 100
	}
	if c.Trivia.BaseURL == "" {
		c.Trivia.BaseURL = "https://opentdb.com"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
