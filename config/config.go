// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries everything the service needs. Values come from the
// environment (optionally seeded from a .env file); a TOML file can fill
// in fields whose environment variable is unset.
type Config struct {
	EmailUser     string        `env:"EMAIL_USER" envDefault:"your-email@gmail.com"`
	EmailPassword string        `env:"EMAIL_PASSWORD" envDefault:"your-app-password"`
	EmailHost     string        `env:"EMAIL_HOST" envDefault:"imap.gmail.com"`
	EmailPort     int           `env:"EMAIL_PORT" envDefault:"993"`
	EmailTLS      bool          `env:"EMAIL_TLS" envDefault:"true"`
	Mailbox       string        `env:"EMAIL_MAILBOX" envDefault:"INBOX"`
	WatchSubject  string        `env:"EMAIL_SUBJECT" envDefault:"Job Application Update"`
	MarkSeen      bool          `env:"EMAIL_MARK_SEEN" envDefault:"false"`
	PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`

	Port     int    `env:"PORT" envDefault:"3000"`
	Loglevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// fileConfig mirrors Config for the optional TOML file. Pointer fields
// distinguish "absent" from zero values.
type fileConfig struct {
	EmailUser     *string `toml:"EmailUser"`
	EmailPassword *string `toml:"EmailPassword"`
	EmailHost     *string `toml:"EmailHost"`
	EmailPort     *int    `toml:"EmailPort"`
	EmailTLS      *bool   `toml:"EmailTLS"`
	Mailbox       *string `toml:"Mailbox"`
	WatchSubject  *string `toml:"WatchSubject"`
	MarkSeen      *bool   `toml:"MarkSeen"`
	PollInterval  *string `toml:"PollInterval"`

	OpenAIKey     *string `toml:"OpenAIKey"`
	OpenAIModel   *string `toml:"OpenAIModel"`
	OpenAIBaseURL *string `toml:"OpenAIBaseURL"`

	Port     *int    `toml:"Port"`
	Loglevel *string `toml:"Loglevel"`
}

const defaultConfigFile = "mailwatch.toml"

// Load resolves the configuration with precedence environment > config
// file > built-in default, then validates it.
func Load() (*Config, error) {
	// A missing .env file is fine, the environment may be set directly.
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("could not parse environment: %w", err)
	}

	if err := config.applyFile(); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyFile() error {
	filename, explicit := os.LookupEnv("MAILWATCH_CONFIG")
	if !explicit {
		filename = defaultConfigFile
	}

	fc := &fileConfig{}
	if _, err := toml.DecodeFile(filename, fc); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read config file %s: %w", filename, err)
	}

	// The environment always wins over the file.
	setString := func(envName string, target *string, value *string) {
		if value == nil {
			return
		}
		if _, set := os.LookupEnv(envName); set {
			return
		}
		*target = *value
	}
	setInt := func(envName string, target *int, value *int) {
		if value == nil {
			return
		}
		if _, set := os.LookupEnv(envName); set {
			return
		}
		*target = *value
	}
	setBool := func(envName string, target *bool, value *bool) {
		if value == nil {
			return
		}
		if _, set := os.LookupEnv(envName); set {
			return
		}
		*target = *value
	}

	setString("EMAIL_USER", &c.EmailUser, fc.EmailUser)
	setString("EMAIL_PASSWORD", &c.EmailPassword, fc.EmailPassword)
	setString("EMAIL_HOST", &c.EmailHost, fc.EmailHost)
	setInt("EMAIL_PORT", &c.EmailPort, fc.EmailPort)
	setBool("EMAIL_TLS", &c.EmailTLS, fc.EmailTLS)
	setString("EMAIL_MAILBOX", &c.Mailbox, fc.Mailbox)
	setString("EMAIL_SUBJECT", &c.WatchSubject, fc.WatchSubject)
	setBool("EMAIL_MARK_SEEN", &c.MarkSeen, fc.MarkSeen)
	setString("OPENAI_API_KEY", &c.OpenAIKey, fc.OpenAIKey)
	setString("OPENAI_MODEL", &c.OpenAIModel, fc.OpenAIModel)
	setString("OPENAI_BASE_URL", &c.OpenAIBaseURL, fc.OpenAIBaseURL)
	setInt("PORT", &c.Port, fc.Port)
	setString("LOG_LEVEL", &c.Loglevel, fc.Loglevel)

	if fc.PollInterval != nil {
		if _, set := os.LookupEnv("POLL_INTERVAL"); !set {
			d, err := time.ParseDuration(*fc.PollInterval)
			if err != nil {
				return fmt.Errorf("could not parse PollInterval from config file: %w", err)
			}
			c.PollInterval = d
		}
	}

	return nil
}

func (c *Config) validate() error {
	if err := validateNonEmptyStringField(c.OpenAIKey, "OPENAI_API_KEY must not be empty, set to an API key for the classifier endpoint"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.EmailUser, "EMAIL_USER must not be empty, set to the login name on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.EmailPassword, "EMAIL_PASSWORD must not be empty, set to the password of EMAIL_USER on the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.EmailHost, "EMAIL_HOST must not be empty, set to the hostname of the imap server"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.WatchSubject, "EMAIL_SUBJECT must not be empty, set to the subject line to watch for"); err != nil {
		return err
	}

	if c.EmailPort < 1 || c.EmailPort > 65535 {
		return fmt.Errorf("EMAIL_PORT %d is not a valid port", c.EmailPort)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is not a valid port", c.Port)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}

// ImapAddr returns the host:port the imap adapter dials.
func (c *Config) ImapAddr() string {
	return net.JoinHostPort(c.EmailHost, strconv.Itoa(c.EmailPort))
}

// ListenAddr returns the bind address of the control surface.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
