// Package config provides configuration management for toribot.
// It uses Viper for flexible configuration loading with support for
// YAML files, environment variables and default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete toribot configuration.
type Config struct {
	Telegram    TelegramConfig     `mapstructure:"telegram" yaml:"telegram"`
	Logging     LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Datasources []DatasourceConfig `mapstructure:"datasources" yaml:"datasources"`
	Questions   QuestionsConfig    `mapstructure:"questions" yaml:"questions"`
	Pages       PagesConfig        `mapstructure:"pages" yaml:"pages"`
	State       StateConfig        `mapstructure:"state" yaml:"state"`
	Responses   ResponsesConfig    `mapstructure:"responses" yaml:"responses"`
	Users       []UserConfig       `mapstructure:"users" yaml:"users"`
	Permissions []PermissionConfig `mapstructure:"permissions" yaml:"permissions"`
}

// UserConfig seeds one known user.
type UserConfig struct {
	TelegramID int64    `mapstructure:"telegram_id" yaml:"telegram_id"`
	Name       string   `mapstructure:"name" yaml:"name"`
	Admin      bool     `mapstructure:"admin" yaml:"admin"`
	Roles      []string `mapstructure:"roles" yaml:"roles"`
}

// PermissionConfig links an action to users and roles.
type PermissionConfig struct {
	Action    string   `mapstructure:"action" yaml:"action"`
	Telegrams []int64  `mapstructure:"telegram_ids" yaml:"telegram_ids"`
	Roles     []string `mapstructure:"roles" yaml:"roles"`
}

// ResponsesConfig carries the built-in reply texts.
type ResponsesConfig struct {
	// DefaultEnabled controls whether unmatched messages get a reply.
	DefaultEnabled bool `mapstructure:"default_enabled" yaml:"default_enabled"`

	// DefaultMessage is sent when no handler matches a message.
	DefaultMessage string `mapstructure:"default_message" yaml:"default_message"`

	// ErrorMessage is sent when handling a message fails unexpectedly.
	ErrorMessage string `mapstructure:"error_message" yaml:"error_message"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token          string `mapstructure:"token" yaml:"token"`
	Proxy          string `mapstructure:"proxy" yaml:"proxy"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	File        string `mapstructure:"file" yaml:"file"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Datasource type tags. The datasources section is a tagged union keyed by
// "type"; unknown tags are rejected at load time.
const (
	DatasourceSQLite   = "sqlite"
	DatasourcePostgres = "postgres"
)

// DatasourceConfig describes one configured datasource. Which fields apply
// depends on Type.
type DatasourceConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"`

	// sqlite
	Path string `mapstructure:"path" yaml:"path"`

	// postgres
	Host           string `mapstructure:"host" yaml:"host"`
	Port           int    `mapstructure:"port" yaml:"port"`
	Database       string `mapstructure:"database" yaml:"database"`
	User           string `mapstructure:"user" yaml:"user"`
	Password       string `mapstructure:"password" yaml:"password"`
	MinPoolSize    int    `mapstructure:"min_pool_size" yaml:"min_pool_size"`
	MaxPoolSize    int    `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// QuestionsConfig carries the default texts and value sets for questions.
// They are passed explicitly into question constructors by the bot; nothing
// reads them from ambient state.
type QuestionsConfig struct {
	BoolTrueValues         []string `mapstructure:"bool_true_values" yaml:"bool_true_values"`
	BoolFalseValues        []string `mapstructure:"bool_false_values" yaml:"bool_false_values"`
	BoolErrorText          string   `mapstructure:"bool_error_text" yaml:"bool_error_text"`
	IntegerErrorText       string   `mapstructure:"integer_error_text" yaml:"integer_error_text"`
	ChoiceErrorText        string   `mapstructure:"choice_error_text" yaml:"choice_error_text"`
	DynamicChoiceErrorText string   `mapstructure:"dynamic_choice_error_text" yaml:"dynamic_choice_error_text"`
	DatetimeErrorText      string   `mapstructure:"datetime_error_text" yaml:"datetime_error_text"`
	DateErrorText          string   `mapstructure:"date_error_text" yaml:"date_error_text"`
	TimeErrorText          string   `mapstructure:"time_error_text" yaml:"time_error_text"`
	FileErrorText          string   `mapstructure:"file_error_text" yaml:"file_error_text"`
	ImageErrorText         string   `mapstructure:"image_error_text" yaml:"image_error_text"`
	RemoveKeyboardText     string   `mapstructure:"remove_keyboard_text" yaml:"remove_keyboard_text"`
}

// PagesConfig configures paginated messages.
type PagesConfig struct {
	ItemsPerPage   int    `mapstructure:"items_per_page" yaml:"items_per_page"`
	ExpirationDays int    `mapstructure:"expiration_days" yaml:"expiration_days"`
	SweepSchedule  string `mapstructure:"sweep_schedule" yaml:"sweep_schedule"`
}

// StateConfig configures the scratch/state store backend.
type StateConfig struct {
	Backend  string      `mapstructure:"backend" yaml:"backend"` // memory, file, redis
	FilePath string      `mapstructure:"file_path" yaml:"file_path"`
	Redis    RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the redis state backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Telegram: TelegramConfig{
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Questions: QuestionsConfig{
			BoolTrueValues:         []string{"true", "yes", "y", "1"},
			BoolFalseValues:        []string{"false", "no", "n", "0"},
			BoolErrorText:          "Please answer yes or no.",
			IntegerErrorText:       "Please enter a valid whole number.",
			ChoiceErrorText:        "Please pick one of the offered options.",
			DynamicChoiceErrorText: "Please pick one of the offered options.",
			DatetimeErrorText:      "Please enter a valid date and time.",
			DateErrorText:          "Please enter a valid date.",
			TimeErrorText:          "Please enter a valid time.",
			FileErrorText:          "Please upload a valid file.",
			ImageErrorText:         "Please upload a valid image.",
			RemoveKeyboardText:     "Removing keyboard...",
		},
		Pages: PagesConfig{
			ItemsPerPage:   5,
			ExpirationDays: 7,
			SweepSchedule:  "@hourly",
		},
		State: StateConfig{
			Backend:  "memory",
			FilePath: filepath.Join(homeDir, ".toribot", "state.json"),
		},
		Responses: ResponsesConfig{
			DefaultEnabled: true,
			DefaultMessage: "I did not understand that. Use the command menu to see what I can do.",
			ErrorMessage:   "Sorry, something went wrong while handling your request.",
		},
	}
}

// Validate checks the configuration for structural errors. Datasource
// entries form a tagged union on Type and are validated here, at load time.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Datasources))
	for i, ds := range c.Datasources {
		if ds.Name == "" {
			return fmt.Errorf("datasources[%d]: name is required", i)
		}
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("datasources[%d]: duplicate datasource name %q", i, ds.Name)
		}
		seen[ds.Name] = struct{}{}

		switch ds.Type {
		case DatasourceSQLite:
			if ds.Path == "" {
				return fmt.Errorf("datasource %q: sqlite requires a path", ds.Name)
			}
		case DatasourcePostgres:
			if ds.Database == "" {
				return fmt.Errorf("datasource %q: postgres requires a database", ds.Name)
			}
		default:
			return fmt.Errorf("datasource %q: unknown type %q", ds.Name, ds.Type)
		}
	}

	switch c.State.Backend {
	case "", "memory", "file":
	case "redis":
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("state: redis backend requires an addr")
		}
	default:
		return fmt.Errorf("state: unknown backend %q", c.State.Backend)
	}

	if c.Pages.ItemsPerPage < 1 {
		return fmt.Errorf("pages: items_per_page must be at least 1")
	}
	if c.Pages.ExpirationDays < 1 {
		return fmt.Errorf("pages: expiration_days must be at least 1")
	}

	return nil
}
