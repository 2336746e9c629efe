// Package config loads the process configuration for the invoicing
// library: numbering, taxation and persistence settings. Only the
// values matter to the core; the loading mechanics live here.
package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/infrastructure/numbering"
)

// Config holds all library configuration
type Config struct {
	Numbering NumberingConfig
	Taxation  TaxationConfig
	Supplier  SupplierConfig
	Database  DatabaseConfig
	Log       LogConfig
}

// NumberingConfig holds the sequence and full-number settings
type NumberingConfig struct {
	// CounterPeriod controls when the sequence resets: DAILY, MONTHLY
	// or YEARLY
	CounterPeriod invoicing.CounterPeriod
	// NumberFormat is the full-number template, rendered against the
	// invoice's field values
	NumberFormat string
}

// TaxationConfig holds the taxation policy settings
type TaxationConfig struct {
	// Policy optionally names a registered taxation policy
	Policy string
	// DefaultRate is the global default VAT rate in percent
	DefaultRate decimal.Decimal
	// Currency is the default invoice currency (ISO 4217)
	Currency string
}

// SupplierConfig holds the default supplier identity used when the
// caller does not provide one
type SupplierConfig struct {
	Name           string
	Street         string
	Zip            string
	City           string
	Country        string
	RegistrationID string
	TaxID          string
	VATID          string
	BankName       string
	BankIBAN       string
	BankSwiftBIC   string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with INVOICING_ prefix
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("INVOICING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	rate, err := decimal.NewFromString(v.GetString("taxation.default_rate"))
	if err != nil {
		return nil, fmt.Errorf("invalid taxation.default_rate: %w", err)
	}

	cfg := &Config{
		Numbering: NumberingConfig{
			CounterPeriod: invoicing.CounterPeriod(strings.ToUpper(v.GetString("numbering.counter_period"))),
			NumberFormat:  v.GetString("numbering.number_format"),
		},
		Taxation: TaxationConfig{
			Policy:      v.GetString("taxation.policy"),
			DefaultRate: rate,
			Currency:    v.GetString("taxation.currency"),
		},
		Supplier: SupplierConfig{
			Name:           v.GetString("supplier.name"),
			Street:         v.GetString("supplier.street"),
			Zip:            v.GetString("supplier.zip"),
			City:           v.GetString("supplier.city"),
			Country:        v.GetString("supplier.country"),
			RegistrationID: v.GetString("supplier.registration_id"),
			TaxID:          v.GetString("supplier.tax_id"),
			VATID:          v.GetString("supplier.vat_id"),
			BankName:       v.GetString("supplier.bank_name"),
			BankIBAN:       v.GetString("supplier.bank_iban"),
			BankSwiftBIC:   v.GetString("supplier.bank_swift_bic"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("numbering.counter_period", invoicing.DefaultCounterPeriod.String())
	v.SetDefault("numbering.number_format", invoicing.DefaultNumberFormat)

	v.SetDefault("taxation.policy", "")
	v.SetDefault("taxation.default_rate", "20")
	v.SetDefault("taxation.currency", "EUR")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.dbname", "invoicing")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.conn_max_idle_time", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

// validate fails fast on values the core would otherwise reject during
// invoice creation: an unknown counter period or an unparsable number
// format must never reach the allocator.
func (c *Config) validate() error {
	if !c.Numbering.CounterPeriod.IsValid() {
		return fmt.Errorf("numbering.counter_period must be one of DAILY, MONTHLY, YEARLY, got %q",
			c.Numbering.CounterPeriod)
	}
	if c.Numbering.NumberFormat == "" {
		return fmt.Errorf("numbering.number_format cannot be empty")
	}
	if err := numbering.NewTemplateRenderer().Validate(c.Numbering.NumberFormat); err != nil {
		return fmt.Errorf("numbering.number_format is not a valid template: %w", err)
	}
	if c.Taxation.DefaultRate.IsNegative() {
		return fmt.Errorf("taxation.default_rate cannot be negative")
	}
	return nil
}

// AllocatorConfig returns the validated numbering settings for the
// domain allocator
func (c *Config) AllocatorConfig() invoicing.NumberingConfig {
	return invoicing.NumberingConfig{
		CounterPeriod: c.Numbering.CounterPeriod,
		NumberFormat:  c.Numbering.NumberFormat,
	}
}
