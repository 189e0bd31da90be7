// Package config provides configuration management for the race reels worker.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("ledgerbackend", validateLedgerBackend)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateLedgerBackend(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case LedgerBackendPostgres, LedgerBackendDynamoDB, LedgerBackendSQLite:
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	switch cfg.Ledger.Backend {
	case LedgerBackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("postgres ledger requires database host, name and user")
		}
		if cfg.Database.Port == 0 {
			return fmt.Errorf("postgres ledger requires a database port")
		}
	case LedgerBackendDynamoDB:
		if cfg.DynamoDB.SightingTable == "" || cfg.DynamoDB.EventIndex == "" {
			return fmt.Errorf("dynamodb ledger requires sighting_table and event_index")
		}
		if cfg.Status.Enabled && cfg.DynamoDB.StatusTable == "" {
			return fmt.Errorf("dynamodb status tracking requires status_table")
		}
	case LedgerBackendSQLite:
		if cfg.SQLite.Path == "" {
			return fmt.Errorf("sqlite ledger requires a path")
		}
	}

	if cfg.Storage.Backend == StorageBackendLocal && cfg.Storage.LocalRoot == "" {
		return fmt.Errorf("local storage backend requires local_root")
	}

	if cfg.Secrets.Enabled && (cfg.Secrets.Region == "" || cfg.Secrets.SecretName == "") {
		return fmt.Errorf("secrets overlay requires region and secret_name")
	}

	if cfg.IsProduction() {
		if cfg.Ledger.Backend == LedgerBackendSQLite {
			return fmt.Errorf("production environment cannot use the sqlite ledger")
		}
		if cfg.Ledger.Backend == LedgerBackendPostgres && cfg.Database.SSLMode == "disable" {
			return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max", "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "ledgerbackend":
			fmt.Fprintf(&b, "- Field '%s' must be one of: postgres, dynamodb, sqlite\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
