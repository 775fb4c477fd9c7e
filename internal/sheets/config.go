// Package sheets publishes the goal export tables to a Google spreadsheet.
package sheets

import (
	"fmt"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/Veraticus/goalpost/internal/config"
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  "Savings Goals",
		TimeZone:         "UTC",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// FromSettings builds a writer config from the loaded application settings.
func FromSettings(s config.SheetsSettings) Config {
	c := DefaultConfig()
	c.ClientID = s.ClientID
	c.ClientSecret = s.ClientSecret
	c.RefreshToken = s.RefreshToken
	c.TokenFile = s.TokenFile
	c.ServiceAccountPath = s.ServiceAccountPath
	c.SpreadsheetID = s.SpreadsheetID
	if s.SpreadsheetName != "" {
		c.SpreadsheetName = s.SpreadsheetName
	}
	if s.TimeZone != "" {
		c.TimeZone = s.TimeZone
	}
	return c
}

// hasOAuth reports whether an OAuth client is configured. The refresh
// token may come from config or from the saved token file.
func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasServiceAccount := c.ServiceAccountPath != ""

	if !c.hasOAuth() && !hasServiceAccount {
		return fmt.Errorf("%w: no Google Sheets authentication configured; set sheets.service_account_path or sheets.client_id and sheets.client_secret", common.ErrMissingConfig)
	}

	if c.hasOAuth() && hasServiceAccount {
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or a service account", common.ErrInvalidConfig)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", common.ErrInvalidConfig)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}

	return nil
}
