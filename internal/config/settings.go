package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Rate sources.
const (
	RateSourceStatic = "static"
	RateSourceCBR    = "cbr"
)

// DefaultCBRURL serves the daily quote sheet of the Central Bank of Russia.
const DefaultCBRURL = "https://www.cbr.ru/scripts/XML_daily.asp"

// Settings is the explicit configuration threaded through the planner,
// execution tracker and automation scheduler.
type Settings struct {
	Rates        RateSettings
	Balances     BalanceSettings
	Sheets       SheetsSettings
	Planning     PlanningSettings
	Automation   AutomationSettings
	DatabasePath string
	Execution    ExecutionSettings
}

// PlanningSettings controls budget planning. A nil MonthlyBudget selects
// per-goal mode.
type PlanningSettings struct {
	MonthlyBudget *decimal.Decimal
	Currency      string
	PaymentDay    int
	HorizonMonths int
}

// FixedBudget reports whether a single monthly budget is configured.
func (p PlanningSettings) FixedBudget() bool {
	return p.MonthlyBudget != nil
}

// ExecutionSettings controls the monthly execution tracker.
type ExecutionSettings struct {
	// UndoGracePeriod is how long a transition can be undone. Zero
	// disables undo.
	UndoGracePeriod time.Duration
}

// AutomationSettings controls the calendar trigger.
type AutomationSettings struct {
	Schedule     string
	MaxAttempts  int
	AutoStart    bool
	AutoComplete bool
}

// RateSettings selects and configures the exchange-rate source.
type RateSettings struct {
	Static   map[string]decimal.Decimal
	Source   string
	CBRURL   string
	CacheTTL time.Duration
}

// BalanceSettings points the on-chain refresh at a balance endpoint. URL
// may contain {chain} and {address} placeholders.
type BalanceSettings struct {
	URL     string
	Timeout time.Duration
}

// SheetsSettings holds Google Sheets export credentials. Either a service
// account key or an OAuth client with a refresh token or token file is
// required, but only when exporting.
type SheetsSettings struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
}

// Default returns the default configuration.
func Default() Settings {
	return Settings{
		DatabasePath: "$HOME/.local/share/goalpost/goalpost.db",
		Planning: PlanningSettings{
			Currency:      "USD",
			PaymentDay:    1,
			HorizonMonths: 120,
		},
		Execution: ExecutionSettings{
			UndoGracePeriod: 24 * time.Hour,
		},
		Automation: AutomationSettings{
			Schedule:    "0 9 * * *",
			MaxAttempts: 3,
		},
		Rates: RateSettings{
			Source:   RateSourceStatic,
			CBRURL:   DefaultCBRURL,
			CacheTTL: 15 * time.Minute,
			Static:   map[string]decimal.Decimal{},
		},
		Balances: BalanceSettings{
			Timeout: 10 * time.Second,
		},
		Sheets: SheetsSettings{
			TokenFile:       "$HOME/.config/goalpost/sheets_token.json",
			SpreadsheetName: "Savings Goals",
			TimeZone:        "UTC",
		},
	}
}

// SetDefaults registers the default values with v so that env and file
// overrides layer on top of them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.path", d.DatabasePath)
	v.SetDefault("planning.monthly_budget", "")
	v.SetDefault("planning.currency", d.Planning.Currency)
	v.SetDefault("planning.payment_day", d.Planning.PaymentDay)
	v.SetDefault("planning.horizon_months", d.Planning.HorizonMonths)
	v.SetDefault("execution.undo_grace_hours", int(d.Execution.UndoGracePeriod/time.Hour))
	v.SetDefault("automation.schedule", d.Automation.Schedule)
	v.SetDefault("automation.max_attempts", d.Automation.MaxAttempts)
	v.SetDefault("automation.auto_start", false)
	v.SetDefault("automation.auto_complete", false)
	v.SetDefault("rates.source", d.Rates.Source)
	v.SetDefault("rates.cbr_url", d.Rates.CBRURL)
	v.SetDefault("rates.cache_ttl", d.Rates.CacheTTL)
	v.SetDefault("balances.url", "")
	v.SetDefault("balances.timeout", d.Balances.Timeout)
	v.SetDefault("sheets.client_id", "")
	v.SetDefault("sheets.client_secret", "")
	v.SetDefault("sheets.refresh_token", "")
	v.SetDefault("sheets.token_file", d.Sheets.TokenFile)
	v.SetDefault("sheets.service_account_path", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.spreadsheet_name", d.Sheets.SpreadsheetName)
	v.SetDefault("sheets.time_zone", d.Sheets.TimeZone)
}

// Load reads Settings from v, falling back to defaults for unset keys.
func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	s := Default()
	s.DatabasePath = ExpandPath(v.GetString("database.path"))

	if raw := strings.TrimSpace(v.GetString("planning.monthly_budget")); raw != "" {
		budget, err := decimal.NewFromString(raw)
		if err != nil {
			return s, fmt.Errorf("%w: planning.monthly_budget %q: %v", common.ErrInvalidConfig, raw, err)
		}
		s.Planning.MonthlyBudget = &budget
	}
	s.Planning.Currency = strings.ToUpper(strings.TrimSpace(v.GetString("planning.currency")))
	s.Planning.PaymentDay = v.GetInt("planning.payment_day")
	s.Planning.HorizonMonths = v.GetInt("planning.horizon_months")

	s.Execution.UndoGracePeriod = time.Duration(v.GetInt("execution.undo_grace_hours")) * time.Hour

	s.Automation.Schedule = v.GetString("automation.schedule")
	s.Automation.MaxAttempts = v.GetInt("automation.max_attempts")
	s.Automation.AutoStart = v.GetBool("automation.auto_start")
	s.Automation.AutoComplete = v.GetBool("automation.auto_complete")

	s.Rates.Source = strings.ToLower(v.GetString("rates.source"))
	s.Rates.CBRURL = v.GetString("rates.cbr_url")
	s.Rates.CacheTTL = v.GetDuration("rates.cache_ttl")
	s.Balances.URL = strings.TrimSpace(v.GetString("balances.url"))
	s.Balances.Timeout = v.GetDuration("balances.timeout")

	s.Sheets.ClientID = v.GetString("sheets.client_id")
	s.Sheets.ClientSecret = v.GetString("sheets.client_secret")
	s.Sheets.RefreshToken = v.GetString("sheets.refresh_token")
	s.Sheets.TokenFile = ExpandPath(v.GetString("sheets.token_file"))
	s.Sheets.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	s.Sheets.SpreadsheetID = strings.TrimSpace(v.GetString("sheets.spreadsheet_id"))
	s.Sheets.SpreadsheetName = v.GetString("sheets.spreadsheet_name")
	s.Sheets.TimeZone = v.GetString("sheets.time_zone")

	for pair, raw := range v.GetStringMapString("rates.static") {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return s, fmt.Errorf("%w: rates.static[%s] %q: %v", common.ErrInvalidConfig, pair, raw, err)
		}
		s.Rates.Static[strings.ToUpper(pair)] = rate
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate rejects settings the planner cannot work with.
func (s Settings) Validate() error {
	if s.Planning.Currency == "" {
		return fmt.Errorf("%w: planning.currency cannot be empty", common.ErrInvalidConfig)
	}
	if s.Planning.MonthlyBudget != nil && s.Planning.MonthlyBudget.IsNegative() {
		return fmt.Errorf("%w: planning.monthly_budget cannot be negative", common.ErrInvalidConfig)
	}
	if s.Planning.PaymentDay < 1 || s.Planning.PaymentDay > 28 {
		return fmt.Errorf("%w: planning.payment_day must be between 1 and 28, got %d", common.ErrInvalidConfig, s.Planning.PaymentDay)
	}
	if s.Planning.HorizonMonths < 1 {
		return fmt.Errorf("%w: planning.horizon_months must be positive", common.ErrInvalidConfig)
	}
	if s.Execution.UndoGracePeriod < 0 {
		return fmt.Errorf("%w: execution.undo_grace_hours cannot be negative", common.ErrInvalidConfig)
	}
	if s.Automation.MaxAttempts < 1 {
		return fmt.Errorf("%w: automation.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if s.Balances.Timeout <= 0 {
		return fmt.Errorf("%w: balances.timeout must be positive", common.ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(s.Sheets.TimeZone); err != nil {
		return fmt.Errorf("%w: sheets.time_zone %q: %v", common.ErrInvalidConfig, s.Sheets.TimeZone, err)
	}
	switch s.Rates.Source {
	case RateSourceStatic:
	case RateSourceCBR:
		if s.Rates.CBRURL == "" {
			return fmt.Errorf("%w: rates.cbr_url is required for the cbr source", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown rates.source %q", common.ErrInvalidConfig, s.Rates.Source)
	}
	for pair, rate := range s.Rates.Static {
		if len(strings.Split(pair, "/")) != 2 {
			return fmt.Errorf("%w: rates.static key %q must look like FROM/TO", common.ErrInvalidConfig, pair)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("%w: rates.static[%s] must be positive", common.ErrInvalidConfig, pair)
		}
	}
	return nil
}
