package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentStaging     = "staging"
)

var environmentAliases = map[string]string{
	"prod": environmentProduction,
	"stag": environmentStaging,
}

// AppEnvironment reads the application environment from APP_ENV and defaults
// to development when no value is provided. Common abbreviations are
// normalised so callers can rely on a consistent identifier.
func AppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// IsProductionLike reports whether the provided environment should behave
// like a production deployment.
func IsProductionLike(env string) bool {
	switch env {
	case environmentProduction, environmentStaging:
		return true
	default:
		return false
	}
}

// RunParams carries the per-run parameters an operator supplies through the
// environment: manual metal rates, product handle filters, and the diamond
// price source for the diamond workflow.
type RunParams struct {
	GoldRate   *decimal.Decimal
	SilverRate *decimal.Decimal

	// IncludeHandles limits processing to the listed product handles.
	// ExcludeHandles removes handles and takes precedence over the include
	// list.
	IncludeHandles map[string]struct{}
	ExcludeHandles map[string]struct{}

	// DiamondConfigText holds manually supplied diamond prices, either as a
	// JSON object or comma separated key:value pairs. Empty means prices come
	// from theme settings.
	DiamondConfigText string
	UseThemeSettings  bool
}

// LoadRunParams reads run parameters from the environment. A malformed manual
// rate is a configuration error: the run must abort before anything is
// fetched rather than reprice the catalog with a garbage rate.
func LoadRunParams() (*RunParams, error) {
	params := &RunParams{
		IncludeHandles:    ParseHandles(os.Getenv("INCLUDE_HANDLES")),
		ExcludeHandles:    ParseHandles(os.Getenv("EXCLUDE_HANDLES")),
		DiamondConfigText: strings.TrimSpace(os.Getenv("DIAMOND_CONFIGS")),
		UseThemeSettings:  true,
	}

	if v := strings.TrimSpace(os.Getenv("USE_THEME_SETTINGS")); v != "" {
		params.UseThemeSettings = strings.EqualFold(v, "true")
	}

	if v := strings.TrimSpace(os.Getenv("GOLD_RATE")); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid GOLD_RATE %q: %w", v, err)
		}
		params.GoldRate = &rate
	}
	if v := strings.TrimSpace(os.Getenv("SILVER_RATE")); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SILVER_RATE %q: %w", v, err)
		}
		params.SilverRate = &rate
	}

	return params, nil
}

// ParseHandles splits a comma or newline separated handle list into a set.
// Handles are case-folded so operator input matches catalog handles.
func ParseHandles(raw string) map[string]struct{} {
	handles := make(map[string]struct{})
	if raw == "" {
		return handles
	}
	for _, line := range strings.Split(strings.ReplaceAll(raw, ",", "\n"), "\n") {
		if handle := strings.ToLower(strings.TrimSpace(line)); handle != "" {
			handles[handle] = struct{}{}
		}
	}
	return handles
}
