// ============================================================================
// SAFE LOGGING - masks personal data in production logs
// ============================================================================
// Beneficiary names, recipients and emails are personal data. In production
// they are masked before they reach the log sink; in development they are
// logged as-is to keep debugging practical.
// ============================================================================

package utils

import (
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// IsProduction decides whether sensitive data is masked.
var IsProduction = os.Getenv("GIN_MODE") == "release" ||
	os.Getenv("ENVIRONMENT") == "production" ||
	os.Getenv("ENV") == "production"

// ============================================================================
// MASKING PATTERNS
// ============================================================================

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?\d[\d\s.-]{7,}\d`)
	uuidRegex  = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// MaskString masks emails, phone numbers and shortens UUIDs.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = phoneRegex.ReplaceAllString(result, "***")
	result = uuidRegex.ReplaceAllStringFunc(result, func(uuid string) string {
		return uuid[:8] + "..."
	})
	return result
}

// MaskName keeps only the initials of a person's name, e.g. "J. D.".
func MaskName(name string) string {
	if !IsProduction {
		return name
	}

	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "***"
	}
	initials := make([]string, 0, len(parts))
	for _, p := range parts {
		initials = append(initials, string([]rune(p)[0])+".")
	}
	return strings.Join(initials, " ")
}

// MaskID partially masks an identifier (keeps the first 8 characters).
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

// ============================================================================
// LOGGER
// ============================================================================

// NewLogger builds a JSON logger in production and a console logger
// otherwise. level accepts zap level names; empty means info.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if IsProduction {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build()
}

// PersonField is a zap field for a person's name, masked in production.
func PersonField(key, name string) zap.Field {
	return zap.String(key, MaskName(name))
}

// SafeField is a zap field whose value goes through MaskString.
func SafeField(key, value string) zap.Field {
	return zap.String(key, MaskString(value))
}
