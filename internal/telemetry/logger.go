// Package telemetry builds the structured zap logger shared across the
// service and the otel tracer used to span turns and tool hops. Metrics
// sinks are out of scope (spec.md §1); the instrumentation points exist but
// no exporter is wired by default.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide zap logger. In production mode it emits
// JSON at info level; otherwise it emits a readable console encoder at debug
// level, matching the dev/prod split goa-ai's runtime telemetry packages use.
func NewLogger(production bool) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// MaskPhone truncates a canonicalized phone number to its country-code
// prefix plus a fixed number of trailing digits, so logs never carry a full
// phone number (§7: "phone masked to prefix only").
func MaskPhone(phone string) string {
	const keepSuffix = 2
	if len(phone) <= 4 {
		return "***"
	}
	prefixLen := 4
	if prefixLen > len(phone)-keepSuffix {
		prefixLen = len(phone) - keepSuffix
	}
	masked := make([]byte, 0, len(phone))
	masked = append(masked, phone[:prefixLen]...)
	for i := prefixLen; i < len(phone)-keepSuffix; i++ {
		masked = append(masked, '*')
	}
	masked = append(masked, phone[len(phone)-keepSuffix:]...)
	return string(masked)
}

// PhoneField is a zap field carrying a masked phone number.
func PhoneField(phone string) zap.Field {
	return zap.String("phone", MaskPhone(phone))
}
