package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesSpecDefaultsWithNoEnvironment(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 30*time.Minute, c.SessionTimeout)
	assert.Equal(t, 20*time.Minute, c.IdleWarning)
	assert.Equal(t, 2*time.Hour, c.MaxSessionDuration)
	assert.Equal(t, 3*time.Second, c.BufferWindow)
	assert.Equal(t, 30*time.Minute, c.FollowUpFirstDelay)
	assert.Equal(t, 24*time.Hour, c.FollowUpSecondDelay)
	assert.Equal(t, 100, c.MaxMessagesPerSession)
	assert.Equal(t, 20, c.BufferCap)
	assert.Equal(t, 8, c.MaxToolHops)
	assert.True(t, c.ReasoningAuto)
	assert.Equal(t, 4000.0, c.QualificationMinBillCommercial)
	assert.Equal(t, 400.0, c.QualificationMinBillResidential)
	assert.Equal(t, "08:00", c.BusinessHoursStart)
	assert.Equal(t, "18:00", c.BusinessHoursEnd)
	assert.Equal(t, "America/Sao_Paulo", c.BusinessTZ)
	assert.False(t, c.Production)
	assert.Nil(t, c.WebhookAllowlistIPs)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_TIMEOUT_MIN", "45")
	t.Setenv("BUFFER_WINDOW_MS", "1500")
	t.Setenv("MAX_TOOL_HOPS", "5")
	t.Setenv("ENV", "production")
	t.Setenv("WEBHOOK_ALLOWLIST_IPS", "10.0.0.1,10.0.0.2")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.HTTPAddr)
	assert.Equal(t, 45*time.Minute, c.SessionTimeout)
	assert.Equal(t, 1500*time.Millisecond, c.BufferWindow)
	assert.Equal(t, 5, c.MaxToolHops)
	assert.True(t, c.Production)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, c.WebhookAllowlistIPs)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT_MIN", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TIMEOUT_MIN")
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	t.Setenv("MAX_TOOL_HOPS", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_TOOL_HOPS")
}

func TestSplitCSVHandlesEmptyAndTrailingCommas(t *testing.T) {
	t.Parallel()

	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"a", "b"}, splitCSV("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitCSV("a,b,"))
	assert.Equal(t, []string{"a"}, splitCSV("a"))
}

func TestLoadToleratesMissingEnvFile(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/to/.env")
	require.NoError(t, err, "a missing .env must not be a load error")
}
