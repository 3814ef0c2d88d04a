package toolcatalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSpec(name string) Spec {
	return Spec{
		Name:        name,
		Category:    "utility",
		Description: "echoes its args",
		Idempotency: SafeRetry,
		Invoke: func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func schemaSpec(name string) Spec {
	s := echoSpec(name)
	s.InputSchema = map[string]any{
		"type":       "object",
		"properties": map[string]any{"phone": map[string]any{"type": "string"}},
		"required":   []string{"phone"},
	}
	return s
}

func TestRegisterAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(echoSpec("ping"))

	spec, ok := c.Get("ping")
	require.True(t, ok)
	assert.Equal(t, "ping", spec.Name)
	assert.Equal(t, SafeRetry, spec.Idempotency)

	out, err := spec.Invoke(context.Background(), map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1}, out)
}

func TestGetReportsMissingTool(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	_, ok := c.Get("does_not_exist")
	assert.False(t, ok)
}

func TestRegisterPanicsOnDuplicateName(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(echoSpec("ping"))
	assert.Panics(t, func() { c.Register(echoSpec("ping")) })
}

func TestDeclarationsExposeOnlyModelFacingFields(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(echoSpec("ping"))
	c.Register(echoSpec("pong"))

	decls := c.Declarations()
	require.Len(t, decls, 2)

	names := map[string]bool{}
	for _, d := range decls {
		names[d.Name] = true
		assert.Equal(t, "echoes its args", d.Description)
	}
	assert.True(t, names["ping"])
	assert.True(t, names["pong"])
}

func TestValidateArgsAcceptsArgsMatchingTheSchema(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(schemaSpec("send_text"))
	assert.NoError(t, c.ValidateArgs("send_text", map[string]any{"phone": "5511988887777"}))
}

func TestValidateArgsRejectsArgsMissingARequiredField(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(schemaSpec("send_text"))
	err := c.ValidateArgs("send_text", map[string]any{})
	assert.Error(t, err)
}

func TestValidateArgsRejectsWrongFieldType(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(schemaSpec("send_text"))
	err := c.ValidateArgs("send_text", map[string]any{"phone": 5511988887777})
	assert.Error(t, err)
}

func TestValidateArgsSkipsToolsWithNoInputSchema(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(echoSpec("ping"))
	assert.NoError(t, c.ValidateArgs("ping", map[string]any{"anything": true}))
}

func TestValidateArgsReportsUnknownTool(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	assert.Error(t, c.ValidateArgs("does_not_exist", nil))
}

func TestValidateArgsCachesCompiledSchemaAcrossCalls(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	c.Register(schemaSpec("send_text"))
	require.NoError(t, c.ValidateArgs("send_text", map[string]any{"phone": "1"}))
	require.NoError(t, c.ValidateArgs("send_text", map[string]any{"phone": "2"}))

	_, ok := c.schema["send_text"]
	assert.True(t, ok, "the compiled schema should be cached after the first call")
}
