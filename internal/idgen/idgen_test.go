package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEntityIDIsPrefixedAndUnique(t *testing.T) {
	t.Parallel()

	a := NewEntityID("lead")
	b := NewEntityID("lead")

	assert.True(t, strings.HasPrefix(a, "lead_"))
	assert.True(t, strings.HasPrefix(b, "lead_"))
	assert.NotEqual(t, a, b)
}

func TestNewEntityIDHonorsKindPrefix(t *testing.T) {
	t.Parallel()

	id := NewEntityID("conversation")
	assert.True(t, strings.HasPrefix(id, "conversation_"))
}

func TestNewTurnIDAndCorrelationIDAreUniqueAndDistinctShapes(t *testing.T) {
	t.Parallel()

	turn := NewTurnID()
	assert.True(t, strings.HasPrefix(turn, "turn_"))

	corr1 := NewCorrelationID()
	corr2 := NewCorrelationID()
	assert.NotEqual(t, corr1, corr2)
	assert.False(t, strings.HasPrefix(corr1, "turn_"))
}

func TestConfigureAcceptsValidNodeRange(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Configure(1))
}
