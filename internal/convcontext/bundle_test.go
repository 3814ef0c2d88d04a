package convcontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func TestBuilderBuildAssemblesFullBundle(t *testing.T) {
	t.Parallel()

	b := NewBuilder(QualificationThresholds{CommercialMinBill: 4000, ResidentialMinBill: 400})

	lead := &domain.Lead{Name: "Maria", Metadata: map[string]any{"valor_conta": 600.0}}
	recent := []domain.Message{
		{Direction: domain.DirectionInbound, Content: "me chamo Maria, adorei a proposta!", Timestamp: time.Now()},
		{Direction: domain.DirectionOutbound, Content: "Que bom, Maria!", Timestamp: time.Now()},
	}

	bundle := b.Build("qual o valor da instalação?", nil, lead, recent, Signals{MessageCount: 1})

	require.Equal(t, lead, bundle.Lead)
	assert.Equal(t, domain.StageQualification, bundle.Stage)
	assert.Equal(t, "Maria", bundle.Extracted.Name)
	assert.Equal(t, "pos", bundle.EmotionalState.Sentiment)
	assert.Len(t, bundle.RecentMessages, 2)
}
