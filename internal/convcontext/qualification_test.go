package convcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func thresholds() QualificationThresholds {
	return QualificationThresholds{CommercialMinBill: 4000, ResidentialMinBill: 400}
}

func TestAssessFullyQualified(t *testing.T) {
	t.Parallel()

	lead := &domain.Lead{Metadata: map[string]any{
		"valor_conta":     600.0,
		"e_decisor":       true,
	}}
	signals := Signals{MessageCount: 8, AskedQuestions: true}

	p := Assess(lead, signals, thresholds())
	assert.True(t, p.HighValueBill)
	assert.True(t, p.DecisionMaker)
	assert.True(t, p.NoExistingSystem)
	assert.True(t, p.NoActiveContract)
	assert.True(t, p.DemonstratesInterest)
	assert.Equal(t, 100, p.CompletionPercent)
	assert.True(t, p.Qualified)
	assert.False(t, p.Disqualified)
	assert.Empty(t, p.NextQuestion)
}

func TestAssessPartialReturnsNextQuestionInTableOrder(t *testing.T) {
	t.Parallel()

	lead := &domain.Lead{}
	p := Assess(lead, Signals{}, thresholds())

	// An empty lead already meets the two "flag not set" criteria (no
	// existing system, no active contract): 2 of 5.
	assert.Equal(t, 40, p.CompletionPercent)
	assert.False(t, p.Qualified)
	assert.Equal(t, "qual o valor médio da sua conta de luz?", p.NextQuestion)
}

func TestAssessDisqualifiesLowBill(t *testing.T) {
	t.Parallel()

	lead := &domain.Lead{Metadata: map[string]any{"valor_conta": 150.0}}
	p := Assess(lead, Signals{}, thresholds())
	assert.True(t, p.Disqualified)
}

func TestAssessDisqualifiesExplicitNonDecisionMakerWithoutPromise(t *testing.T) {
	t.Parallel()

	lead := &domain.Lead{Metadata: map[string]any{"e_decisor": false}}
	p := Assess(lead, Signals{}, thresholds())
	assert.True(t, p.Disqualified)

	lead.Metadata["promete_trazer_decisor"] = true
	p = Assess(lead, Signals{}, thresholds())
	assert.False(t, p.Disqualified)
}

func TestSignalsInterestCountRequiresTwoOfFive(t *testing.T) {
	t.Parallel()

	lead := &domain.Lead{Metadata: map[string]any{"valor_conta": 600.0, "e_decisor": true}}

	// Only one interest signal: not enough.
	p := Assess(lead, Signals{AskedQuestions: true}, thresholds())
	assert.False(t, p.DemonstratesInterest)

	// Two signals: enough.
	p = Assess(lead, Signals{AskedQuestions: true, ProvidedDocuments: true}, thresholds())
	assert.True(t, p.DemonstratesInterest)
}
