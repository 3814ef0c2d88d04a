package convcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func TestInferStageDefaultsToInitialContact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, domain.StageInitialContact, InferStage(&domain.Lead{}))
}

func TestInferStageOrdersRulesByPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		lead  *domain.Lead
		stage domain.Stage
	}{
		{"name only", &domain.Lead{Name: "Maria"}, domain.StageIdentification},
		{"bill given", &domain.Lead{Name: "Maria", Metadata: map[string]any{"valor_conta": 500.0}}, domain.StageQualification},
		{"decision maker known", &domain.Lead{Metadata: map[string]any{"e_decisor": true}}, domain.StageDiscovery},
		{"interest solution given", &domain.Lead{Metadata: map[string]any{"solucao_interesse": "usina propria"}}, domain.StagePresentation},
		{"availability given", &domain.Lead{Metadata: map[string]any{"disponibilidade_reuniao": "terca 10h"}}, domain.StageScheduling},
		{
			"unresolved objection wins over availability",
			&domain.Lead{Metadata: map[string]any{
				"disponibilidade_reuniao": "terca 10h",
				"has_objections":          true,
			}},
			domain.StageObjectionHandling,
		},
		{
			"handled objection falls through to the next rule",
			&domain.Lead{Metadata: map[string]any{
				"disponibilidade_reuniao": "terca 10h",
				"has_objections":          true,
				"objections_handled":      true,
			}},
			domain.StageScheduling,
		},
		{
			"meeting scheduled always wins",
			&domain.Lead{Metadata: map[string]any{
				"meeting_scheduled": true,
				"has_objections":    true,
			}},
			domain.StageFollowUp,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.stage, InferStage(tc.lead))
		})
	}
}
