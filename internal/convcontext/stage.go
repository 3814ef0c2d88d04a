// Package convcontext builds the per-turn context bundle the agent
// orchestrator consumes (§4.C): stage inference, qualification progress,
// emotional read, entity extraction, and the reasoning-activation flag.
// Ported rule-for-rule from agente/core/context_manager.py.
package convcontext

import "github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"

// InferStage applies §4.C's ordered stage-inference rule set, first match
// wins.
func InferStage(lead *domain.Lead) domain.Stage {
	switch {
	case lead.MetaBool("meeting_scheduled"):
		return domain.StageFollowUp
	case lead.MetaBool("has_objections") && !lead.MetaBool("objections_handled"):
		return domain.StageObjectionHandling
	case lead.MetaPresent("disponibilidade_reuniao"):
		return domain.StageScheduling
	case lead.MetaPresent("solucao_interesse"):
		return domain.StagePresentation
	case lead.MetaPresent("e_decisor"):
		return domain.StageDiscovery
	case lead.MetaPresent("valor_conta"):
		return domain.StageQualification
	case lead.Name != "":
		return domain.StageIdentification
	default:
		return domain.StageInitialContact
	}
}
