package convcontext

import "github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"

// QualificationThresholds carries the commercial/residential bill tiers
// from config (§6 qualification_min_bill_commercial/residential).
type QualificationThresholds struct {
	CommercialMinBill  float64
	ResidentialMinBill float64
}

// Signals bundles the derived facts Assess needs beyond the lead's own
// metadata: the interest-demonstration count the §4.C criterion table asks
// for (">=2 of: >5 messages, asked questions, provided documents, showed
// excitement lexicon, availability given").
type Signals struct {
	MessageCount        int
	AskedQuestions      bool
	ProvidedDocuments   bool
	ShowedExcitement    bool
	AvailabilityGiven   bool
}

func (s Signals) interestCount() int {
	n := 0
	if s.MessageCount > 5 {
		n++
	}
	if s.AskedQuestions {
		n++
	}
	if s.ProvidedDocuments {
		n++
	}
	if s.ShowedExcitement {
		n++
	}
	if s.AvailabilityGiven {
		n++
	}
	return n
}

// Assess evaluates the five qualification criteria from §4.C's table and
// derives Qualified/Disqualified/CompletionPercent/NextQuestion.
func Assess(lead *domain.Lead, signals Signals, thresholds QualificationThresholds) domain.QualificationProgress {
	bill := lead.MetaFloat("valor_conta")

	highValueBill := bill >= thresholds.CommercialMinBill || bill >= thresholds.ResidentialMinBill
	decisionMaker := lead.MetaBool("e_decisor")
	noExistingSystem := !lead.MetaBool("tem_usina_propria")
	noActiveContract := !lead.MetaBool("tem_contrato_vigente")
	demonstratesInterest := signals.interestCount() >= 2

	p := domain.QualificationProgress{
		HighValueBill:        highValueBill,
		DecisionMaker:        decisionMaker,
		NoExistingSystem:     noExistingSystem,
		NoActiveContract:     noActiveContract,
		DemonstratesInterest: demonstratesInterest,
	}

	met := 0
	for _, ok := range []bool{highValueBill, decisionMaker, noExistingSystem, noActiveContract, demonstratesInterest} {
		if ok {
			met++
		}
	}
	p.CompletionPercent = met * 100 / 5
	p.Qualified = met == 5

	decisionMakerExplicitFalse := lead.MetaPresent("e_decisor") && !decisionMaker
	promisedToBringDecisionMaker := lead.MetaBool("promete_trazer_decisor")
	p.Disqualified = bill > 0 && bill < thresholds.ResidentialMinBill ||
		(decisionMakerExplicitFalse && !promisedToBringDecisionMaker)

	p.NextQuestion = nextQuestion(p)
	return p
}

// nextQuestion names the first unmet criterion, in the table's order, as a
// cheap conversational hint for the orchestrator.
func nextQuestion(p domain.QualificationProgress) string {
	switch {
	case !p.HighValueBill:
		return "qual o valor médio da sua conta de luz?"
	case !p.DecisionMaker:
		return "você é quem decide sobre a contratação?"
	case !p.NoExistingSystem:
		return "vocês já possuem usina solar própria?"
	case !p.NoActiveContract:
		return "existe algum contrato vigente com outra fornecedora?"
	case !p.DemonstratesInterest:
		return "o que mais gostaria de saber sobre a solução?"
	default:
		return ""
	}
}
