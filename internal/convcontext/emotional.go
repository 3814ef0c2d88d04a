package convcontext

import (
	"strings"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Lexicons holds the pt-BR word lists the emotional-read pass counts hits
// against (§4.C). NewBuilder always uses the built-in DefaultLexicons set;
// nothing loads lexicons from config or a locale bundle.
type Lexicons struct {
	Positive []string
	Negative []string
	Urgency  []string
}

func DefaultLexicons() Lexicons {
	return Lexicons{
		Positive: []string{"ótimo", "otimo", "excelente", "adorei", "perfeito", "interessante", "top", "show", "maravilha"},
		Negative: []string{"não", "nao", "ruim", "caro", "problema", "difícil", "dificil", "desisto", "péssimo", "pessimo"},
		Urgency:  []string{"urgente", "hoje", "agora", "rápido", "rapido", "preciso já", "imediato"},
	}
}

func countHits(text string, lexicon []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, w := range lexicon {
		n += strings.Count(lower, w)
	}
	return n
}

// AnalyzeEmotion implements §4.C's emotional analysis over the last 10
// inbound messages: sentiment from the positive/negative hit ratio,
// interest from that ratio plus a response-latency adjustment, urgency
// from urgency-lexicon hit count.
func AnalyzeEmotion(recentInbound []domain.Message, lex Lexicons) domain.EmotionalRead {
	if len(recentInbound) > 10 {
		recentInbound = recentInbound[len(recentInbound)-10:]
	}

	var positive, negative, urgency int
	for _, m := range recentInbound {
		positive += countHits(m.Content, lex.Positive)
		negative += countHits(m.Content, lex.Negative)
		urgency += countHits(m.Content, lex.Urgency)
	}

	var ratio float64
	total := positive + negative
	if total > 0 {
		ratio = float64(positive) / float64(total)
	} else {
		ratio = 0.5
	}

	sentiment := "neu"
	switch {
	case ratio > 0.7:
		sentiment = "pos"
	case ratio < 0.3:
		sentiment = "neg"
	}

	interest := 5.0
	if total > 0 {
		if ratio >= 0.5 {
			interest += 3 * ratio
		} else {
			interest -= 2 * (1 - ratio)
		}
	}
	interest += latencyAdjustment(recentInbound)

	interestLevel := int(interest + 0.5)
	if interestLevel < 1 {
		interestLevel = 1
	}
	if interestLevel > 10 {
		interestLevel = 10
	}

	urgencyTier := "low"
	switch {
	case urgency >= 3:
		urgencyTier = "high"
	case urgency >= 1:
		urgencyTier = "med"
	}

	return domain.EmotionalRead{
		InterestLevel: interestLevel,
		Urgency:       urgencyTier,
		Sentiment:     sentiment,
	}
}

// latencyAdjustment implements the ±1 response-latency rule: average gap
// between consecutive inbound messages <5min → +1, >1h → -1, else 0.
func latencyAdjustment(messages []domain.Message) float64 {
	if len(messages) < 2 {
		return 0
	}
	var total time.Duration
	gaps := 0
	for i := 1; i < len(messages); i++ {
		gap := messages[i].Timestamp.Sub(messages[i-1].Timestamp)
		if gap > 0 {
			total += gap
			gaps++
		}
	}
	if gaps == 0 {
		return 0
	}
	avg := total / time.Duration(gaps)
	switch {
	case avg < 5*time.Minute:
		return 1
	case avg > time.Hour:
		return -1
	default:
		return 0
	}
}

// ShouldUseReasoning implements §4.C's reasoning-activation rule: true when
// at least 2 of the five signals hold.
func ShouldUseReasoning(recentInbound []domain.Message, stage domain.Stage, read domain.EmotionalRead) bool {
	if len(recentInbound) > 10 {
		recentInbound = recentInbound[len(recentInbound)-10:]
	}

	questionMarks := 0
	technicalObjection := false
	comparisonKeywords := false
	for _, m := range recentInbound {
		lower := strings.ToLower(m.Content)
		questionMarks += strings.Count(m.Content, "?")
		if strings.Contains(lower, "garantia") || strings.Contains(lower, "manutenção") || strings.Contains(lower, "manutencao") || strings.Contains(lower, "técnic") || strings.Contains(lower, "tecnic") {
			technicalObjection = true
		}
		if strings.Contains(lower, "vs") || strings.Contains(lower, "melhor") || strings.Contains(lower, "diferença") || strings.Contains(lower, "diferenca") {
			comparisonKeywords = true
		}
	}

	signals := 0
	if questionMarks >= 3 {
		signals++
	}
	if technicalObjection {
		signals++
	}
	if comparisonKeywords {
		signals++
	}
	if read.InterestLevel <= 3 && len(recentInbound) > 0 {
		signals++
	}
	if stage == domain.StageObjectionHandling || stage == domain.StageDiscovery {
		signals++
	}
	return signals >= 2
}
