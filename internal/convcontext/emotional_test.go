package convcontext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func msg(content string, ts time.Time) domain.Message {
	return domain.Message{Direction: domain.DirectionInbound, Content: content, Timestamp: ts}
}

func TestAnalyzeEmotionPositiveSentiment(t *testing.T) {
	t.Parallel()

	base := time.Now()
	messages := []domain.Message{
		msg("Achei excelente, adorei a proposta!", base),
		msg("Perfeito, muito interessante mesmo", base.Add(time.Minute)),
	}

	read := AnalyzeEmotion(messages, DefaultLexicons())
	assert.Equal(t, "pos", read.Sentiment)
	assert.GreaterOrEqual(t, read.InterestLevel, 6)
}

func TestAnalyzeEmotionNegativeSentiment(t *testing.T) {
	t.Parallel()

	base := time.Now()
	messages := []domain.Message{
		msg("Achei muito caro, não gostei", base),
		msg("É um problema pra mim, desisto", base.Add(2*time.Hour)),
	}

	read := AnalyzeEmotion(messages, DefaultLexicons())
	assert.Equal(t, "neg", read.Sentiment)
}

func TestAnalyzeEmotionNeutralWithoutLexiconHits(t *testing.T) {
	t.Parallel()

	base := time.Now()
	messages := []domain.Message{msg("Qual o horário de vocês?", base)}
	read := AnalyzeEmotion(messages, DefaultLexicons())
	assert.Equal(t, "neu", read.Sentiment)
}

func TestAnalyzeEmotionUrgencyTiers(t *testing.T) {
	t.Parallel()

	base := time.Now()
	high := []domain.Message{msg("preciso urgente, hoje mesmo, agora", base)}
	read := AnalyzeEmotion(high, DefaultLexicons())
	assert.Equal(t, "high", read.Urgency)

	low := []domain.Message{msg("vamos conversar com calma", base)}
	read = AnalyzeEmotion(low, DefaultLexicons())
	assert.Equal(t, "low", read.Urgency)
}

func TestAnalyzeEmotionKeepsOnlyLastTenMessages(t *testing.T) {
	t.Parallel()

	base := time.Now()
	var messages []domain.Message
	for i := 0; i < 15; i++ {
		content := "ruim"
		if i < 5 {
			content = "adorei"
		}
		messages = append(messages, msg(content, base.Add(time.Duration(i)*time.Minute)))
	}
	// The first five (dropped) messages are positive and the last ten
	// negative: over all 15 the ratio is 5/15 (neutral), over the last ten
	// it is 0/10, so the read is negative only if the first five are dropped.
	read := AnalyzeEmotion(messages, DefaultLexicons())
	assert.Equal(t, "neg", read.Sentiment)
}

func TestShouldUseReasoningRequiresTwoSignals(t *testing.T) {
	t.Parallel()

	base := time.Now()
	read := domain.EmotionalRead{InterestLevel: 5}

	// No signal (one question mark is under the three-question threshold,
	// stage neutral): no reasoning.
	oneSignal := []domain.Message{msg("Qual o valor?", base)}
	assert.False(t, ShouldUseReasoning(oneSignal, domain.StageQualification, read))

	// Technical objection + low interest: two signals, reasoning activates.
	lowInterest := domain.EmotionalRead{InterestLevel: 2}
	technical := []domain.Message{msg("tenho dúvida sobre a garantia e manutenção do sistema", base)}
	assert.True(t, ShouldUseReasoning(technical, domain.StageQualification, lowInterest))

	// Objection-handling stage alone plus a comparison keyword: two signals.
	comparison := []domain.Message{msg("qual a diferença pra outras empresas?", base)}
	assert.True(t, ShouldUseReasoning(comparison, domain.StageObjectionHandling, read))
}
