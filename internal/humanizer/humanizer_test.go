package humanizer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocale() *Locale {
	return &Locale{
		Name:                "pt_BR",
		QuestionLeadWords:   []string{"qual", "como", "quando", "onde", "por que", "você", "posso"},
		SentenceTerminators: []string{".", "!", "?", ";"},
		MinBreakDistance:    20,
	}
}

func TestFormatWhatsAppStyleNormalizesMarkdown(t *testing.T) {
	t.Parallel()

	in := "# Título\n**negrito** e __também__ e `codigo`\n- item um\nFoi R$ 1.500,00 ou 20%, ok.. tudo bem"
	out := FormatWhatsAppStyle(in)

	assert.NotContains(t, out, "#")
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "__")
	assert.NotContains(t, out, "`")
	assert.Contains(t, out, "*negrito*")
	assert.Contains(t, out, "*também*")
	assert.Contains(t, out, "• item um")
	assert.Contains(t, out, "*R$ 1.500,00*")
	assert.Contains(t, out, "*20%*")
	assert.Contains(t, out, "... tudo bem")
}

func TestPlanProducesBoundedTypingDurations(t *testing.T) {
	t.Parallel()

	h := New(DefaultConfig(), testLocale(), 42)
	text := "Olá! Tudo bem com você? Gostaria de saber qual é o valor médio da sua conta de luz todo mês, para eu te passar uma proposta personalizada."

	for _, state := range []EmotionalState{StateNeutral, StateEnthusiastic, StateEmpathetic, StateDetermined} {
		plan := h.Plan(text, state, false)
		require.NotEmpty(t, plan.Chunks)
		for _, c := range plan.Chunks {
			assert.GreaterOrEqual(t, c.TypingDuration, 2*time.Second)
			assert.LessOrEqual(t, c.TypingDuration, 15*time.Second)
			assert.GreaterOrEqual(t, c.PrePause, time.Duration(0))
			assert.GreaterOrEqual(t, c.PostPause, time.Duration(0))
		}
	}
}

func TestPlanFirstMessageHasLongerLeadPause(t *testing.T) {
	t.Parallel()

	h := New(DefaultConfig(), testLocale(), 7)
	text := "Oi, tudo bem?"

	first := h.Plan(text, StateNeutral, true)
	followUp := h.Plan(text, StateNeutral, false)
	require.NotEmpty(t, first.Chunks)
	require.NotEmpty(t, followUp.Chunks)

	// §4.A: a first message's opening pre-pause is drawn from a strictly
	// higher range (1.5-3.0s) than a mid-conversation reply's (0.8-1.5s).
	assert.GreaterOrEqual(t, first.Chunks[0].PrePause, 1500*time.Millisecond)
	assert.LessOrEqual(t, followUp.Chunks[0].PrePause, 1500*time.Millisecond)
}

func TestBreakByLengthRespectsWordBounds(t *testing.T) {
	t.Parallel()

	h := New(DefaultConfig(), testLocale(), 99)
	words := make([]string, 0, 80)
	for i := 0; i < 80; i++ {
		words = append(words, "palavra")
	}
	text := strings.Join(words, " ")

	chunks := h.breakByLength(text)
	require.NotEmpty(t, chunks)

	var reassembled int
	for _, c := range chunks {
		reassembled += len(strings.Fields(c))
	}
	assert.Equal(t, 80, reassembled)
}

func TestValidateAndAdjustMergesUndersizedTrailingChunk(t *testing.T) {
	t.Parallel()

	h := New(DefaultConfig(), testLocale(), 1)
	out := h.validateAndAdjust([]string{"uma frase razoavelmente longa aqui", "ok"})
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "ok")
}

func TestBreakBySemanticPatternsNeverSplitsCapitalizedPairWhenAlternativeBreakExists(t *testing.T) {
	t.Parallel()

	locale := testLocale()
	locale.SentenceTerminators = []string{"."}
	h := New(DefaultConfig(), locale, 1)

	// Two candidate periods: one after "agora." (non-capitalized lead-in,
	// always accepted) and one inside the abbreviation "Sr." immediately
	// before the capitalized "Silva" (would split a proper name). §8
	// requires the latter never be chosen while the former is available.
	text := "Posso ajudar agora. Sr. Silva vai te ligar mais tarde hoje."
	chunks := h.breakBySemanticPatterns(text)
	require.Len(t, chunks, 2)

	for _, c := range chunks {
		assert.False(t, strings.HasSuffix(strings.TrimSpace(c), "Sr."),
			"must not break between the capitalized pair \"Sr.\"/\"Silva\" while another break point exists")
	}
	assert.Contains(t, chunks[1], "Sr. Silva", "the capitalized pair must stay in the same chunk")
}

func TestBreakBySemanticPatternsAllowsCapitalizedPairSplitWhenItIsTheOnlyBreak(t *testing.T) {
	t.Parallel()

	locale := testLocale()
	locale.SentenceTerminators = []string{";"}
	h := New(DefaultConfig(), locale, 1)

	// The only terminator in the text splits the capitalized pair
	// "Sr"/"Você" — with no alternative break point available, §8 allows it.
	text := "Converse com o Sr; Você pode me ligar mais tarde"
	chunks := h.breakBySemanticPatterns(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Converse com o Sr;", chunks[0])
}

func TestSplitsCapitalizedPairDetectsProperNameBoundary(t *testing.T) {
	t.Parallel()

	text := "Fale com o Sr. Silva agora"
	pos := strings.Index(text, "Sr.") + len("Sr.")
	assert.True(t, splitsCapitalizedPair(text, pos))

	text2 := "Fale com ele agora mesmo"
	pos2 := strings.Index(text2, "ele") + len("ele")
	assert.False(t, splitsCapitalizedPair(text2, pos2))
}
