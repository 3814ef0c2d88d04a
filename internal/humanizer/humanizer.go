// Package humanizer turns a single agent reply into a timed plan of
// WhatsApp-style sends: chunked the way a person types, paced with
// typing-indicator delays, occasionally mistyped and self-corrected.
// Ported from agente/core/humanizer.py's HelenHumanizer and
// NaturalBreakAnalyzer, with the regex catalogue externalized to a Locale
// bundle instead of hardcoded Portuguese literals.
package humanizer

import (
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// EmotionalState selects the speed/error/pause modifier row (§4.A).
type EmotionalState string

const (
	StateNeutral      EmotionalState = "neutral"
	StateEnthusiastic EmotionalState = "enthusiastic"
	StateEmpathetic   EmotionalState = "empathetic"
	StateDetermined   EmotionalState = "determined"
)

// Modifiers holds the per-emotional-state multipliers from spec.md §4.A.
type Modifiers struct {
	Speed float64
	Error float64
	Pause float64
}

var modifierTable = map[EmotionalState]Modifiers{
	StateNeutral:      {Speed: 1.0, Error: 1.0, Pause: 1.0},
	StateEnthusiastic: {Speed: 1.2, Error: 1.1, Pause: 0.8},
	StateEmpathetic:   {Speed: 0.9, Error: 0.8, Pause: 1.2},
	StateDetermined:   {Speed: 1.05, Error: 0.9, Pause: 0.9},
}

func modifiersFor(state EmotionalState) Modifiers {
	if m, ok := modifierTable[state]; ok {
		return m
	}
	return modifierTable[StateNeutral]
}

// PlannedChunk is one outbound operation: wait pre_pause, show typing for
// typing_duration, send text, wait post_pause (§4.A `execute`).
type PlannedChunk struct {
	Text           string
	PrePause       time.Duration
	TypingDuration time.Duration
	PostPause      time.Duration
}

// ChunkPlan is the ordered output of Plan.
type ChunkPlan struct {
	Chunks []PlannedChunk
}

// Config bounds the chunker and typing-delay formula. DefaultConfig returns
// spec.md §4.A / §6's defaults; New uses the Config it is given as is and
// fills in no defaults for zero fields.
type Config struct {
	WPMMin, WPMMax     float64
	ChunkWordMin       int
	ChunkWordMax       int
	NaturalBreakRatio  float64 // probability of the semantic strategy over length-based
	ErrorRate          float64
	CorrectionRate     float64
}

func DefaultConfig() Config {
	return Config{
		WPMMin: 45, WPMMax: 55,
		ChunkWordMin: 3, ChunkWordMax: 15,
		NaturalBreakRatio: 0.6,
		ErrorRate:         0.03,
		CorrectionRate:    0.7,
	}
}

// Humanizer plans and executes chunked, humanized sends.
type Humanizer struct {
	cfg    Config
	locale *Locale
	rng    *rand.Rand

	questionLead []*regexp.Regexp
}

// New builds a Humanizer for locale. rngSeed lets tests get deterministic
// output; production callers should pass time.Now().UnixNano().
func New(cfg Config, locale *Locale, rngSeed int64) *Humanizer {
	h := &Humanizer{
		cfg:    cfg,
		locale: locale,
		rng:    rand.New(rand.NewSource(rngSeed)),
	}
	for _, w := range locale.QuestionLeadWords {
		h.questionLead = append(h.questionLead, regexp.MustCompile(`(?i)^`+regexp.QuoteMeta(w)+`\b`))
	}
	return h
}

// Plan implements spec.md §4.A's plan(text, emotional_state, is_first_message).
func (h *Humanizer) Plan(text string, state EmotionalState, isFirstMessage bool) ChunkPlan {
	mods := modifiersFor(state)

	formatted := FormatWhatsAppStyle(text)
	rawChunks := h.breakIntoChunks(formatted)

	var withErrors []string
	for _, c := range rawChunks {
		withErrors = append(withErrors, h.injectTypo(c, mods.Error)...)
	}

	plan := ChunkPlan{}
	for i, chunk := range withErrors {
		pc := PlannedChunk{Text: chunk}
		pc.PrePause = h.prePause(i, isFirstMessage, mods.Pause)
		pc.PostPause = h.postPause(chunk, mods.Pause)
		pc.TypingDuration = h.typingDelay(chunk, mods.Speed)
		plan.Chunks = append(plan.Chunks, pc)
	}
	return plan
}

// typingDelay implements §4.A's delay formula exactly.
func (h *Humanizer) typingDelay(text string, speedModifier float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 2 * time.Second
	}
	wpm := (h.cfg.WPMMin + h.rng.Float64()*(h.cfg.WPMMax-h.cfg.WPMMin)) * speedModifier
	base := (float64(words) / wpm) * 60
	variation := 0.85 + h.rng.Float64()*0.30
	delay := base * variation
	if delay < 2.0 {
		delay = 2.0
	}
	if delay > 15.0 {
		delay = 15.0
	}
	return time.Duration(delay * float64(time.Second))
}

func (h *Humanizer) prePause(index int, isFirstMessage bool, pauseModifier float64) time.Duration {
	var lo, hi float64
	switch {
	case index == 0 && isFirstMessage:
		lo, hi = 1.5, 3.0
	case index == 0:
		lo, hi = 0.8, 1.5
	default:
		lo, hi = 0.3, 0.8
	}
	return h.uniformDuration(lo, hi, pauseModifier)
}

func (h *Humanizer) postPause(chunk string, pauseModifier float64) time.Duration {
	if strings.HasSuffix(strings.TrimSpace(chunk), "?") {
		return h.uniformDuration(0.8, 1.2, pauseModifier)
	}
	return h.uniformDuration(0.3, 0.7, pauseModifier)
}

func (h *Humanizer) uniformDuration(lo, hi, modifier float64) time.Duration {
	v := (lo + h.rng.Float64()*(hi-lo)) * modifier
	return time.Duration(v * float64(time.Second))
}

// breakIntoChunks selects the semantic (60%) or length-based (40%) strategy
// per reply, then enforces the min/max word-count bounds (§4.A).
func (h *Humanizer) breakIntoChunks(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	if h.rng.Float64() < h.cfg.NaturalBreakRatio {
		chunks = h.breakBySemanticPatterns(text)
	} else {
		chunks = h.breakByLength(text)
	}
	return h.validateAndAdjust(chunks)
}

// breakBySemanticPatterns scores candidate break points from the locale's
// question-lead words plus sentence terminators, accepting points that
// score above 0.6 and probabilistically accepting weaker ones (~0.3), per
// §4.A's scoring rubric.
func (h *Humanizer) breakBySemanticPatterns(text string) []string {
	var points []breakPoint

	for _, term := range h.locale.SentenceTerminators {
		for i := 0; i < len(text); i++ {
			if strings.HasPrefix(text[i:], term) {
				pos := i + len(term)
				points = append(points, breakPoint{pos: pos, score: h.scoreBreak(text, pos), capSplit: splitsCapitalizedPair(text, pos)})
			}
		}
	}
	for _, re := range h.questionLead {
		loc := re.FindStringIndex(text)
		if loc != nil && loc[0] > 0 {
			points = append(points, breakPoint{pos: loc[0], score: 0.9, capSplit: splitsCapitalizedPair(text, loc[0])})
		}
	}

	if len(points) == 0 {
		return h.breakByLength(text)
	}

	minDist := h.locale.MinBreakDistance
	if minDist <= 0 {
		minDist = 20
	}

	// §8's invariant: never split two consecutive capitalized tokens (a
	// proper name) if any other break point is available. Try without the
	// cap-split candidates first; only fall back to allowing them when
	// they're the sole candidates on offer.
	accepted := h.acceptBreakPoints(points, minDist, false)
	if len(accepted) == 0 {
		accepted = h.acceptBreakPoints(points, minDist, true)
	}

	if len(accepted) == 0 {
		return h.breakByLength(text)
	}

	var chunks []string
	prev := 0
	for _, pos := range accepted {
		if pos <= prev || pos > len(text) {
			continue
		}
		chunks = append(chunks, strings.TrimSpace(text[prev:pos]))
		prev = pos
	}
	if prev < len(text) {
		chunks = append(chunks, strings.TrimSpace(text[prev:]))
	}
	return chunks
}

// breakPoint is one candidate split position scored by scoreBreak.
type breakPoint struct {
	pos      int
	score    float64
	capSplit bool // splits two consecutive capitalized tokens, e.g. a proper name
}

// acceptBreakPoints walks candidates in order, enforcing minDist between
// accepted points. When allowCapSplit is false, capSplit candidates are
// skipped outright rather than merely scored lower, so a proper-name split
// is only ever chosen when no other candidate remains (§8).
func (h *Humanizer) acceptBreakPoints(points []breakPoint, minDist int, allowCapSplit bool) []int {
	var accepted []int
	lastPos := -minDist
	for _, p := range points {
		if p.capSplit && !allowCapSplit {
			continue
		}
		if p.pos-lastPos < minDist {
			continue
		}
		accept := p.score > 0.6 || (p.score <= 0.6 && h.rng.Float64() < 0.3)
		if !accept {
			continue
		}
		accepted = append(accepted, p.pos)
		lastPos = p.pos
	}
	return accepted
}

// splitsCapitalizedPair reports whether cutting text at pos lands between
// two consecutive capitalized tokens (e.g. "... João | Silva ...").
func splitsCapitalizedPair(text string, pos int) bool {
	before := strings.Fields(strings.TrimSpace(text[:pos]))
	if len(before) == 0 || pos >= len(text) {
		return false
	}
	after := strings.Fields(strings.TrimSpace(text[pos:]))
	if len(after) == 0 {
		return false
	}
	return isCapitalized(before[len(before)-1]) && isCapitalized(after[0])
}

// scoreBreak applies §4.A's (a)-(d) rubric to the text split at pos.
func (h *Humanizer) scoreBreak(text string, pos int) float64 {
	before := strings.Fields(strings.TrimSpace(text[:pos]))
	var after []string
	if pos < len(text) {
		after = strings.Fields(strings.TrimSpace(text[pos:]))
	}

	score := 0.5
	switch {
	case len(before) < 2:
		score -= 0.3
	case len(before) > 20:
		score -= 0.2
	case len(before) >= 3 && len(before) <= 12:
		score += 0.2
	}

	if len(after) > 0 {
		lead := strings.ToLower(after[0])
		for _, w := range h.locale.QuestionLeadWords {
			if lead == strings.ToLower(w) {
				score += 0.4
				break
			}
		}
	}

	if len(before) > 0 && len(after) > 0 && isCapitalized(before[len(before)-1]) && isCapitalized(after[0]) {
		score -= 0.4
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func isCapitalized(word string) bool {
	if word == "" {
		return false
	}
	r := rune(word[0])
	return r >= 'A' && r <= 'Z'
}

// breakByLength splits on a variable word count within [min-1, max],
// mirroring the small/medium/large distribution of
// _break_by_traditional_method (40% small, 30% medium, 30% large) and
// avoiding a trailing comma at the cut point.
func (h *Humanizer) breakByLength(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	minSize := h.cfg.ChunkWordMin - 1
	if minSize < 1 {
		minSize = 1
	}
	maxSize := h.cfg.ChunkWordMax

	var chunks []string
	i := 0
	for i < len(words) {
		remaining := len(words) - i
		size := remaining
		if remaining > minSize {
			upper := maxSize
			if remaining < upper {
				upper = remaining
			}
			roll := h.rng.Float64()
			switch {
			case roll < 0.4:
				size = minSize + h.rng.Intn(3)
			case roll < 0.7:
				size = minSize + 3 + h.rng.Intn(4)
			default:
				lo := minSize + 7
				if lo > upper {
					lo = upper
				}
				size = lo + h.rng.Intn(upper-lo+1)
			}
			if size > upper {
				size = upper
			}
			if size < 1 {
				size = 1
			}
		}

		end := i + size
		if end > len(words) {
			end = len(words)
		}
		for end > i+1 && strings.HasSuffix(words[end-1], ",") {
			end--
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		i = end
	}
	return chunks
}

// validateAndAdjust merges undersized trailing chunks into their
// predecessor and splits oversized chunks, enforcing the [min,max]
// word-count bounds (§4.A's post-process step).
func (h *Humanizer) validateAndAdjust(chunks []string) []string {
	var out []string
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		words := strings.Fields(chunk)

		if len(words) < h.cfg.ChunkWordMin && len(out) > 0 {
			prevWords := strings.Fields(out[len(out)-1])
			if len(prevWords)+len(words) <= h.cfg.ChunkWordMax {
				out[len(out)-1] = strings.Join(append(prevWords, words...), " ")
				continue
			}
		}

		if len(words) > h.cfg.ChunkWordMax {
			for i := 0; i < len(words); i += h.cfg.ChunkWordMax {
				end := i + h.cfg.ChunkWordMax
				if end > len(words) {
					end = len(words)
				}
				out = append(out, strings.Join(words[i:end], " "))
			}
			continue
		}

		out = append(out, chunk)
	}
	return out
}
