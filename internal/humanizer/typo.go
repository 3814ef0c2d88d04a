package humanizer

import (
	"regexp"
	"strings"
)

// adjacentKeys mirrors HelenHumanizer's QWERTY adjacency table.
var adjacentKeys = map[byte]string{
	'a': "sqwz", 'b': "vghn", 'c': "xdfv", 'd': "serfcx", 'e': "wrds",
	'f': "drtgvc", 'g': "ftyhbv", 'h': "gyujnb", 'i': "uokj", 'j': "huiknm",
	'k': "jiolm", 'l': "kop", 'm': "njk", 'n': "bhjm", 'o': "iplk",
	'p': "ol", 'q': "wa", 'r': "etfd", 's': "awedxz", 't': "rygf",
	'u': "yijh", 'v': "cfgb", 'w': "qesa", 'x': "zsdc", 'y': "tuhg", 'z': "asx",
}

type typoKind int

const (
	typoAdjacent typoKind = iota
	typoTranspose
	typoDropped
)

// injectTypo applies §4.A's typo simulation: with probability
// errorRate*errorModifier, mangle one word of length >2 at a non-edge
// position, then with probability correctionRate emit a corrected
// follow-up chunk marked with a trailing '*'.
func (h *Humanizer) injectTypo(chunk string, errorModifier float64) []string {
	if h.rng.Float64() > h.cfg.ErrorRate*errorModifier {
		return []string{chunk}
	}

	words := strings.Fields(chunk)
	var candidates []int
	for i, w := range words {
		if len(w) > 2 {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return []string{chunk}
	}

	wordIdx := candidates[h.rng.Intn(len(candidates))]
	word := words[wordIdx]
	charIdx := 1 + h.rng.Intn(len(word)-2)
	kind := typoKind(h.rng.Intn(3))

	mangled := append([]string(nil), words...)
	switch kind {
	case typoAdjacent:
		c := word[charIdx] | 0x20 // lowercase
		adj, ok := adjacentKeys[c]
		if !ok {
			return []string{chunk}
		}
		wrong := adj[h.rng.Intn(len(adj))]
		mangled[wordIdx] = word[:charIdx] + string(wrong) + word[charIdx+1:]
	case typoTranspose:
		if charIdx >= len(word)-1 {
			return []string{chunk}
		}
		mangled[wordIdx] = word[:charIdx] + string(word[charIdx+1]) + string(word[charIdx]) + word[charIdx+2:]
	case typoDropped:
		mangled[wordIdx] = word[:charIdx] + word[charIdx+1:]
	}

	errored := strings.Join(mangled, " ")
	if h.rng.Float64() < h.cfg.CorrectionRate {
		return []string{errored, chunk + "*"}
	}
	return []string{errored}
}

var (
	currencyOrPercent = regexp.MustCompile(`R\$\s*[\d.,]+|\d+%`)
	headerMarker      = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	doubleStar        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	doubleUnderscore  = regexp.MustCompile(`__(.*?)__`)
	inlineCode        = regexp.MustCompile("`(.*?)`")
	doubleDot         = regexp.MustCompile(`\.\.\s`)
	bulletDash        = regexp.MustCompile(`(?m)^-\s+`)
)

// FormatWhatsAppStyle normalizes Markdown to WhatsApp's lightweight markup
// (§4.A Formatting): **/__ becomes single *, headers are stripped, currency
// and percentage tokens get bolded, leading "- " list markers become "• ".
func FormatWhatsAppStyle(text string) string {
	text = currencyOrPercent.ReplaceAllStringFunc(text, func(m string) string { return "*" + m + "*" })
	text = headerMarker.ReplaceAllString(text, "")
	text = doubleStar.ReplaceAllString(text, "*$1*")
	text = doubleUnderscore.ReplaceAllString(text, "*$1*")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = bulletDash.ReplaceAllString(text, "• ")
	text = doubleDot.ReplaceAllString(text, "... ")
	return text
}
