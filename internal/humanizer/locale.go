package humanizer

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Locale holds the language-specific patterns the chunk planner and
// formatter consult (§4.A). Only pt_BR ships today, matching the single
// locale agente/core/humanizer.py ever shipped.
type Locale struct {
	Name                string   `yaml:"locale"`
	QuestionLeadWords   []string `yaml:"question_lead_words"`
	SentenceTerminators []string `yaml:"sentence_terminators"`
	MinBreakDistance    int      `yaml:"min_break_distance"`
}

// LoadLocale reads a locale bundle from path.
func LoadLocale(path string) (*Locale, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l Locale
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}
