package convcontext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Extracted holds the entities §4.C's extraction pass pulls from inbound
// message history.
type Extracted struct {
	Name             string
	BillValue        float64
	PropertyType     string
	Objections       []string
	AdditionalPhones []string
	Emails           []string
}

var (
	namePattern    = regexp.MustCompile(`(?i)me chamo ([A-Za-zÀ-ÿ]+(?:\s+[A-Za-zÀ-ÿ]+){0,3})|meu nome é ([A-Za-zÀ-ÿ]+(?:\s+[A-Za-zÀ-ÿ]+){0,3})`)
	moneyPattern   = regexp.MustCompile(`(?i)R\$\s*([\d.,]+)|([\d.,]+)\s*reais`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern   = regexp.MustCompile(`(?:\+?55)?\s?\(?\d{2}\)?\s?9?\d{4}[\s-]?\d{4}`)
	propertyTypes  = map[string]string{"casa": "residential", "apartamento": "residential", "comércio": "commercial", "comercio": "commercial", "loja": "commercial", "galpão": "industrial", "galpao": "industrial", "indústria": "industrial", "industria": "industrial"}
	objectionWords = []string{"muito caro", "não tenho interesse", "nao tenho interesse", "preciso pensar", "já tenho", "ja tenho", "sem tempo"}
)

// Extract scans inbound message history for the entities §4.C names: a
// sanity range of [50, 50000] on monetary values excludes obvious noise.
func Extract(messages []domain.Message) Extracted {
	var out Extracted
	for _, m := range messages {
		if m.Direction != domain.DirectionInbound {
			continue
		}
		text := m.Content

		if out.Name == "" {
			if match := namePattern.FindStringSubmatch(text); match != nil {
				for _, g := range match[1:] {
					if g != "" {
						out.Name = strings.TrimSpace(g)
						break
					}
				}
			}
		}

		if out.BillValue == 0 {
			if match := moneyPattern.FindStringSubmatch(text); match != nil {
				raw := match[1]
				if raw == "" {
					raw = match[2]
				}
				if v, ok := parseBRLAmount(raw); ok && v >= 50 && v <= 50000 {
					out.BillValue = v
				}
			}
		}

		if out.PropertyType == "" {
			lower := strings.ToLower(text)
			for kw, kind := range propertyTypes {
				if strings.Contains(lower, kw) {
					out.PropertyType = kind
					break
				}
			}
		}

		lower := strings.ToLower(text)
		for _, phrase := range objectionWords {
			if strings.Contains(lower, phrase) {
				out.Objections = appendUnique(out.Objections, phrase)
			}
		}

		for _, email := range emailPattern.FindAllString(text, -1) {
			out.Emails = appendUnique(out.Emails, email)
		}
		for _, phone := range phonePattern.FindAllString(text, -1) {
			out.AdditionalPhones = appendUnique(out.AdditionalPhones, phone)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// parseBRLAmount parses Brazilian-formatted numbers (1.234,56 or 1234.56 or
// plain 1234) into a float.
func parseBRLAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
