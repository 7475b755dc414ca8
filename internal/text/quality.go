package text

import (
	"strings"
	"unicode/utf8"
)

// QualityRules tunes the heuristic chunk quality score. Lengths are in characters.
type QualityRules struct {
	BaseScore        float64
	OptimalMin       int
	OptimalMax       int
	LengthBonus      float64
	LongBonus        float64
	StructureMarkers []string
	StructureBonus   float64
	TechnicalMarkers []string
	TechnicalBonus   float64
	SentenceMin      int
	SentenceMax      int
	SentenceBonus    float64
}

func DefaultQualityRules() QualityRules {
	return QualityRules{
		BaseScore:        0.5,
		OptimalMin:       200,
		OptimalMax:       1500,
		LengthBonus:      0.2,
		LongBonus:        0.1,
		StructureMarkers: []string{"however", "therefore", "because", "furthermore", "additionally", "consequently"},
		StructureBonus:   0.1,
		TechnicalMarkers: []string{"api", "feature", "integration", "performance", "configuration", "implementation"},
		TechnicalBonus:   0.1,
		SentenceMin:      3,
		SentenceMax:      10,
		SentenceBonus:    0.1,
	}
}

type QualityScorer struct {
	rules     QualityRules
	structure []string
	technical []string
}

func NewQualityScorer(rules QualityRules) *QualityScorer {
	return &QualityScorer{
		rules:     rules,
		structure: lowerAll(rules.StructureMarkers),
		technical: lowerAll(rules.TechnicalMarkers),
	}
}

// Score is a pure function of content, clamped to [0, 1].
func (s *QualityScorer) Score(content string) float64 {
	r := s.rules
	score := r.BaseScore

	length := utf8.RuneCountInString(content)
	switch {
	case length >= r.OptimalMin && length <= r.OptimalMax:
		score += r.LengthBonus
	case length > r.OptimalMax:
		score += r.LongBonus
	}

	lower := strings.ToLower(content)
	if containsAny(lower, s.structure) {
		score += r.StructureBonus
	}
	if containsAny(lower, s.technical) {
		score += r.TechnicalBonus
	}

	periods := strings.Count(content, ".")
	if periods >= r.SentenceMin && periods <= r.SentenceMax {
		score += r.SentenceBonus
	}

	return min(max(score, 0), 1.0)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
