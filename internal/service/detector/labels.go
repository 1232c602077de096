package detector

import (
	"strings"

	analysis "github.com/zhouzirui/moodflip/internal/analysis/emotion"
)

// LabelTable maps a backend's raw labels onto the canonical set.
type LabelTable map[string]analysis.Label

// face-api style vocabulary, already canonical.
var primaryLabels = LabelTable{
	"neutral":   analysis.Neutral,
	"happy":     analysis.Happy,
	"sad":       analysis.Sad,
	"angry":     analysis.Angry,
	"fearful":   analysis.Fearful,
	"disgusted": analysis.Disgusted,
	"surprised": analysis.Surprised,
}

// DeepFace style vocabulary.
var secondaryLabels = LabelTable{
	"neutral":  analysis.Neutral,
	"happy":    analysis.Happy,
	"sad":      analysis.Sad,
	"angry":    analysis.Angry,
	"fear":     analysis.Fearful,
	"disgust":  analysis.Disgusted,
	"surprise": analysis.Surprised,
}

// DefaultTable returns a copy of the built-in table for kind, merged with overrides.
// Override keys and values are lowercased; values outside the canonical set are kept
// and surface as non-canonical samples.
func DefaultTable(kind Kind, overrides map[string]string) LabelTable {
	var base LabelTable
	switch kind {
	case Primary:
		base = primaryLabels
	case Secondary:
		base = secondaryLabels
	default:
		base = primaryLabels
	}

	table := make(LabelTable, len(base)+len(overrides))
	for raw, label := range base {
		table[raw] = label
	}
	for raw, label := range overrides {
		table[normalizeKey(raw)] = analysis.Label(normalizeKey(label))
	}
	return table
}

// Lookup maps a raw label. Unknown labels pass through unmapped.
func (t LabelTable) Lookup(raw string) analysis.Label {
	key := normalizeKey(raw)
	if label, ok := t[key]; ok {
		return label
	}
	return analysis.Label(key)
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
