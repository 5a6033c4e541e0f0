package model

import "time"

// Translation holds translated variants of enrichment fields for one
// (business, locale) pair. At most one row exists per pair.
type Translation struct {
	BusinessID string `json:"business_id"`
	Locale     string `json:"locale"`

	Description string   `json:"description,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tips        []string `json:"tips,omitempty"`
	Notes       []string `json:"notes,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Empty reports whether the translation carries no content at all.
func (t *Translation) Empty() bool {
	return t.Description == "" && t.Summary == "" &&
		len(t.Tips) == 0 && len(t.Notes) == 0 && len(t.Specialties) == 0 &&
		len(t.Highlights) == 0 && len(t.Warnings) == 0
}

// Region owns locale configuration and prompt context. Read-only from the
// pipeline's point of view.
type Region struct {
	Slug             string   `json:"slug" yaml:"slug"`
	Name             string   `json:"name" yaml:"name"`
	Active           bool     `json:"active" yaml:"active"`
	DefaultLocale    string   `json:"default_locale" yaml:"default_locale"`
	SupportedLocales []string `json:"supported_locales" yaml:"supported_locales"`

	// Prompt context.
	Language     string   `json:"language,omitempty" yaml:"language"`
	CulturalTips []string `json:"cultural_tips,omitempty" yaml:"cultural_tips"`
}

// MissingLocales returns the region's supported locales minus the default
// locale and minus locales already present in existing.
func (r *Region) MissingLocales(existing []string) []string {
	have := make(map[string]bool, len(existing)+1)
	have[r.DefaultLocale] = true
	for _, l := range existing {
		have[l] = true
	}
	var missing []string
	for _, l := range r.SupportedLocales {
		if !have[l] {
			missing = append(missing, l)
		}
	}
	return missing
}
