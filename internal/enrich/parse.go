package enrich

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"

	"github.com/sells-group/listing-pipeline/internal/jsonextract"
	"github.com/sells-group/listing-pipeline/internal/model"
)

// replyAttributes mirrors the model's reply shape with lenient field types:
// scores arrive as numbers or quoted strings depending on the model's mood.
type replyAttributes struct {
	Description string `json:"description"`
	Summary     string `json:"summary"`

	AuthenticityScore  json.RawMessage `json:"authenticity_score"`
	AccessibilityScore json.RawMessage `json:"accessibility_score"`
	QualityScore       json.RawMessage `json:"quality_score"`
	CategoryFit        json.RawMessage `json:"category_fit"`

	SuggestedCategory string `json:"suggested_category"`

	LanguageSupport           *bool           `json:"language_support"`
	LanguageSupportConfidence json.RawMessage `json:"language_support_confidence"`
	SpokenLanguages           []string        `json:"spoken_languages"`

	Tips        []string `json:"tips"`
	Notes       []string `json:"notes"`
	Specialties []string `json:"specialties"`
	Highlights  []string `json:"highlights"`
	Warnings    []string `json:"warnings"`

	ReviewInsights *model.ReviewInsights `json:"review_insights"`
}

// Parse decodes a model reply into typed attributes. Fenced-code wrapping is
// tolerated; scores are coerced to two-decimal values clamped to [0,1];
// free-form language strings are normalized to ISO 639-1 codes. A reply that
// cannot be decoded returns a typed parse error.
func Parse(text string) (*model.Attributes, error) {
	var reply replyAttributes
	if err := jsonextract.Object(text, &reply); err != nil {
		return nil, err
	}

	attrs := &model.Attributes{
		Description:       strings.TrimSpace(reply.Description),
		Summary:           strings.TrimSpace(reply.Summary),
		SuggestedCategory: strings.TrimSpace(reply.SuggestedCategory),
		LanguageSupport:   reply.LanguageSupport,
		ReviewInsights:    reply.ReviewInsights,
	}

	var err error
	if attrs.AuthenticityScore, err = coerceScore(reply.AuthenticityScore); err != nil {
		return nil, eris.Wrap(err, "enrich: authenticity_score")
	}
	if attrs.AccessibilityScore, err = coerceScore(reply.AccessibilityScore); err != nil {
		return nil, eris.Wrap(err, "enrich: accessibility_score")
	}
	if attrs.QualityScore, err = coerceScore(reply.QualityScore); err != nil {
		return nil, eris.Wrap(err, "enrich: quality_score")
	}
	if attrs.CategoryFit, err = coerceScore(reply.CategoryFit); err != nil {
		return nil, eris.Wrap(err, "enrich: category_fit")
	}
	if attrs.LanguageSupportConfidence, err = coerceScore(reply.LanguageSupportConfidence); err != nil {
		return nil, eris.Wrap(err, "enrich: language_support_confidence")
	}

	if reply.SpokenLanguages != nil {
		attrs.SpokenLanguages = normalizeLanguages(reply.SpokenLanguages)
	}
	attrs.Tips = reply.Tips
	attrs.Notes = reply.Notes
	attrs.Specialties = reply.Specialties
	attrs.Highlights = reply.Highlights
	attrs.Warnings = reply.Warnings

	if attrs.ReviewInsights != nil {
		if attrs.ReviewInsights.CommonPraise == nil {
			attrs.ReviewInsights.CommonPraise = []string{}
		}
		if attrs.ReviewInsights.CommonComplaints == nil {
			attrs.ReviewInsights.CommonComplaints = []string{}
		}
	}

	return attrs, nil
}

// coerceScore accepts a JSON number or a quoted numeric string and returns a
// [0,1]-clamped two-decimal value. Absent and null both mean "not provided"
// and return nil so the field is left untouched on the business. A value that
// is neither is a parse defect in the reply, so the job gets discarded
// rather than retried.
func coerceScore(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &model.ParseError{
				Strategy: "score_coercion",
				Snippet:  string(raw),
				Err:      eris.Errorf("not a number or numeric string: %s", raw),
			}
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &model.ParseError{
				Strategy: "score_coercion",
				Snippet:  s,
				Err:      eris.Wrapf(err, "numeric string %q", s),
			}
		}
		f = parsed
	}

	f = math.Round(clamp01(f)*100) / 100
	return &f, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// normalizeLanguages maps free-form language strings ("Spanish", "es-MX",
// "español") onto base ISO 639-1 codes, dropping unparseable entries and
// duplicates.
func normalizeLanguages(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		code := languageCode(s)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// languageNames covers names the tag parser does not recognize.
var languageNames = map[string]string{
	"spanish":    "es",
	"español":    "es",
	"english":    "en",
	"dutch":      "nl",
	"nederlands": "nl",
	"french":     "fr",
	"français":   "fr",
	"german":     "de",
	"deutsch":    "de",
	"japanese":   "ja",
	"日本語":        "ja",
	"portuguese": "pt",
	"italian":    "it",
	"mandarin":   "zh",
	"chinese":    "zh",
	"korean":     "ko",
}

func languageCode(s string) string {
	if code, ok := languageNames[strings.ToLower(s)]; ok {
		return code
	}
	tag, err := language.Parse(s)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
