package translate

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-pipeline/internal/model"
)

// FieldMap holds the translatable content of a business: scalar fields map to
// single-element values, array fields keep their element order.
type FieldMap map[string][]string

// CollectFields gathers the non-empty translatable fields from enrichment
// attributes.
func CollectFields(attrs *model.Attributes) FieldMap {
	if attrs == nil {
		return FieldMap{}
	}
	fields := FieldMap{}
	if attrs.Description != "" {
		fields["description"] = []string{attrs.Description}
	}
	if attrs.Summary != "" {
		fields["summary"] = []string{attrs.Summary}
	}
	for name, arr := range map[string][]string{
		"tips":        attrs.Tips,
		"notes":       attrs.Notes,
		"specialties": attrs.Specialties,
		"highlights":  attrs.Highlights,
		"warnings":    attrs.Warnings,
	} {
		if len(arr) > 0 {
			fields[name] = arr
		}
	}
	return fields
}

// Flatten orders fields by key and concatenates every string into one batch.
// The returned keys and counts allow Unflatten to reverse the operation.
func Flatten(fields FieldMap) (texts []string, keys []string, counts []int) {
	keys = make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		counts = append(counts, len(fields[k]))
		texts = append(texts, fields[k]...)
	}
	return texts, keys, counts
}

// Unflatten splits a translated batch back into per-field slices using the
// keys and element counts recorded by Flatten.
func Unflatten(texts, keys []string, counts []int) (FieldMap, error) {
	total := 0
	for _, c := range counts {
		total += c
	}
	if len(keys) != len(counts) {
		return nil, eris.Errorf("translate: %d keys but %d counts", len(keys), len(counts))
	}
	if total != len(texts) {
		return nil, eris.Errorf("translate: expected %d texts, got %d", total, len(texts))
	}

	fields := make(FieldMap, len(keys))
	offset := 0
	for i, k := range keys {
		n := counts[i]
		segment := make([]string, n)
		copy(segment, texts[offset:offset+n])
		fields[k] = segment
		offset += n
	}
	return fields, nil
}

// TranslateFields flattens the field map, runs one ordered batch through the
// backend, and reassembles the result per field.
func TranslateFields(ctx context.Context, t Translator, fields FieldMap, locale string, opts Opts) (FieldMap, error) {
	texts, keys, counts := Flatten(fields)
	if len(texts) == 0 {
		return FieldMap{}, nil
	}

	translated, err := t.TranslateBatch(ctx, texts, locale, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "translate: batch for locale %s", locale)
	}
	if len(translated) != len(texts) {
		return nil, eris.Errorf("translate: backend returned %d texts for %d inputs", len(translated), len(texts))
	}

	return Unflatten(translated, keys, counts)
}

// BuildTranslation maps a translated field map onto a Translation row.
func BuildTranslation(businessID, locale string, fields FieldMap) *model.Translation {
	tr := &model.Translation{
		BusinessID: businessID,
		Locale:     locale,
	}
	if v, ok := fields["description"]; ok && len(v) > 0 {
		tr.Description = v[0]
	}
	if v, ok := fields["summary"]; ok && len(v) > 0 {
		tr.Summary = v[0]
	}
	tr.Tips = fields["tips"]
	tr.Notes = fields["notes"]
	tr.Specialties = fields["specialties"]
	tr.Highlights = fields["highlights"]
	tr.Warnings = fields["warnings"]
	return tr
}
