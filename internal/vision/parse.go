package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Delimiter separates items inside a RecipeRecord field. An item that itself
// contains the delimiter is split in two.
const Delimiter = "*"

var (
	ErrMalformedResponse = errors.New("model response is not valid JSON")
	ErrSchemaMismatch    = errors.New("model response does not match the recipe schema")
)

var fenceMarker = regexp.MustCompile("```json|```")

// Normalize strips markdown code-fence markers anywhere in raw and trims the
// surrounding whitespace. Any other prose is left in place.
func Normalize(raw string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(raw, ""))
}

// Parse decodes a normalized completion. The value must be a JSON object with
// string fields ingredients and instructions; extra keys are ignored.
func Parse(candidate string) (*RecipeRecord, error) {
	if !json.Valid([]byte(candidate)) {
		return nil, ErrMalformedResponse
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrSchemaMismatch)
	}

	ingredients, err := stringField(obj, "ingredients")
	if err != nil {
		return nil, err
	}
	instructions, err := stringField(obj, "instructions")
	if err != nil {
		return nil, err
	}

	return &RecipeRecord{Ingredients: ingredients, Instructions: instructions}, nil
}

func stringField(obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", ErrSchemaMismatch, key)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrSchemaMismatch, key, err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrSchemaMismatch, key)
	}
	return s, nil
}

// Split breaks both fields on Delimiter. Segments are kept verbatim, and an
// empty field yields a single empty segment.
func Split(rec RecipeRecord) ParsedRecipe {
	return ParsedRecipe{
		Ingredients:  strings.Split(rec.Ingredients, Delimiter),
		Instructions: strings.Split(rec.Instructions, Delimiter),
	}
}

// ParseResponse runs Normalize, Parse and Split over a raw completion.
func ParseResponse(raw string) (*ParsedRecipe, error) {
	rec, err := Parse(Normalize(raw))
	if err != nil {
		return nil, err
	}
	parsed := Split(*rec)
	return &parsed, nil
}
