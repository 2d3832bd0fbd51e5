package llmorch

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var fencedJSONBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n```")

// extractJSON implements the spec's extraction order: prefer a fenced
// ```json block, else the first {...} span, else fail.
func extractJSON(raw string) (string, error) {
	if m := fencedJSONBlock.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", fmt.Errorf("llmorch: no JSON object found in response")
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("llmorch: unterminated JSON object in response")
}

// parseInto extracts the JSON span from raw, validates it against a's
// schema, then unmarshals it into out. A response that parses as JSON
// but violates the schema (wrong type, missing required field, an enum
// value the model invented) is rejected here rather than silently
// producing a zero-valued result struct.
func parseInto(raw string, a Assessment, out interface{}) error {
	span, err := extractJSON(raw)
	if err != nil {
		return err
	}

	if schema, ok := jsonSchemaFor[a]; ok {
		result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), gojsonschema.NewStringLoader(span))
		if err != nil {
			return fmt.Errorf("llmorch: validating %s response: %w", a, err)
		}
		if !result.Valid() {
			var msgs []string
			for _, e := range result.Errors() {
				msgs = append(msgs, e.String())
			}
			return fmt.Errorf("llmorch: %s response failed schema validation: %s", a, strings.Join(msgs, "; "))
		}
	}

	if err := json.Unmarshal([]byte(span), out); err != nil {
		return fmt.Errorf("llmorch: decoding extracted JSON: %w", err)
	}
	return nil
}
