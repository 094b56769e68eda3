package viability

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// ExtractJSONObject returns the first balanced {...} object in text. Braces
// inside string literals are ignored, so prose and code fences around the
// object are tolerated.
func ExtractJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseResponse decodes the classifier response into an analysis.
func ParseResponse(raw string) (*model.ViabilityAnalysis, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, &model.ClassificationParseError{Raw: raw, Err: eris.New("viability: no JSON object in response")}
	}
	var a model.ViabilityAnalysis
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return nil, &model.ClassificationParseError{Raw: raw, Err: eris.Wrap(err, "viability: decode response")}
	}
	return &a, nil
}
