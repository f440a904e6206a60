package ai

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ErrNoJSONObject is returned when no JSON object can be recovered from oracle output
var ErrNoJSONObject = errors.New("oracle output does not contain a JSON object")

// ExtractJSON recovers a JSON object from model output. It tries the whole
// text, then the first fenced code block, then the slice between the first
// '{' and the last '}'.
func ExtractJSON(text []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(text))
	if isObject(trimmed) {
		return []byte(trimmed), nil
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		if block := strings.TrimSpace(m[1]); isObject(block) {
			return []byte(block), nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		if slice := trimmed[start : end+1]; isObject(slice) {
			return []byte(slice), nil
		}
	}

	return nil, ErrNoJSONObject
}

func isObject(s string) bool {
	return s != "" && gjson.Valid(s) && gjson.Parse(s).IsObject()
}
