package awsimport

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tag is one AWS resource tag.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// ParseTags parses the Tags cell of an inventory row. Two encodings occur
// in the wild: strict JSON ([{"Key": "env", "Value": "prod"}]) and the
// Python repr() form ([{'Key': 'env', 'Value': 'prod'}]) produced by older
// export scripts. Both are accepted; an empty cell yields no tags.
func ParseTags(raw string) ([]Tag, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var tags []Tag
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return tags, nil
	}
	normalized, err := pythonLiteralToJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(normalized), &tags); err != nil {
		return nil, fmt.Errorf("unparseable tag list: %w", err)
	}
	return tags, nil
}

// pythonLiteralToJSON converts a Python list/dict literal to JSON: single
// quoted strings become double quoted (with re-escaping), and the bare
// constants True/False/None become their JSON spellings. It is not a full
// Python parser, it covers the repr() output of tag lists.
func pythonLiteralToJSON(raw string) (string, error) {
	var out strings.Builder
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\'', '"':
			quote := r
			var content strings.Builder
			i++
			closed := false
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					next := runes[i+1]
					if next == quote || next == '\\' {
						content.WriteRune(next)
						i += 2
						continue
					}
					content.WriteRune(c)
					content.WriteRune(next)
					i += 2
					continue
				}
				if c == quote {
					closed = true
					break
				}
				content.WriteRune(c)
				i++
			}
			if !closed {
				return "", fmt.Errorf("unterminated string in tag literal")
			}
			encoded, err := json.Marshal(content.String())
			if err != nil {
				return "", err
			}
			out.Write(encoded)
		default:
			if replaced, length := pythonConstant(runes[i:]); length > 0 {
				out.WriteString(replaced)
				i += length - 1
				continue
			}
			out.WriteRune(r)
		}
	}
	return out.String(), nil
}

func pythonConstant(runes []rune) (string, int) {
	for literal, replacement := range map[string]string{
		"True":  "true",
		"False": "false",
		"None":  "null",
	} {
		if len(runes) >= len(literal) && string(runes[:len(literal)]) == literal {
			return replacement, len(literal)
		}
	}
	return "", 0
}
