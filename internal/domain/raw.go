package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type rawKind int

const (
	rawAbsent rawKind = iota
	rawNumber
	rawString
)

// RawValue is the tagged union for unit-ambiguous caller input: a field that
// may arrive as a JSON number, a string ("10%", "4-6 m"), or be absent
// entirely. All decision inputs cross the boundary as RawValues and are
// converted to canonical units by the normalizer before any typed logic runs.
type RawValue struct {
	kind rawKind
	num  float64
	str  string
}

// RawNumber wraps a numeric raw value.
func RawNumber(v float64) RawValue {
	return RawValue{kind: rawNumber, num: v}
}

// RawString wraps a string raw value.
func RawString(s string) RawValue {
	return RawValue{kind: rawString, str: s}
}

// IsAbsent reports whether the value was never supplied. Absent is distinct
// from malformed: absent optional fields never fail normalization.
func (v RawValue) IsAbsent() bool {
	return v.kind == rawAbsent
}

// String renders the raw value as received, for error reporting and audit.
func (v RawValue) String() string {
	switch v.kind {
	case rawNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case rawString:
		return v.str
	default:
		return ""
	}
}

// number returns the numeric content, parsing string payloads. The second
// return is false when the payload has no numeric interpretation.
func (v RawValue) number() (float64, bool) {
	switch v.kind {
	case rawNumber:
		return v.num, true
	case rawString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = RawValue{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawString(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("raw value must be a number, string, or null: %w", err)
	}
	*v = RawNumber(f)
	return nil
}

// MarshalJSON round-trips the value in its original shape.
func (v RawValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case rawNumber:
		return json.Marshal(v.num)
	case rawString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalYAML accepts a YAML scalar: number, string, or null.
func (v *RawValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("raw value must be a number, string, or null, got %s", node.Tag)
	}
	switch node.Tag {
	case "!!null":
		*v = RawValue{}
		return nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = RawNumber(f)
		return nil
	default:
		*v = RawString(node.Value)
		return nil
	}
}

// MarshalYAML round-trips the value in its original shape.
func (v RawValue) MarshalYAML() (any, error) {
	switch v.kind {
	case rawNumber:
		return v.num, nil
	case rawString:
		return v.str, nil
	default:
		return nil, nil
	}
}
