package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// LooseString decodes from a JSON string, number or boolean. Null and structured values decode
// to the empty string.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(data []byte) error {
	*s = looseString(data)
	return nil
}

func looseString(data []byte) LooseString {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) == nil {
			return LooseString(s)
		}
		return ""
	case '{', '[', 'n':
		return ""
	default:
		// numbers and booleans keep their literal spelling
		return LooseString(data)
	}
}

// StringList decodes from a list of scalars or from a single comma separated string.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			if s := strings.TrimSpace(string(looseString(v))); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	s := strings.TrimSpace(string(looseString(data)))
	if s == "" {
		*l = []string{}
		return nil
	}
	*l = SplitList(s)
	return nil
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
