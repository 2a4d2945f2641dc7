package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SkillCategory is one "Category: a, b, c" line of the skills section.
type SkillCategory struct {
	Category string
	Values   string
}

// List splits the comma joined values.
func (c SkillCategory) List() []string {
	return SplitList(c.Values)
}

// Skills is the skills section. It is a JSON object whose key order is significant (the most
// relevant category comes first), so it is kept as an ordered slice.
type Skills []SkillCategory

// Get returns the values of a category.
func (s Skills) Get(category string) (string, bool) {
	for _, c := range s {
		if c.Category == category {
			return c.Values, true
		}
	}
	return "", false
}

// Set updates a category in place or appends it.
func (s *Skills) Set(category, values string) {
	for i := range *s {
		if (*s)[i].Category == category {
			(*s)[i].Values = values
			return
		}
	}
	*s = append(*s, SkillCategory{Category: category, Values: values})
}

// All returns every skill across categories in order.
func (s Skills) All() []string {
	var out []string
	for _, c := range s {
		out = append(out, c.List()...)
	}
	return out
}

// MarshalJSON writes the categories as an object preserving their order.
func (s Skills) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Category)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of category to values, keeping key order. Values may be a
// comma joined string or a list. A bare list becomes a single "Skills" category.
func (s *Skills) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var list StringList
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = Skills{{Category: "Skills", Values: strings.Join(list, ", ")}}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("skills must be an object")
	}
	out := Skills{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected skills key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var values StringList
		if err := json.Unmarshal(raw, &values); err != nil {
			continue
		}
		out = append(out, SkillCategory{Category: key, Values: strings.Join(values, ", ")})
	}
	*s = out
	return nil
}
