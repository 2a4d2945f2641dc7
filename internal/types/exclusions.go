package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ItemRef points at a base resume item either by identity string or by a legacy positional index.
type ItemRef struct {
	Name  string
	Index *int
}

// NameRef builds a reference by identity.
func NameRef(name string) ItemRef { return ItemRef{Name: name} }

// IndexRef builds a positional reference.
func IndexRef(i int) ItemRef { return ItemRef{Index: &i} }

// IsIndex reports whether the reference is positional.
func (r ItemRef) IsIndex() bool { return r.Index != nil }

func (r ItemRef) String() string {
	if r.Index != nil {
		return "#" + strconv.Itoa(*r.Index)
	}
	return r.Name
}

// MarshalJSON writes a number for positional references and a string otherwise.
func (r ItemRef) MarshalJSON() ([]byte, error) {
	if r.Index != nil {
		return []byte(strconv.Itoa(*r.Index)), nil
	}
	return json.Marshal(r.Name)
}

// UnmarshalJSON accepts a string, an integer, or an object carrying an identity field.
func (r *ItemRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = ItemRef{}
	if len(data) == 0 {
		return fmt.Errorf("empty item reference")
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.Name)
	case '{':
		var it Item
		if err := json.Unmarshal(data, &it); err != nil {
			return err
		}
		r.Name = it.Identity()
		return nil
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid item reference %s", data)
		}
		i := int(f)
		r.Index = &i
		return nil
	}
}

// ExcludedItems maps a section to the identities of base items the model dropped.
type ExcludedItems map[string][]string

// Count returns the total number of excluded items.
func (e ExcludedItems) Count() int {
	n := 0
	for _, v := range e {
		n += len(v)
	}
	return n
}

// RawExclusions is the excluded_items object as the model returns it, before names are resolved.
type RawExclusions map[string][]ItemRef

// MustInclude maps a section to user flagged items that must be forced back in.
type MustInclude map[string][]ItemRef

// IsEmpty reports whether nothing is flagged.
func (m MustInclude) IsEmpty() bool {
	for _, v := range m {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// Strategy is the output of the optional strategy pass.
type Strategy struct {
	Exclude map[string][]string `json:"exclude"`
	Notes   string              `json:"notes,omitempty"`
}

// TailoringStrategy selects how aggressively a resume is rewritten.
type TailoringStrategy string

// Tailoring strategies.
const (
	StrategyProfileFocus TailoringStrategy = "profile_focus"
	StrategyBalanced     TailoringStrategy = "balanced"
	StrategyJDFocus      TailoringStrategy = "jd_focus"
)

// ParseTailoringStrategy maps unknown values to the balanced default.
func ParseTailoringStrategy(s string) TailoringStrategy {
	switch TailoringStrategy(s) {
	case StrategyProfileFocus, StrategyJDFocus:
		return TailoringStrategy(s)
	}
	return StrategyBalanced
}
