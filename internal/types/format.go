package types

import "encoding/json"

// FormatSettings controls how a resume is laid out when rendered.
type FormatSettings struct {
	Font          string `json:"font" validate:"oneof=times helvetica courier"`
	Density       string `json:"density" validate:"oneof=compact normal spacious"`
	Margins       string `json:"margins" validate:"oneof=narrow normal wide"`
	NameSize      int    `json:"nameSize" validate:"min=16,max=28"`
	BodySize      int    `json:"bodySize" validate:"min=9,max=12"`
	HeaderSize    int    `json:"headerSize" validate:"min=10,max=24"`
	SubheaderSize int    `json:"subheaderSize" validate:"min=10,max=18"`
	HeaderStyle   string `json:"headerStyle" validate:"oneof=uppercase_line uppercase_noline bold_line bold_noline"`
	BulletChar    string `json:"bulletChar" validate:"oneof=• –"`
	ShowLinks     bool   `json:"showLinks"`
	DateAlign     string `json:"dateAlign" validate:"oneof=right inline"`
	PageSize      string `json:"pageSize" validate:"oneof=letter a4"`
}

// DefaultFormatSettings returns the stock layout.
func DefaultFormatSettings() FormatSettings {
	return FormatSettings{
		Font:          "times",
		Density:       "normal",
		Margins:       "normal",
		NameSize:      21,
		BodySize:      10,
		HeaderSize:    12,
		SubheaderSize: 11,
		HeaderStyle:   "uppercase_line",
		BulletChar:    "•",
		ShowLinks:     true,
		DateAlign:     "right",
		PageSize:      "letter",
	}
}

// MergeFormatSettings overlays a stored (possibly partial) settings object on the defaults.
func MergeFormatSettings(stored []byte) (FormatSettings, error) {
	fs := DefaultFormatSettings()
	if len(stored) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(stored, &fs); err != nil {
		return DefaultFormatSettings(), err
	}
	return fs, nil
}

// Validate checks the numeric bounds and enumerations.
func (f *FormatSettings) Validate() error {
	return validate.Struct(f)
}
