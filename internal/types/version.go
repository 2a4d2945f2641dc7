package types

import "time"

// ResumeVersion is one entry of the tailoring history.
type ResumeVersion struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	JDTitle   string    `json:"jd_title"`
	Company   string    `json:"company,omitempty"`
	Resume    *Resume   `json:"resume"`
}
