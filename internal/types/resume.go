// Package types provides type definitions for structured data used throughout the forgecv system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Section identifiers recognized in a resume document.
const (
	SectionSummary        = "summary"
	SectionSkills         = "skills"
	SectionExperience     = "experience"
	SectionProjects       = "projects"
	SectionEducation      = "education"
	SectionLeadership     = "leadership"
	SectionResearch       = "research"
	SectionCertifications = "certifications"
	SectionAwards         = "awards"
	SectionVolunteering   = "volunteering"
	SectionLanguages      = "languages"
)

// DefaultSectionOrder is the order used when a resume carries no section_order.
var DefaultSectionOrder = []string{
	SectionSummary,
	SectionSkills,
	SectionExperience,
	SectionProjects,
	SectionEducation,
	SectionLeadership,
	SectionResearch,
	SectionCertifications,
	SectionAwards,
	SectionVolunteering,
	SectionLanguages,
}

// ItemSections lists the sections whose content is an ordered list of Items.
var ItemSections = []string{
	SectionExperience,
	SectionProjects,
	SectionEducation,
	SectionLeadership,
	SectionResearch,
	SectionCertifications,
	SectionAwards,
	SectionVolunteering,
}

// BulletSections lists the item sections whose bullets are tailored and counted.
var BulletSections = []string{
	SectionExperience,
	SectionProjects,
	SectionLeadership,
	SectionResearch,
	SectionVolunteering,
}

// IsItemSection reports whether section holds Items.
func IsItemSection(section string) bool {
	for _, s := range ItemSections {
		if s == section {
			return true
		}
	}
	return false
}

// Item is one entry of a list section (a job, a project, a degree...).
type Item struct {
	ID string `json:"id,omitempty"`

	// Identity fields. Exactly one is normally set, depending on the section.
	Company      string `json:"company,omitempty"`
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Title        string `json:"title,omitempty"`
	Institution  string `json:"institution,omitempty"`

	// Descriptive fields.
	Role       string `json:"role,omitempty"`
	Tech       string `json:"tech,omitempty"`
	Conference string `json:"conference,omitempty"`
	Degree     string `json:"degree,omitempty"`
	GPA        string `json:"gpa,omitempty"`
	Issuer     string `json:"issuer,omitempty"`
	Dates      string `json:"dates,omitempty"`
	Location   string `json:"location,omitempty"`
	Link       string `json:"link,omitempty"`

	Bullets               []string `json:"bullets,omitempty"`
	BulletCountPreference *int     `json:"bullet_count_preference,omitempty"`
}

// Identity returns the name-like field used to correlate items across snapshots.
func (it Item) Identity() string {
	for _, v := range []string{it.Company, it.Name, it.Organization, it.Title, it.Institution} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Secondary returns the descriptive field that disambiguates items sharing an identity.
func (it Item) Secondary() string {
	for _, v := range []string{it.Role, it.Tech, it.Conference, it.Degree} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Label renders an item as "identity (secondary)" for listings.
func (it Item) Label() string {
	id := it.Identity()
	if id == "" {
		id = "Item"
	}
	if sec := it.Secondary(); sec != "" {
		return id + " (" + sec + ")"
	}
	return id
}

// NonEmptyBullets returns the bullets that carry text.
func (it Item) NonEmptyBullets() []string {
	out := make([]string, 0, len(it.Bullets))
	for _, b := range it.Bullets {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	c := it
	if it.Bullets != nil {
		c.Bullets = append([]string(nil), it.Bullets...)
	}
	if it.BulletCountPreference != nil {
		n := *it.BulletCountPreference
		c.BulletCountPreference = &n
	}
	return c
}

// UnmarshalJSON decodes an item leniently: scalar fields accept strings, numbers and booleans,
// bullets accept a list or a single string, and unknown keys are ignored.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("item must be an object: %w", err)
	}
	*it = Item{}
	fields := map[string]*string{
		"id":           &it.ID,
		"company":      &it.Company,
		"name":         &it.Name,
		"organization": &it.Organization,
		"title":        &it.Title,
		"institution":  &it.Institution,
		"role":         &it.Role,
		"tech":         &it.Tech,
		"conference":   &it.Conference,
		"degree":       &it.Degree,
		"gpa":          &it.GPA,
		"issuer":       &it.Issuer,
		"dates":        &it.Dates,
		"location":     &it.Location,
		"link":         &it.Link,
	}
	for key, dst := range fields {
		if v, ok := raw[key]; ok {
			*dst = string(looseString(v))
		}
	}
	if v, ok := raw["bullets"]; ok {
		var bullets StringList
		if one := strings.TrimSpace(string(looseString(v))); one != "" {
			it.Bullets = []string{one}
		} else if err := json.Unmarshal(v, &bullets); err == nil {
			it.Bullets = bullets
		}
	}
	if v, ok := raw["bullet_count_preference"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(string(looseString(v)))); err == nil {
			it.BulletCountPreference = &n
		}
	}
	return nil
}

// Contact holds contact details keyed by field name (email, phone, linkedin...).
type Contact map[string]string

// UnmarshalJSON accepts non-string values and drops nulls.
func (c *Contact) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Contact, len(raw))
	for k, v := range raw {
		if s := string(looseString(v)); s != "" {
			out[k] = s
		}
	}
	*c = out
	return nil
}

// Resume is a semi-structured resume document.
type Resume struct {
	Name    string  `json:"name,omitempty"`
	Contact Contact `json:"contact,omitempty"`
	Summary string  `json:"summary,omitempty"`
	Skills  Skills  `json:"skills,omitempty"`

	Experience     []Item `json:"experience,omitempty"`
	Projects       []Item `json:"projects,omitempty"`
	Education      []Item `json:"education,omitempty"`
	Leadership     []Item `json:"leadership,omitempty"`
	Research       []Item `json:"research,omitempty"`
	Certifications []Item `json:"certifications,omitempty"`
	Awards         []Item `json:"awards,omitempty"`
	Volunteering   []Item `json:"volunteering,omitempty"`

	Languages string `json:"languages,omitempty"`

	SectionOrder  []string          `json:"section_order,omitempty"`
	SectionTitles map[string]string `json:"section_titles,omitempty"`
}

// UnmarshalJSON decodes each top-level key independently. A malformed section is dropped
// instead of failing the whole document, since resumes mostly arrive from model output.
func (r *Resume) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("resume must be an object: %w", err)
	}
	*r = Resume{}
	for key, v := range raw {
		switch key {
		case "name":
			r.Name = string(looseString(v))
		case SectionSummary:
			r.Summary = string(looseString(v))
		case SectionLanguages:
			var list StringList
			if json.Unmarshal(v, &list) == nil {
				r.Languages = strings.Join(list, ", ")
			}
		case "contact":
			var c Contact
			if json.Unmarshal(v, &c) == nil {
				r.Contact = c
			}
		case SectionSkills:
			var s Skills
			if json.Unmarshal(v, &s) == nil {
				r.Skills = s
			}
		case "section_order":
			var order StringList
			if json.Unmarshal(v, &order) == nil {
				r.SectionOrder = order
			}
		case "section_titles":
			var titles map[string]string
			if json.Unmarshal(v, &titles) == nil {
				r.SectionTitles = titles
			}
		default:
			if !IsItemSection(key) {
				continue
			}
			var items []Item
			if json.Unmarshal(v, &items) == nil {
				r.SetItems(key, items)
			}
		}
	}
	return nil
}

// Items returns the item list of a section, or nil for non-item sections.
func (r *Resume) Items(section string) []Item {
	if r == nil {
		return nil
	}
	switch section {
	case SectionExperience:
		return r.Experience
	case SectionProjects:
		return r.Projects
	case SectionEducation:
		return r.Education
	case SectionLeadership:
		return r.Leadership
	case SectionResearch:
		return r.Research
	case SectionCertifications:
		return r.Certifications
	case SectionAwards:
		return r.Awards
	case SectionVolunteering:
		return r.Volunteering
	}
	return nil
}

// SetItems replaces the item list of a section. Unknown sections are ignored.
func (r *Resume) SetItems(section string, items []Item) {
	switch section {
	case SectionExperience:
		r.Experience = items
	case SectionProjects:
		r.Projects = items
	case SectionEducation:
		r.Education = items
	case SectionLeadership:
		r.Leadership = items
	case SectionResearch:
		r.Research = items
	case SectionCertifications:
		r.Certifications = items
	case SectionAwards:
		r.Awards = items
	case SectionVolunteering:
		r.Volunteering = items
	}
}

// HasSection reports whether a section carries any content.
func (r *Resume) HasSection(section string) bool {
	if r == nil {
		return false
	}
	switch section {
	case SectionSummary:
		return strings.TrimSpace(r.Summary) != ""
	case SectionSkills:
		return len(r.Skills) > 0
	case SectionLanguages:
		return strings.TrimSpace(r.Languages) != ""
	}
	return len(r.Items(section)) > 0
}

// Clone returns a deep copy of the resume.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return nil
	}
	c := *r
	if r.Contact != nil {
		c.Contact = make(Contact, len(r.Contact))
		for k, v := range r.Contact {
			c.Contact[k] = v
		}
	}
	if r.Skills != nil {
		c.Skills = append(Skills(nil), r.Skills...)
	}
	for _, section := range ItemSections {
		items := r.Items(section)
		if items == nil {
			continue
		}
		cp := make([]Item, len(items))
		for i, it := range items {
			cp[i] = it.Clone()
		}
		c.SetItems(section, cp)
	}
	if r.SectionOrder != nil {
		c.SectionOrder = append([]string(nil), r.SectionOrder...)
	}
	if r.SectionTitles != nil {
		c.SectionTitles = make(map[string]string, len(r.SectionTitles))
		for k, v := range r.SectionTitles {
			c.SectionTitles[k] = v
		}
	}
	return &c
}

// AssignItemIDs gives every item without an id a fresh synthetic one. It returns the number of
// ids assigned.
func AssignItemIDs(r *Resume) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, section := range ItemSections {
		items := r.Items(section)
		for i := range items {
			if items[i].ID == "" {
				items[i].ID = uuid.NewString()
				n++
			}
		}
	}
	return n
}

// ParseResume decodes a resume document.
func ParseResume(data []byte) (*Resume, error) {
	var r Resume
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
