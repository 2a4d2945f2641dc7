package steps

import (
	"strings"

	"github.com/jonathan/forgecv/internal/reconcile"
	"github.com/jonathan/forgecv/internal/types"
)

// immutableFields lists, per section, the fields the model may not rewrite.
var immutableFields = map[string][]string{
	types.SectionExperience:     {"role", "company", "dates", "location"},
	types.SectionProjects:       {"name", "link", "dates"},
	types.SectionLeadership:     {"role", "organization", "dates", "location"},
	types.SectionResearch:       {"title", "conference", "dates", "link"},
	types.SectionCertifications: {"name", "issuer", "dates"},
	types.SectionAwards:         {"name", "organization", "dates"},
	types.SectionVolunteering:   {"role", "organization", "dates", "location"},
}

func restoreImmutableFields(r *types.Resume, in Input) {
	base := in.Base
	if base == nil {
		return
	}
	if strings.TrimSpace(base.Name) != "" {
		r.Name = base.Name
	}
	if len(base.Contact) > 0 {
		r.Contact = make(types.Contact, len(base.Contact))
		for k, v := range base.Contact {
			r.Contact[k] = v
		}
	}

	for section, fields := range immutableFields {
		items := r.Items(section)
		if len(items) == 0 {
			continue
		}
		pool := restorePool(base, section)
		for i := range items {
			j, ok := reconcile.BestMatch(pool, items[i])
			if !ok {
				continue
			}
			match := pool[j]
			for _, f := range fields {
				if v := strings.TrimSpace(*field(&match, f)); v != "" {
					*field(&items[i], f) = *field(&match, f)
				}
			}
			if match.ID != "" {
				items[i].ID = match.ID
			}
		}
	}

	if len(base.SectionOrder) > 0 {
		r.SectionOrder = append([]string(nil), base.SectionOrder...)
	}
	if len(base.SectionTitles) > 0 {
		titles := make(map[string]string, len(base.SectionTitles)+len(r.SectionTitles))
		for k, v := range base.SectionTitles {
			titles[k] = v
		}
		for k, v := range r.SectionTitles {
			titles[k] = v
		}
		r.SectionTitles = titles
	}
}

// restorePool is the set of base items a generated item of section may be matched against.
// Projects also see research entries in their project form, since research can be moved there.
func restorePool(base *types.Resume, section string) []types.Item {
	pool := append([]types.Item(nil), base.Items(section)...)
	if section == types.SectionProjects {
		for _, it := range base.Research {
			pool = append(pool, reconcile.ResearchToProject(it))
		}
	}
	return pool
}

// field returns a pointer to the named scalar field of an item.
func field(it *types.Item, name string) *string {
	switch name {
	case "company":
		return &it.Company
	case "name":
		return &it.Name
	case "organization":
		return &it.Organization
	case "title":
		return &it.Title
	case "institution":
		return &it.Institution
	case "role":
		return &it.Role
	case "tech":
		return &it.Tech
	case "conference":
		return &it.Conference
	case "degree":
		return &it.Degree
	case "gpa":
		return &it.GPA
	case "issuer":
		return &it.Issuer
	case "dates":
		return &it.Dates
	case "location":
		return &it.Location
	case "link":
		return &it.Link
	}
	panic("steps: unknown item field " + name)
}
