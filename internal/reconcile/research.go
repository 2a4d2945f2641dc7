package reconcile

import (
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

// ResearchToProject converts a research entry into a project entry: the title becomes the
// name, and the venue and link become leading bullets.
func ResearchToProject(it types.Item) types.Item {
	p := types.Item{
		ID:                    it.ID,
		Name:                  first(it.Title, it.Name),
		Dates:                 it.Dates,
		Link:                  it.Link,
		BulletCountPreference: it.BulletCountPreference,
	}
	if venue := strings.TrimSpace(it.Conference); venue != "" {
		p.Bullets = append(p.Bullets, "Published in: "+venue)
	}
	if link := strings.TrimSpace(it.Link); link != "" {
		p.Bullets = append(p.Bullets, "Link: "+link)
	}
	p.Bullets = append(p.Bullets, it.Bullets...)
	return p.Clone()
}

// MergeResearchIntoProjects moves every research item to the end of projects and removes the
// research section from the section order. Items already present in projects are not
// duplicated.
func MergeResearchIntoProjects(r *types.Resume) {
	if r == nil || len(r.Research) == 0 {
		return
	}
	for _, it := range r.Research {
		p := ResearchToProject(it)
		if Find(r.Projects, p) >= 0 {
			continue
		}
		r.Projects = append(r.Projects, p)
	}
	r.Research = nil
	if len(r.SectionOrder) > 0 {
		order := r.SectionOrder[:0:0]
		hasProjects := false
		for _, s := range r.SectionOrder {
			if s == types.SectionResearch {
				continue
			}
			if s == types.SectionProjects {
				hasProjects = true
			}
			order = append(order, s)
		}
		if !hasProjects {
			order = append(order, types.SectionProjects)
		}
		r.SectionOrder = order
	}
}
