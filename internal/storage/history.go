package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/forgecv/internal/types"
)

// MaxVersions is how many tailoring results the history keeps.
const MaxVersions = 15

// History is the resume_versions ring buffer, newest first.
type History struct {
	store Store
	now   func() time.Time
	limit int
	// mu serializes read-modify-write cycles of this process.
	mu sync.Mutex
}

// NewHistory creates a history over store.
func NewHistory(store Store) *History {
	return &History{store: store, now: time.Now, limit: MaxVersions}
}

// WithClock replaces the clock (tests).
func (h *History) WithClock(now func() time.Time) *History {
	h.now = now
	return h
}

// List returns every version, newest first.
func (h *History) List(ctx context.Context) ([]types.ResumeVersion, error) {
	var versions []types.ResumeVersion
	err := GetJSON(ctx, h.store, KeyResumeVersions, &versions)
	if _, err := found(err); err != nil {
		return nil, err
	}
	return versions, nil
}

// Entry builds the version record for a tailoring result without storing it.
func (h *History) Entry(resume *types.Resume, analysis *types.JDAnalysis) types.ResumeVersion {
	v := types.ResumeVersion{
		ID:        uuid.NewString(),
		Timestamp: h.now().UTC(),
		Resume:    resume.Clone(),
	}
	if analysis != nil {
		v.JDTitle = analysis.JobTitle
		v.Company = analysis.CompanyName
	}
	return v
}

// Append returns versions with v in front, capped at the history limit.
func (h *History) Append(versions []types.ResumeVersion, v types.ResumeVersion) []types.ResumeVersion {
	out := append([]types.ResumeVersion{v}, versions...)
	if len(out) > h.limit {
		out = out[:h.limit]
	}
	return out
}

// Save records a tailoring result.
func (h *History) Save(ctx context.Context, resume *types.Resume, analysis *types.JDAnalysis) (types.ResumeVersion, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	versions, err := h.List(ctx)
	if err != nil {
		return types.ResumeVersion{}, err
	}
	v := h.Entry(resume, analysis)
	if err := SetJSON(ctx, h.store, KeyResumeVersions, h.Append(versions, v)); err != nil {
		return types.ResumeVersion{}, err
	}
	return v, nil
}

// Get returns one version.
func (h *History) Get(ctx context.Context, id string) (types.ResumeVersion, error) {
	versions, err := h.List(ctx)
	if err != nil {
		return types.ResumeVersion{}, err
	}
	for _, v := range versions {
		if v.ID == id {
			return v, nil
		}
	}
	return types.ResumeVersion{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
}

// Restore makes a stored version the current tailored resume.
func (h *History) Restore(ctx context.Context, id string) (types.ResumeVersion, error) {
	v, err := h.Get(ctx, id)
	if err != nil {
		return v, err
	}
	if v.Resume == nil {
		return v, fmt.Errorf("version %s has no resume: %w", id, ErrNotFound)
	}
	return v, SetJSON(ctx, h.store, KeyTailoredResume, v.Resume)
}

// Delete removes one version.
func (h *History) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	versions, err := h.List(ctx)
	if err != nil {
		return err
	}
	out := versions[:0]
	removed := false
	for _, v := range versions {
		if v.ID == id {
			removed = true
			continue
		}
		out = append(out, v)
	}
	if !removed {
		return fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	return SetJSON(ctx, h.store, KeyResumeVersions, out)
}

// Clear removes every version.
func (h *History) Clear(ctx context.Context) error {
	return h.store.Remove(ctx, KeyResumeVersions)
}
