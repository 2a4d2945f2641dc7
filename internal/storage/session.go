package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathan/forgecv/internal/types"
)

// Session gives typed access to the workspace keys. It replaces ad hoc reads of the raw store
// so that every mutation site goes through one place.
type Session struct {
	store Store
}

// NewSession wraps a store.
func NewSession(s Store) *Session {
	return &Session{store: s}
}

// Store returns the underlying store.
func (s *Session) Store() Store {
	return s.store
}

// BaseResume returns the imported resume, or ErrNotFound.
func (s *Session) BaseResume(ctx context.Context) (*types.Resume, error) {
	var r types.Resume
	if err := GetJSON(ctx, s.store, KeyBaseResume, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveBaseResume replaces the base resume.
func (s *Session) SaveBaseResume(ctx context.Context, r *types.Resume) error {
	return SetJSON(ctx, s.store, KeyBaseResume, r)
}

// TailoredResume returns the current tailored resume, or ErrNotFound.
func (s *Session) TailoredResume(ctx context.Context) (*types.Resume, error) {
	var r types.Resume
	if err := GetJSON(ctx, s.store, KeyTailoredResume, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SaveTailoredResume replaces the tailored resume.
func (s *Session) SaveTailoredResume(ctx context.Context, r *types.Resume) error {
	return SetJSON(ctx, s.store, KeyTailoredResume, r)
}

// CachedJDAnalysis returns the stored analysis when it was produced for exactly key.
func (s *Session) CachedJDAnalysis(ctx context.Context, key string) (*types.JDAnalysis, bool, error) {
	last, err := s.store.Get(ctx, KeyLastParsedJDText)
	if ok, err := found(err); !ok {
		return nil, false, err
	}
	if string(last) != key {
		return nil, false, nil
	}
	var a types.JDAnalysis
	err = GetJSON(ctx, s.store, KeyJDAnalysis, &a)
	if ok, err := found(err); !ok {
		return nil, false, err
	}
	return &a, true, nil
}

// JDAnalysis returns the last stored analysis regardless of which text produced it.
func (s *Session) JDAnalysis(ctx context.Context) (*types.JDAnalysis, error) {
	var a types.JDAnalysis
	if err := GetJSON(ctx, s.store, KeyJDAnalysis, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveJDAnalysis stores an analysis together with the text it was parsed from.
func (s *Session) SaveJDAnalysis(ctx context.Context, key string, a *types.JDAnalysis) error {
	b := Batch{KeyLastParsedJDText: []byte(key)}
	if err := b.Put(KeyJDAnalysis, a); err != nil {
		return err
	}
	return s.store.SetMany(ctx, b)
}

// JDText returns the job description the user is working against.
func (s *Session) JDText(ctx context.Context) (string, error) {
	data, err := s.store.Get(ctx, KeyJDText)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveJDText stores the job description text.
func (s *Session) SaveJDText(ctx context.Context, text string) error {
	return s.store.Set(ctx, KeyJDText, []byte(text))
}

// Exclusions returns the items the model dropped. Missing state is an empty map.
func (s *Session) Exclusions(ctx context.Context) (types.ExcludedItems, error) {
	out := types.ExcludedItems{}
	err := GetJSON(ctx, s.store, KeyExcludedItems, &out)
	if _, err := found(err); err != nil {
		return nil, err
	}
	return out, nil
}

// MustInclude returns the user's must-include overrides. Missing state is an empty map.
func (s *Session) MustInclude(ctx context.Context) (types.MustInclude, error) {
	out := types.MustInclude{}
	err := GetJSON(ctx, s.store, KeyMustInclude, &out)
	if _, err := found(err); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveExclusionState writes the exclusion and must-include maps together.
func (s *Session) SaveExclusionState(ctx context.Context, excluded types.ExcludedItems, mustInclude types.MustInclude) error {
	b := Batch{}
	if excluded == nil {
		excluded = types.ExcludedItems{}
	}
	if mustInclude == nil {
		mustInclude = types.MustInclude{}
	}
	if err := b.Put(KeyExcludedItems, excluded); err != nil {
		return err
	}
	if err := b.Put(KeyMustInclude, mustInclude); err != nil {
		return err
	}
	return s.store.SetMany(ctx, b)
}

// DeletedItems returns, per section, the identities of items the user removed in the editor.
func (s *Session) DeletedItems(ctx context.Context) (map[string][]string, error) {
	out := map[string][]string{}
	err := GetJSON(ctx, s.store, KeyDeletedItems, &out)
	if _, err := found(err); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveDeletedItems replaces the deleted item list.
func (s *Session) SaveDeletedItems(ctx context.Context, deleted map[string][]string) error {
	if deleted == nil {
		deleted = map[string][]string{}
	}
	return SetJSON(ctx, s.store, KeyDeletedItems, deleted)
}

// FormatSettings returns the stored settings merged over the defaults.
func (s *Session) FormatSettings(ctx context.Context) (types.FormatSettings, error) {
	data, err := s.store.Get(ctx, KeyFormatSettings)
	if ok, err := found(err); !ok {
		return types.DefaultFormatSettings(), err
	}
	fs, err := types.MergeFormatSettings(data)
	if err != nil {
		return fs, &DecodeError{Key: KeyFormatSettings, Cause: err}
	}
	return fs, nil
}

// SaveFormatSettings validates and stores format settings.
func (s *Session) SaveFormatSettings(ctx context.Context, fs types.FormatSettings) error {
	if err := fs.Validate(); err != nil {
		return err
	}
	return SetJSON(ctx, s.store, KeyFormatSettings, fs)
}

// MergeResearch reports whether research items are shown inside projects.
func (s *Session) MergeResearch(ctx context.Context) (bool, error) {
	return s.flag(ctx, KeyMergeResearch)
}

// SetMergeResearch stores the research merge toggle.
func (s *Session) SetMergeResearch(ctx context.Context, on bool) error {
	return s.store.Set(ctx, KeyMergeResearch, []byte(strconv.FormatBool(on)))
}

func (s *Session) flag(ctx context.Context, key string) (bool, error) {
	data, err := s.store.Get(ctx, key)
	if ok, err := found(err); !ok {
		return false, err
	}
	on, _ := strconv.ParseBool(strings.TrimSpace(string(data)))
	return on, nil
}

// Preferences returns the tailoring strategy and page target, with defaults balanced and 1.
func (s *Session) Preferences(ctx context.Context) (types.TailoringStrategy, int, error) {
	strategy := types.StrategyBalanced
	pages := 1
	data, err := s.store.Get(ctx, KeyStrategy)
	if ok, err := found(err); err != nil {
		return strategy, pages, err
	} else if ok {
		strategy = types.ParseTailoringStrategy(string(data))
	}
	data, err = s.store.Get(ctx, KeyPageTarget)
	if ok, err := found(err); err != nil {
		return strategy, pages, err
	} else if ok {
		if n, convErr := strconv.Atoi(string(data)); convErr == nil && (n == 1 || n == 2) {
			pages = n
		}
	}
	return strategy, pages, nil
}

// SavePreferences stores the tailoring strategy and page target.
func (s *Session) SavePreferences(ctx context.Context, strategy types.TailoringStrategy, pages int) error {
	return s.store.SetMany(ctx, map[string][]byte{
		KeyStrategy:   []byte(types.ParseTailoringStrategy(string(strategy))),
		KeyPageTarget: []byte(strconv.Itoa(pages)),
	})
}

// Tokens implements the hosted client's token store.
func (s *Session) Tokens(ctx context.Context) (string, string, error) {
	access, err := s.store.Get(ctx, KeyAccessToken)
	if _, err := found(err); err != nil {
		return "", "", err
	}
	refresh, err := s.store.Get(ctx, KeyRefreshToken)
	if _, err := found(err); err != nil {
		return "", "", err
	}
	return string(access), string(refresh), nil
}

// SaveTokens implements the hosted client's token store.
func (s *Session) SaveTokens(ctx context.Context, access, refresh string) error {
	return s.store.SetMany(ctx, map[string][]byte{
		KeyAccessToken:  []byte(access),
		KeyRefreshToken: []byte(refresh),
	})
}

// ClearTokens signs out of the hosted tier.
func (s *Session) ClearTokens(ctx context.Context) error {
	return s.store.Remove(ctx, KeyAccessToken, KeyRefreshToken)
}

// Snapshot returns every workspace value a view needs on load, as raw JSON.
func (s *Session) Snapshot(ctx context.Context) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for _, key := range []string{KeyBaseResume, KeyTailoredResume, KeyJDAnalysis, KeyExcludedItems, KeyMustInclude, KeyFormatSettings} {
		data, err := s.store.Get(ctx, key)
		if ok, err := found(err); err != nil {
			return nil, err
		} else if ok && json.Valid(data) {
			out[key] = data
		}
	}
	return out, nil
}
