// Package storage is the durable key/value state of a workspace: the base and tailored
// resumes, the cached job description analysis, exclusion state, format settings, the hosted
// session and the version history.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Keys.
const (
	KeyBaseResume       = "base_resume"
	KeyTailoredResume   = "tailored_resume"
	KeyJDAnalysis       = "jd_analysis"
	KeyLastParsedJDText = "last_parsed_jd_text"
	KeyJDText           = "jd_text"
	KeyExcludedItems    = "excluded_items"
	KeyMustInclude      = "must_include_items"
	KeyDeletedItems     = "deleted_items"
	KeyFormatSettings   = "format_settings"
	KeyResumeVersions   = "resume_versions"
	KeyAccessToken      = "access_token"
	KeyRefreshToken     = "refresh_token"
	KeyMergeResearch    = "merge_research_into_projects"
	KeyStrategy         = "tailoring_strategy"
	KeyPageTarget       = "page_target"
)

// Store is an asynchronous key/value store. Writers follow last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes every entry or none of them.
	SetMany(ctx context.Context, entries map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
}

// GetJSON decodes the value of key into v. It returns ErrNotFound when the key is unset.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Key: key, Cause: err}
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data)
}

// Batch collects JSON values to be written together with SetMany.
type Batch map[string][]byte

// Put encodes v under key.
func (b Batch) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b[key] = data
	return nil
}

// found turns ErrNotFound into (false, nil).
func found(err error) (bool, error) {
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
