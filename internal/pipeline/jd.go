package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/forgecv/internal/llm"
	"github.com/jonathan/forgecv/internal/prompts"
	"github.com/jonathan/forgecv/internal/schemas"
	"github.com/jonathan/forgecv/internal/storage"
	"github.com/jonathan/forgecv/internal/types"
)

// AnalyzeJD returns the analysis of a job description. The trimmed text is the cache key: an
// identical text is answered from the store, and concurrent calls for the same text share one
// model call. Output that is not JSON degrades to the stub analysis, which is cached like any
// other result; ForgetJDAnalysis clears it. Gateway errors are returned as is and cache nothing.
func (o *Orchestrator) AnalyzeJD(ctx context.Context, jdText, actionID string) (*types.JDAnalysis, error) {
	key := strings.TrimSpace(jdText)
	if key == "" {
		return nil, ErrNoJobDescription
	}
	if a, ok := o.cachedAnalysis(ctx, key); ok {
		return a, nil
	}

	v, err, shared := o.flight.Do(key, func() (any, error) {
		if a, ok := o.cachedAnalysis(ctx, key); ok {
			return a, nil
		}
		text, err := o.gen.Generate(ctx, prompts.BuildJDParse(key), llm.Options{
			TaskType:   llm.TaskJDParse,
			ExpectJSON: true,
			ActionID:   actionID,
		})
		if err != nil {
			return nil, err
		}
		a, ok := o.decodeAnalysis(text)
		if !ok {
			o.logger.Warn("job description analysis unparseable, using stub", "snippet", llm.Snippet(text, snippetLength))
		}
		if err := o.session.SaveJDAnalysis(ctx, key, a); err != nil {
			return nil, err
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		o.logger.Debug("job description analysis shared with a concurrent caller")
	}
	return v.(*types.JDAnalysis), nil
}

// ForgetJDAnalysis drops the cached analysis so the next AnalyzeJD parses again.
func (o *Orchestrator) ForgetJDAnalysis(ctx context.Context) error {
	return o.session.Store().Remove(ctx, storage.KeyLastParsedJDText, storage.KeyJDAnalysis)
}

func (o *Orchestrator) cachedAnalysis(ctx context.Context, key string) (*types.JDAnalysis, bool) {
	a, ok, err := o.session.CachedJDAnalysis(ctx, key)
	if err != nil {
		o.logger.Warn("reading cached job description analysis", "error", err)
		return nil, false
	}
	return a, ok
}

// decodeAnalysis turns model output into an analysis. Missing identity fields take the stub's
// values so downstream prompts never see empty placeholders.
func (o *Orchestrator) decodeAnalysis(text string) (*types.JDAnalysis, bool) {
	raw, ok := llm.ExtractJSON(text)
	if !ok {
		return types.StubJDAnalysis(), false
	}
	var a types.JDAnalysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return types.StubJDAnalysis(), false
	}
	if err := schemas.ValidateBytes(schemas.JDAnalysis, raw); err != nil {
		o.logger.Debug("job description analysis does not match schema", "error", err)
	}
	stub := types.StubJDAnalysis()
	if strings.TrimSpace(a.CompanyName) == "" {
		a.CompanyName = stub.CompanyName
	}
	if strings.TrimSpace(a.JobTitle) == "" {
		a.JobTitle = stub.JobTitle
	}
	if a.MandatoryKeywords == nil {
		a.MandatoryKeywords = types.StringList{}
	}
	return &a, true
}
