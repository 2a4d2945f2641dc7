// Package steps provides the ordered post-processing stages applied to every tailored resume
// and the runner that executes them.
package steps

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/forgecv/internal/bullets"
	"github.com/jonathan/forgecv/internal/types"
)

// Stage names, in execution order.
const (
	StepRestoreImmutable  = "restore_immutable_fields"
	StepCleanTailored     = "clean_tailored_resume"
	StepKeywordStuffing   = "clean_keyword_stuffing"
	StepHallucinatedSkill = "remove_hallucinated_skills"
	StepKeywordCoverage   = "ensure_keyword_coverage"
	StepSkillLimits       = "enforce_skill_limits"
	StepBulletLimits      = "enforce_bullet_limits"
)

// Stage categories.
const (
	CategoryRestore  = "restore"
	CategoryCleanup  = "cleanup"
	CategoryKeywords = "keywords"
	CategoryLimits   = "limits"
)

// Input is the read-only context every stage sees alongside the resume being processed.
type Input struct {
	// Base is the resume the model was asked to tailor. Immutable fields are restored from it
	// and skills are checked against it.
	Base *types.Resume
	// Analysis is the JD analysis; nil or a stub disables the keyword stages.
	Analysis *types.JDAnalysis
	// Counts holds per-item bullet overrides.
	Counts bullets.Counts
}

// StepFunc mutates the resume in place. It must tolerate missing and malformed sections.
type StepFunc func(r *types.Resume, in Input)

// StepDefinition defines metadata for a post-processing stage.
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	Apply        StepFunc
}

// StepResult represents the result of executing a stage.
type StepResult struct {
	Step     string
	Duration time.Duration
	Error    error
}

// Registry is the post-processing chain. Order is significant: every stage assumes the stages it
// depends on have already run.
var Registry = []StepDefinition{
	{
		Name:     StepRestoreImmutable,
		Category: CategoryRestore,
		Apply:    restoreImmutableFields,
	},
	{
		Name:         StepCleanTailored,
		Category:     CategoryCleanup,
		Dependencies: []string{StepRestoreImmutable},
		Apply:        func(r *types.Resume, _ Input) { CleanTailoredResume(r) },
	},
	{
		Name:         StepKeywordStuffing,
		Category:     CategoryKeywords,
		Dependencies: []string{StepCleanTailored},
		Apply:        cleanKeywordStuffing,
	},
	{
		Name:         StepHallucinatedSkill,
		Category:     CategoryKeywords,
		Dependencies: []string{StepCleanTailored},
		Apply:        removeHallucinatedSkills,
	},
	{
		Name:         StepKeywordCoverage,
		Category:     CategoryKeywords,
		Dependencies: []string{StepKeywordStuffing, StepHallucinatedSkill},
		Apply:        ensureKeywordCoverage,
	},
	{
		Name:         StepSkillLimits,
		Category:     CategoryLimits,
		Dependencies: []string{StepKeywordCoverage},
		Apply:        func(r *types.Resume, _ Input) { EnforceSkillLimits(r) },
	},
	{
		Name:         StepBulletLimits,
		Category:     CategoryLimits,
		Dependencies: []string{StepCleanTailored},
		Apply:        enforceBulletLimits,
	},
}

// Names returns the stage names of a chain in order.
func Names(chain []StepDefinition) []string {
	out := make([]string, len(chain))
	for i, d := range chain {
		out[i] = d.Name
	}
	return out
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s runs before its dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateOrder checks that every stage appears after all of its dependencies.
func ValidateOrder(chain []StepDefinition) error {
	done := make(map[string]bool, len(chain))
	for _, def := range chain {
		var missing []string
		for _, dep := range def.Dependencies {
			if !done[dep] {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return &DependencyError{Step: def.Name, MissingDependencies: missing}
		}
		done[def.Name] = true
	}
	return nil
}

// StagePanicError records a stage that panicked. The resume is rolled back to its state before
// that stage and the chain continues.
type StagePanicError struct {
	Step  string
	Value any
}

func (e *StagePanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.Step, e.Value)
}

// Run applies Registry to r.
func Run(r *types.Resume, in Input) (*types.Resume, []StepResult) {
	return RunChain(Registry, r, in)
}

// RunChain applies the stages of chain to a copy of r in order and returns the processed copy
// with one result per stage. A nil resume is treated as empty.
func RunChain(chain []StepDefinition, r *types.Resume, in Input) (*types.Resume, []StepResult) {
	cur := r.Clone()
	if cur == nil {
		cur = &types.Resume{}
	}
	results := make([]StepResult, 0, len(chain))
	for _, def := range chain {
		start := time.Now()
		next, err := apply(def, cur, in)
		if err != nil {
			slog.Warn("post-processing stage failed", "step", def.Name, "error", err)
		} else {
			cur = next
		}
		results = append(results, StepResult{Step: def.Name, Duration: time.Since(start), Error: err})
	}
	return cur, results
}

func apply(def StepDefinition, r *types.Resume, in Input) (out *types.Resume, err error) {
	work := r.Clone()
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, &StagePanicError{Step: def.Name, Value: v}
		}
	}()
	def.Apply(work, in)
	return work, nil
}
