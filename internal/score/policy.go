package score

import "fmt"

const (
	DefaultReadyScore     = 95.0
	DefaultAttentionScore = 90.0
	DefaultPassThreshold  = 90.0
)

// Policy holds every tunable input of the aggregator. It is built once from
// configuration and never changed during a run.
type Policy struct {
	ReadyScore     float64
	AttentionScore float64
	PassThreshold  float64
	// WarnCredit is the fraction of a WARN result's weight counted as
	// passed. Zero counts WARN like FAIL.
	WarnCredit      float64
	CategoryWeights map[string]float64
	// Critical lists, per category, the check names whose failure blocks
	// readiness regardless of score.
	Critical map[string][]string
	Grades   GradeTable
}

func DefaultPolicy() Policy {
	return Policy{
		ReadyScore:      DefaultReadyScore,
		AttentionScore:  DefaultAttentionScore,
		PassThreshold:   DefaultPassThreshold,
		CategoryWeights: map[string]float64{},
		Critical:        map[string][]string{},
		Grades:          DefaultGradeTable(),
	}
}

func (p Policy) Validate() error {
	if p.AttentionScore < 0 || p.ReadyScore > 100 || p.AttentionScore > p.ReadyScore {
		return fmt.Errorf("%w: need 0 <= attention_score (%v) <= ready_score (%v) <= 100",
			ErrInvalidPolicy, p.AttentionScore, p.ReadyScore)
	}
	if p.PassThreshold < 0 || p.PassThreshold > 100 {
		return fmt.Errorf("%w: pass_threshold %v outside [0,100]", ErrInvalidPolicy, p.PassThreshold)
	}
	if p.WarnCredit < 0 || p.WarnCredit > 1 {
		return fmt.Errorf("%w: warn_credit %v outside [0,1]", ErrInvalidPolicy, p.WarnCredit)
	}
	for name, w := range p.CategoryWeights {
		if w < 0 {
			return fmt.Errorf("%w: category %q has negative weight %v", ErrInvalidPolicy, name, w)
		}
	}
	return p.Grades.Validate()
}

// Weight returns the configured weight of a category, 1 when unset.
func (p Policy) Weight(category string) float64 {
	if w, ok := p.CategoryWeights[category]; ok {
		return w
	}
	return 1
}

func (p Policy) isCritical(category, name string) bool {
	for _, n := range p.Critical[category] {
		if n == name {
			return true
		}
	}
	return false
}
