package score

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned when scoring configuration is unusable.
var ErrInvalidPolicy = errors.New("invalid scoring policy")

// GradeStep assigns Grade to every score at or above Min.
type GradeStep struct {
	Min   float64 `yaml:"min" json:"min"`
	Grade string  `yaml:"grade" json:"grade"`
}

// GradeTable is a step function from score to letter grade. Steps are
// ordered by strictly decreasing Min; scores below the last step get Floor.
type GradeTable struct {
	Steps []GradeStep `yaml:"steps" json:"steps"`
	Floor string      `yaml:"floor" json:"floor"`
}

func DefaultGradeTable() GradeTable {
	return GradeTable{
		Steps: []GradeStep{
			{Min: 97, Grade: "A+"},
			{Min: 93, Grade: "A"},
			{Min: 90, Grade: "A-"},
			{Min: 87, Grade: "B+"},
			{Min: 83, Grade: "B"},
			{Min: 80, Grade: "B-"},
			{Min: 77, Grade: "C+"},
			{Min: 73, Grade: "C"},
			{Min: 70, Grade: "C-"},
			{Min: 60, Grade: "D"},
		},
		Floor: "F",
	}
}

// Validate checks the table is a monotonic step function.
func (g GradeTable) Validate() error {
	if g.Floor == "" {
		return fmt.Errorf("%w: grade table needs a floor grade", ErrInvalidPolicy)
	}
	seen := map[string]bool{g.Floor: true}
	for i, step := range g.Steps {
		if step.Grade == "" {
			return fmt.Errorf("%w: grade step %d has no grade", ErrInvalidPolicy, i)
		}
		if seen[step.Grade] {
			return fmt.Errorf("%w: grade %q appears twice", ErrInvalidPolicy, step.Grade)
		}
		seen[step.Grade] = true
		if step.Min < 0 || step.Min > 100 {
			return fmt.Errorf("%w: grade %q minimum %v outside [0,100]", ErrInvalidPolicy, step.Grade, step.Min)
		}
		if i > 0 && step.Min >= g.Steps[i-1].Min {
			return fmt.Errorf("%w: grade %q minimum %v must be below %v (%q)",
				ErrInvalidPolicy, step.Grade, step.Min, g.Steps[i-1].Min, g.Steps[i-1].Grade)
		}
	}
	return nil
}

// Grade maps a score to its letter grade.
func (g GradeTable) Grade(score float64) string {
	for _, step := range g.Steps {
		if score >= step.Min {
			return step.Grade
		}
	}
	return g.Floor
}

// Rank orders grades from best (0) to the floor (len(Steps)). Unknown
// grades rank below the floor.
func (g GradeTable) Rank(grade string) int {
	for i, step := range g.Steps {
		if step.Grade == grade {
			return i
		}
	}
	if grade == g.Floor {
		return len(g.Steps)
	}
	return len(g.Steps) + 1
}

// Top returns the best grade in the table.
func (g GradeTable) Top() string {
	if len(g.Steps) == 0 {
		return g.Floor
	}
	return g.Steps[0].Grade
}
