package certification

import "fmt"

// Stage is one step of the fixed certification pipeline. Orders move forward
// only, one stage at a time, until FINISHED.
type Stage string

const (
	StageIntake   Stage = "INTAKE"
	StagePhoto    Stage = "PHOTO"
	StageReview   Stage = "REVIEW"
	StagePrint    Stage = "PRINT"
	StageFinished Stage = "FINISHED"
)

// stageOrder fixes the pipeline sequence.
var stageOrder = []Stage{StageIntake, StagePhoto, StageReview, StagePrint, StageFinished}

// WorkStages are the stages that consume configured time. FINISHED does not.
var WorkStages = []Stage{StageIntake, StagePhoto, StageReview, StagePrint}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(stageOrder))
	for i, s := range stageOrder {
		m[s] = i
	}
	return m
}()

// ParseStage validates a stage label from external input.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if _, ok := stageIndex[st]; !ok {
		return "", fmt.Errorf("%w: unknown stage %q", ErrValidation, s)
	}
	return st, nil
}

// Next returns the successor stage, or false when s is terminal.
func (s Stage) Next() (Stage, bool) {
	idx, ok := stageIndex[s]
	if !ok || idx == len(stageOrder)-1 {
		return "", false
	}
	return stageOrder[idx+1], true
}

// Terminal reports whether s is the end of the pipeline.
func (s Stage) Terminal() bool { return s == StageFinished }

// Valid reports whether s is one of the five pipeline stages.
func (s Stage) Valid() bool {
	_, ok := stageIndex[s]
	return ok
}

// Progress returns how far along the pipeline s is, as a percentage.
func (s Stage) Progress() float64 {
	idx, ok := stageIndex[s]
	if !ok {
		return 0
	}
	return float64(idx) / float64(len(stageOrder)-1) * 100
}
