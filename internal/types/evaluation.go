package types

// FeasibilityResult reports whether an itinerary fits its time windows,
// travel limits, and pace.
type FeasibilityResult struct {
	IsFeasible bool     `json:"is_feasible"`
	Score      float64  `json:"score"`
	Violations []string `json:"violations"`
	Warnings   []string `json:"warnings"`
}

// GroundingResult reports source attribution across an itinerary.
type GroundingResult struct {
	IsGrounded         bool     `json:"is_grounded"`
	Score              float64  `json:"score"`
	MissingCitations   []string `json:"missing_citations"`
	UncertainData      []string `json:"uncertain_data"`
	AllPOIsHaveSources bool     `json:"all_pois_have_sources"`
}

// EditCorrectnessResult reports whether an edit stayed inside its intended
// scope.
type EditCorrectnessResult struct {
	IsCorrect         bool     `json:"is_correct"`
	ModifiedSections  []string `json:"modified_sections"`
	UnchangedSections []string `json:"unchanged_sections"`
	Violations        []string `json:"violations"`
}

// Evaluation aggregates the evaluator outputs stored on a session.
type Evaluation struct {
	Feasibility     *FeasibilityResult     `json:"feasibility,omitempty"`
	Grounding       *GroundingResult       `json:"grounding,omitempty"`
	EditCorrectness *EditCorrectnessResult `json:"edit_correctness,omitempty"`
}

// Clone returns a deep copy of the evaluation.
func (e *Evaluation) Clone() *Evaluation {
	if e == nil {
		return nil
	}
	out := &Evaluation{}
	if e.Feasibility != nil {
		f := *e.Feasibility
		f.Violations = append([]string(nil), e.Feasibility.Violations...)
		f.Warnings = append([]string(nil), e.Feasibility.Warnings...)
		out.Feasibility = &f
	}
	if e.Grounding != nil {
		g := *e.Grounding
		g.MissingCitations = append([]string(nil), e.Grounding.MissingCitations...)
		g.UncertainData = append([]string(nil), e.Grounding.UncertainData...)
		out.Grounding = &g
	}
	if e.EditCorrectness != nil {
		c := *e.EditCorrectness
		c.ModifiedSections = append([]string(nil), e.EditCorrectness.ModifiedSections...)
		c.UnchangedSections = append([]string(nil), e.EditCorrectness.UnchangedSections...)
		c.Violations = append([]string(nil), e.EditCorrectness.Violations...)
		out.EditCorrectness = &c
	}
	return out
}
