package pipeline

import "math"

// aggregate computes the workflow-level composite: the role-weighted sum of
// each scored stage's best composite, plus two bounded research bonuses,
// clamped to 1.0. Both bonuses are zero when no research was consulted.
func aggregate(exec *Execution, cfg *Config) float64 {
	var base float64
	for _, stage := range ScoredStages() {
		base += bestComposite(exec, stage) * cfg.RoleWeights[string(stage)]
	}

	bonus := researchBonus(exec.Research, cfg.ResearchBonusCap) +
		researchQualityBonus(exec.Research, cfg.ResearchQualityBonusCap)

	return math.Min(base+bonus, 1.0)
}

// bestComposite returns the highest composite recorded for a stage across
// all attempts, matching the cap-exhaustion rule that proceeds with the best
// result seen in a refinement loop.
func bestComposite(exec *Execution, stage StageName) float64 {
	var best float64
	for _, sr := range exec.Stages {
		if sr.Stage == stage && sr.Assessment.Composite > best {
			best = sr.Assessment.Composite
		}
	}
	return best
}

// researchBonus rewards breadth of consulted sources, scaled by relevance.
func researchBonus(sources []SourceUse, limit float64) float64 {
	if len(sources) == 0 {
		return 0
	}

	var sum float64
	for _, src := range sources {
		sum += src.Relevance
	}
	return math.Min(0.02*sum, limit)
}

// researchQualityBonus rewards the fraction of sources with high relevance.
func researchQualityBonus(sources []SourceUse, limit float64) float64 {
	if len(sources) == 0 {
		return 0
	}

	var high int
	for _, src := range sources {
		if src.Relevance >= 0.8 {
			high++
		}
	}
	return limit * float64(high) / float64(len(sources))
}
