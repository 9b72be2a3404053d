package pipeline

import "context"

// Scoring dimensions per review stage. Weight tables are resolved against
// these sets during config finalization; the default is an equal split.
var (
	draftDimensions = []string{
		"summary_clarity",
		"story_format",
		"initial_criteria",
		"business_value",
		"context_research",
	}

	technicalDimensions = []string{
		"technical_accuracy",
		"complexity_assessment",
		"architecture_alignment",
		"risk_identification",
		"implementation_guidance",
		"review_completeness",
		"feedback_quality",
	}

	qualityDimensions = []string{
		"testability",
		"coverage_planning",
		"automation_feasibility",
		"edge_case_identification",
		"quality_metrics",
		"testing_strategy",
	}

	complianceDimensions = []string{
		"regulatory_compliance",
		"policy_alignment",
		"approval_workflow",
		"risk_assessment",
		"documentation_requirements",
	}
)

var scoredStages = []StageName{
	StageDraft,
	StageTechnical,
	StageQuality,
	StageCompliance,
}

// ScoredStages returns the stages that produce a quality assessment, in
// pipeline order. Finalize formats and writes; it has no scoring dimensions.
func ScoredStages() []StageName {
	return scoredStages
}

// Dimensions returns the scoring dimension set for a stage.
func Dimensions(stage StageName) []string {
	switch stage {
	case StageDraft:
		return draftDimensions
	case StageTechnical:
		return technicalDimensions
	case StageQuality:
		return qualityDimensions
	case StageCompliance:
		return complianceDimensions
	default:
		return nil
	}
}

// stageFunc executes one stage against the execution's current artifact.
// feedback carries an adjacent stage's critique during refinement loops;
// regenerate permits the stage to rewrite its own prior output.
type stageFunc func(ctx context.Context, rt *Runtime, exec *Execution, feedback string, regenerate bool) (Artifact, QualityAssessment, error)

func stageRunner(stage StageName) stageFunc {
	switch stage {
	case StageDraft:
		return runDraft
	case StageTechnical:
		return runTechnical
	case StageQuality:
		return runQuality
	case StageCompliance:
		return runCompliance
	default:
		return nil
	}
}
