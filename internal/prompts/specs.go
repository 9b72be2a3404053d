package prompts

const draftSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<one-line summary>",
  "narrative": "<user story narrative>",
  "acceptance_criteria": ["<criterion>"],
  "labels": ["<label>"],
  "priority": "<low|medium|high|critical>",
  "issue_type": "<feature|bug|task|spike>",
  "business_value": "<value statement>",
  "scores": {
    "summary_clarity": 0.0,
    "story_format": 0.0,
    "initial_criteria": 0.0,
    "business_value": 0.0,
    "context_research": 0.0
  },
  "feedback": "<what a revision should improve>"
}

Field constraints:
- summary: Single line, no trailing punctuation.
- narrative: User-story form with enough context to implement without
  the original request.
- acceptance_criteria: Each entry independently verifiable. At least three.
- labels: Lowercase, hyphen-separated.
- scores: Every listed dimension, each between 0.0 and 1.0.
- feedback: Concrete revision guidance; empty string only when nothing
  would improve the draft.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Do not invent requirements absent from the request; mark assumptions
  explicitly in the narrative`

const technicalSpec = `Respond with a JSON object matching this exact structure:

{
  "technical_notes": "<implementation notes>",
  "narrative": "<revised narrative>",
  "acceptance_criteria": ["<criterion>"],
  "labels": ["<label>"],
  "scores": {
    "technical_accuracy": 0.0,
    "complexity_assessment": 0.0,
    "architecture_alignment": 0.0,
    "risk_identification": 0.0,
    "implementation_guidance": 0.0,
    "review_completeness": 0.0,
    "feedback_quality": 0.0
  },
  "feedback": "<guidance for the drafting stage>"
}

Field constraints:
- technical_notes: Implementation approach, integration points, risks,
  and operational concerns. Replaces any prior technical notes.
- narrative: The current narrative, revised only for technical precision.
- acceptance_criteria: The full criteria list including additions. Never
  omit an existing criterion.
- scores: Every listed dimension, each between 0.0 and 1.0.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- feedback is sent to the drafting stage on refinement; reference the
  specific fields that need rework`

const qualitySpec = `Respond with a JSON object matching this exact structure:

{
  "acceptance_criteria": ["<criterion>"],
  "labels": ["<label>"],
  "testing_notes": "<test strategy>",
  "scores": {
    "testability": 0.0,
    "coverage_planning": 0.0,
    "automation_feasibility": 0.0,
    "edge_case_identification": 0.0,
    "quality_metrics": 0.0,
    "testing_strategy": 0.0
  },
  "feedback": "<guidance for the technical review stage>"
}

Field constraints:
- acceptance_criteria: The full criteria list including additions for
  edge cases and failure paths. Never omit an existing criterion.
- testing_notes: Coverage plan and automation approach for the ticket.
- scores: Every listed dimension, each between 0.0 and 1.0.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- feedback is sent to the technical review stage on refinement; name the
  criteria or sections that cannot be verified as written`

const complianceSpec = `Respond with a JSON object matching this exact structure:

{
  "compliance_notes": "<compliance findings>",
  "labels": ["<label>"],
  "scores": {
    "regulatory_compliance": 0.0,
    "policy_alignment": 0.0,
    "approval_workflow": 0.0,
    "risk_assessment": 0.0,
    "documentation_requirements": 0.0
  },
  "feedback": "<explanation of any concerns>"
}

Field constraints:
- compliance_notes: Obligations the implementer must meet, required
  approvals, and audit requirements. Empty string when nothing applies.
- scores: Every listed dimension, each between 0.0 and 1.0.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Low scores halt the pipeline for human review; reserve them for
  genuine compliance concerns and explain them in feedback`

const finalizeSpec = `Respond with a JSON object matching this exact structure:

{
  "summary": "<final summary>",
  "body": "<final record body>"
}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Preserve all accumulated acceptance criteria and notes verbatim
- Introduce no new scope`

var specs = map[Stage]string{
	StageDraft:      draftSpec,
	StageTechnical:  technicalSpec,
	StageQuality:    qualitySpec,
	StageCompliance: complianceSpec,
	StageFinalize:   finalizeSpec,
}

// Spec returns the immutable output contract for a pipeline stage.
// Specifications define the expected response format and behavioral
// constraints and cannot be overridden.
// Returns ErrInvalidStage if the stage is not recognized.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
