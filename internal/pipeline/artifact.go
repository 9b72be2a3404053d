package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"
)

// Clone returns a deep copy of the artifact so stages can build on their
// input without mutating it.
func (a Artifact) Clone() Artifact {
	c := a
	c.AcceptanceCriteria = slices.Clone(a.AcceptanceCriteria)
	c.Labels = slices.Clone(a.Labels)
	return c
}

// MergeCriteria appends criteria that are not already present, preserving
// order. The acceptance criteria list only ever grows across stages.
func (a *Artifact) MergeCriteria(criteria []string) {
	for _, c := range criteria {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(a.AcceptanceCriteria, c) {
			continue
		}
		a.AcceptanceCriteria = append(a.AcceptanceCriteria, c)
	}
}

// MergeLabels adds labels not already in the set.
func (a *Artifact) MergeLabels(labels []string) {
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || slices.Contains(a.Labels, l) {
			continue
		}
		a.Labels = append(a.Labels, l)
	}
}

// ReviseNarrative replaces the narrative only when the revision is at least as
// long as the current text. regenerate bypasses the length guard for
// refinement loops that rewrite a stage's own prior output.
func (a *Artifact) ReviseNarrative(narrative string, regenerate bool) {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return
	}
	if regenerate || len(narrative) >= len(a.Narrative) {
		a.Narrative = narrative
	}
}

// Ready reports whether the artifact satisfies the minimum bar for
// finalization: a summary, a narrative, and at least minCriteria acceptance
// criteria.
func (a Artifact) Ready(minCriteria int) bool {
	return a.Summary != "" &&
		a.Narrative != "" &&
		len(a.AcceptanceCriteria) >= minCriteria
}

// immutable is the subset of artifact fields hashed into the idempotency key.
type immutable struct {
	Summary   string    `json:"summary"`
	Narrative string    `json:"narrative"`
	Criteria  []string  `json:"criteria"`
	Priority  Priority  `json:"priority"`
	IssueType IssueType `json:"issue_type"`
}

// IdempotencyKey derives a stable key from the artifact's immutable fields,
// used to guard the sink create against double submission on retry.
func (a Artifact) IdempotencyKey() string {
	data, _ := json.Marshal(immutable{
		Summary:   a.Summary,
		Narrative: a.Narrative,
		Criteria:  a.AcceptanceCriteria,
		Priority:  a.Priority,
		IssueType: a.IssueType,
	})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
