package pipeline

import (
	"context"

	"github.com/JaimeStill/refinery/internal/research"
)

// stageScopes maps each stage to the research scopes it consults. Draft casts
// the widest net; compliance only checks the policy corpus.
var stageScopes = map[StageName][]string{
	StageDraft:      {research.ScopeCorpus, research.ScopeHistory},
	StageTechnical:  {research.ScopeCorpus},
	StageQuality:    {research.ScopeHistory},
	StageCompliance: {research.ScopeCorpus},
}

// gatherResearch queries the research connector for each of the stage's
// scopes and records usage on the execution. Connector transport failures
// degrade gracefully: the stage proceeds with whatever context was gathered,
// treating an unavailable connector the same as an empty result set.
func gatherResearch(
	ctx context.Context,
	rt *Runtime,
	exec *Execution,
	stage StageName,
	query string,
) []research.Source {
	if rt.Research == nil {
		return nil
	}

	var gathered []research.Source
	for _, scope := range stageScopes[stage] {
		sources, err := rt.Research.Search(ctx, query, scope, rt.Config.ResearchLimit)
		if err != nil {
			rt.Logger.WarnContext(
				ctx, "research unavailable",
				"stage", stage,
				"scope", scope,
				"error", err,
			)
			continue
		}

		exec.Consult(stage, scope, sources)
		gathered = append(gathered, sources...)
	}

	return gathered
}
