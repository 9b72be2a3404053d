package pipeline_test

import (
	"strings"
	"testing"

	"github.com/JaimeStill/refinery/internal/pipeline"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &pipeline.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	gates := []struct {
		stage  pipeline.StageName
		floor  float64
		target float64
	}{
		{pipeline.StageDraft, 0.60, 0.70},
		{pipeline.StageTechnical, 0.60, 0.80},
		{pipeline.StageQuality, 0.60, 0.75},
		{pipeline.StageCompliance, 0.70, 0.85},
	}
	for _, g := range gates {
		got := cfg.Gate(g.stage)
		if got.Floor != g.floor || got.Target != g.target {
			t.Errorf("%s gate = %+v, want floor %v target %v", g.stage, got, g.floor, g.target)
		}
	}

	if cfg.ComplianceEscalation != 0.85 {
		t.Errorf("compliance escalation = %v", cfg.ComplianceEscalation)
	}
	if cfg.DraftRevisions != 1 || cfg.TechnicalIterations != 2 || cfg.QualityIterations != 1 {
		t.Errorf("iteration caps = %d/%d/%d", cfg.DraftRevisions, cfg.TechnicalIterations, cfg.QualityIterations)
	}
	if cfg.SinkRetries != 3 || cfg.SinkBackoff != "500ms" {
		t.Errorf("sink policy = %d/%s", cfg.SinkRetries, cfg.SinkBackoff)
	}
	if cfg.MinCriteria != 3 || cfg.ResearchLimit != 5 {
		t.Errorf("min_criteria/research_limit = %d/%d", cfg.MinCriteria, cfg.ResearchLimit)
	}

	var sum float64
	for _, w := range cfg.RoleWeights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("role weights sum = %v", sum)
	}

	for _, stage := range pipeline.ScoredStages() {
		weights := cfg.Weights(stage)
		if len(weights) != len(pipeline.Dimensions(stage)) {
			t.Errorf("%s weight table covers %d dims, want %d",
				stage, len(weights), len(pipeline.Dimensions(stage)))
		}
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv(pipeline.EnvTechnicalIterations, "4")
	t.Setenv(pipeline.EnvSinkBackoff, "2s")

	cfg := &pipeline.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	if cfg.TechnicalIterations != 4 {
		t.Errorf("technical iterations = %d, want env override 4", cfg.TechnicalIterations)
	}
	if cfg.SinkBackoff != "2s" {
		t.Errorf("sink backoff = %s, want env override 2s", cfg.SinkBackoff)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*pipeline.Config)
		wantErr string
	}{
		{
			"floor above target",
			func(c *pipeline.Config) { c.Technical = pipeline.GateConfig{Floor: 0.9, Target: 0.8} },
			"floor",
		},
		{
			"threshold out of range",
			func(c *pipeline.Config) { c.Draft = pipeline.GateConfig{Floor: 0.5, Target: 1.2} },
			"thresholds",
		},
		{
			"escalation below compliance floor",
			func(c *pipeline.Config) { c.ComplianceEscalation = 0.5 },
			"compliance_escalation",
		},
		{
			"role weights do not sum to one",
			func(c *pipeline.Config) {
				c.RoleWeights = map[string]float64{
					"draft": 0.5, "technical": 0.5, "quality": 0.5, "compliance": 0.5,
				}
			},
			"role_weights",
		},
		{
			"dimension override missing a dimension",
			func(c *pipeline.Config) {
				c.DimensionWeights = map[string]map[string]float64{
					"draft": {"summary_clarity": 1.0},
				}
			},
			"dimension_weights.draft",
		},
		{
			"unparseable sink backoff",
			func(c *pipeline.Config) { c.SinkBackoff = "soon" },
			"sink_backoff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &pipeline.Config{}
			tt.mutate(cfg)

			err := cfg.Finalize()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDimensionOverride(t *testing.T) {
	cfg := &pipeline.Config{
		DimensionWeights: map[string]map[string]float64{
			"draft": {
				"summary_clarity":  0.30,
				"story_format":     0.20,
				"initial_criteria": 0.20,
				"business_value":   0.20,
				"context_research": 0.10,
			},
		},
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	weights := cfg.Weights(pipeline.StageDraft)
	if weights["summary_clarity"] != 0.30 {
		t.Errorf("override not applied: %v", weights)
	}

	// Other stages keep the equal split.
	tech := cfg.Weights(pipeline.StageTechnical)
	for dim, w := range tech {
		if w != tech[pipeline.Dimensions(pipeline.StageTechnical)[0]] {
			t.Errorf("technical weights not uniform: %s=%v", dim, w)
		}
	}
}
