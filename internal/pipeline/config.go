package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable overrides for pipeline tuning.
const (
	EnvDraftRevisions      = "REFINERY_PIPELINE_DRAFT_REVISIONS"
	EnvTechnicalIterations = "REFINERY_PIPELINE_TECHNICAL_ITERATIONS"
	EnvQualityIterations   = "REFINERY_PIPELINE_QUALITY_ITERATIONS"
	EnvSinkRetries         = "REFINERY_PIPELINE_SINK_RETRIES"
	EnvSinkBackoff         = "REFINERY_PIPELINE_SINK_BACKOFF"
)

// GateConfig holds the two quality thresholds for a review stage. A composite
// below Floor rejects, at or above Target passes, and in between refines.
type GateConfig struct {
	Floor  float64 `toml:"floor"`
	Target float64 `toml:"target"`
}

func (g *GateConfig) merge(overlay *GateConfig) {
	if overlay.Floor != 0 {
		g.Floor = overlay.Floor
	}
	if overlay.Target != 0 {
		g.Target = overlay.Target
	}
}

func (g *GateConfig) validate(stage StageName) error {
	if g.Floor < 0 || g.Floor > 1 || g.Target < 0 || g.Target > 1 {
		return fmt.Errorf("%s: thresholds must be in [0,1]", stage)
	}
	if g.Floor > g.Target {
		return fmt.Errorf("%s: floor %v exceeds target %v", stage, g.Floor, g.Target)
	}
	return nil
}

// Config centralizes every pipeline threshold, weight table, iteration cap,
// and retry policy. It is finalized once at startup; weight tables that do
// not sum to 1.0 fail then, never per request.
type Config struct {
	Draft      GateConfig `toml:"draft"`
	Technical  GateConfig `toml:"technical"`
	Quality    GateConfig `toml:"quality"`
	Compliance GateConfig `toml:"compliance"`

	// ComplianceEscalation holds the workflow whenever the compliance
	// composite falls below it, independent of the reject/refine bands.
	ComplianceEscalation float64 `toml:"compliance_escalation"`

	// Refinement iteration caps per stage pair.
	DraftRevisions      int `toml:"draft_revisions"`
	TechnicalIterations int `toml:"technical_iterations"`
	QualityIterations   int `toml:"quality_iterations"`

	// RoleWeights aggregate per-stage composites into the final score.
	RoleWeights map[string]float64 `toml:"role_weights"`

	// DimensionWeights optionally override the equal-split default for a
	// stage. Keys must exactly cover the stage's dimension set.
	DimensionWeights map[string]map[string]float64 `toml:"dimension_weights"`

	ResearchBonusCap        float64 `toml:"research_bonus_cap"`
	ResearchQualityBonusCap float64 `toml:"research_quality_bonus_cap"`

	MinCriteria   int    `toml:"min_criteria"`
	ResearchLimit int    `toml:"research_limit"`
	SinkRetries   int    `toml:"sink_retries"`
	SinkBackoff   string `toml:"sink_backoff"`

	weights map[StageName]map[string]float64
}

// Finalize applies defaults, environment variable overrides, and validation,
// and resolves the effective per-stage weight tables.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	c.Draft.merge(&overlay.Draft)
	c.Technical.merge(&overlay.Technical)
	c.Quality.merge(&overlay.Quality)
	c.Compliance.merge(&overlay.Compliance)

	if overlay.ComplianceEscalation != 0 {
		c.ComplianceEscalation = overlay.ComplianceEscalation
	}
	if overlay.DraftRevisions != 0 {
		c.DraftRevisions = overlay.DraftRevisions
	}
	if overlay.TechnicalIterations != 0 {
		c.TechnicalIterations = overlay.TechnicalIterations
	}
	if overlay.QualityIterations != 0 {
		c.QualityIterations = overlay.QualityIterations
	}
	if len(overlay.RoleWeights) != 0 {
		c.RoleWeights = overlay.RoleWeights
	}
	if len(overlay.DimensionWeights) != 0 {
		c.DimensionWeights = overlay.DimensionWeights
	}
	if overlay.ResearchBonusCap != 0 {
		c.ResearchBonusCap = overlay.ResearchBonusCap
	}
	if overlay.ResearchQualityBonusCap != 0 {
		c.ResearchQualityBonusCap = overlay.ResearchQualityBonusCap
	}
	if overlay.MinCriteria != 0 {
		c.MinCriteria = overlay.MinCriteria
	}
	if overlay.ResearchLimit != 0 {
		c.ResearchLimit = overlay.ResearchLimit
	}
	if overlay.SinkRetries != 0 {
		c.SinkRetries = overlay.SinkRetries
	}
	if overlay.SinkBackoff != "" {
		c.SinkBackoff = overlay.SinkBackoff
	}
}

// Gate returns the thresholds for a review stage.
func (c *Config) Gate(stage StageName) GateConfig {
	switch stage {
	case StageDraft:
		return c.Draft
	case StageTechnical:
		return c.Technical
	case StageQuality:
		return c.Quality
	case StageCompliance:
		return c.Compliance
	default:
		return GateConfig{}
	}
}

// Weights returns the finalized weight table for a stage.
func (c *Config) Weights(stage StageName) map[string]float64 {
	return c.weights[stage]
}

// SinkBackoffDuration returns SinkBackoff as a time.Duration.
func (c *Config) SinkBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.SinkBackoff)
	return d
}

func (c *Config) loadDefaults() {
	def := func(g *GateConfig, floor, target float64) {
		if g.Floor == 0 {
			g.Floor = floor
		}
		if g.Target == 0 {
			g.Target = target
		}
	}

	def(&c.Draft, 0.60, 0.70)
	def(&c.Technical, 0.60, 0.80)
	def(&c.Quality, 0.60, 0.75)
	def(&c.Compliance, 0.70, 0.85)

	if c.ComplianceEscalation == 0 {
		c.ComplianceEscalation = 0.85
	}
	if c.DraftRevisions == 0 {
		c.DraftRevisions = 1
	}
	if c.TechnicalIterations == 0 {
		c.TechnicalIterations = 2
	}
	if c.QualityIterations == 0 {
		c.QualityIterations = 1
	}
	if len(c.RoleWeights) == 0 {
		c.RoleWeights = map[string]float64{
			string(StageDraft):      0.20,
			string(StageTechnical):  0.35,
			string(StageQuality):    0.25,
			string(StageCompliance): 0.20,
		}
	}
	if c.ResearchBonusCap == 0 {
		c.ResearchBonusCap = 0.10
	}
	if c.ResearchQualityBonusCap == 0 {
		c.ResearchQualityBonusCap = 0.05
	}
	if c.MinCriteria == 0 {
		c.MinCriteria = 3
	}
	if c.ResearchLimit == 0 {
		c.ResearchLimit = 5
	}
	if c.SinkRetries == 0 {
		c.SinkRetries = 3
	}
	if c.SinkBackoff == "" {
		c.SinkBackoff = "500ms"
	}
}

func (c *Config) loadEnv() {
	loadInt := func(key string, target *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*target = n
			}
		}
	}

	loadInt(EnvDraftRevisions, &c.DraftRevisions)
	loadInt(EnvTechnicalIterations, &c.TechnicalIterations)
	loadInt(EnvQualityIterations, &c.QualityIterations)
	loadInt(EnvSinkRetries, &c.SinkRetries)

	if v := os.Getenv(EnvSinkBackoff); v != "" {
		c.SinkBackoff = v
	}
}

func (c *Config) validate() error {
	for stage, gate := range map[StageName]GateConfig{
		StageDraft:      c.Draft,
		StageTechnical:  c.Technical,
		StageQuality:    c.Quality,
		StageCompliance: c.Compliance,
	} {
		if err := gate.validate(stage); err != nil {
			return err
		}
	}

	if c.ComplianceEscalation < c.Compliance.Floor || c.ComplianceEscalation > 1 {
		return fmt.Errorf("compliance_escalation must be in [floor,1]")
	}
	if c.DraftRevisions < 0 || c.TechnicalIterations < 0 || c.QualityIterations < 0 {
		return fmt.Errorf("iteration caps cannot be negative")
	}

	roleDims := []string{
		string(StageDraft),
		string(StageTechnical),
		string(StageQuality),
		string(StageCompliance),
	}
	if err := ValidateWeights(c.RoleWeights, roleDims); err != nil {
		return fmt.Errorf("role_weights: %w", err)
	}

	c.weights = make(map[StageName]map[string]float64)
	for _, stage := range ScoredStages() {
		dims := Dimensions(stage)
		if override, ok := c.DimensionWeights[string(stage)]; ok {
			if err := ValidateWeights(override, dims); err != nil {
				return fmt.Errorf("dimension_weights.%s: %w", stage, err)
			}
			c.weights[stage] = override
			continue
		}
		c.weights[stage] = EqualWeights(dims)
	}

	if _, err := time.ParseDuration(c.SinkBackoff); err != nil {
		return fmt.Errorf("invalid sink_backoff: %w", err)
	}
	if c.SinkRetries < 1 {
		return fmt.Errorf("sink_retries must be positive")
	}
	if c.MinCriteria < 1 {
		return fmt.Errorf("min_criteria must be positive")
	}
	return nil
}
