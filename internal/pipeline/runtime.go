package pipeline

import (
	"log/slog"

	"github.com/JaimeStill/refinery/internal/prompts"
	"github.com/JaimeStill/refinery/internal/research"
	"github.com/JaimeStill/refinery/internal/tracker"
)

// Runtime bundles the collaborators that pipeline stages require. It is
// constructed by higher-level composition code from Infrastructure and Domain
// systems; tests inject fakes through the same seams.
type Runtime struct {
	Completer Completer
	Research  research.System
	Tracker   tracker.System
	Prompts   prompts.System
	Config    *Config
	Logger    *slog.Logger
}
