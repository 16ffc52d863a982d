package cli

import (
	"github.com/valter-silva-au/backlog-relay/internal/core"
	"github.com/valter-silva-au/backlog-relay/internal/observability"
	"github.com/valter-silva-au/backlog-relay/internal/storage"
	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// Service instances shared across commands, set during app initialization.
var (
	BasePath    string
	Config      *models.Config
	Pipeline    *core.Pipeline
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	RunHistory  storage.RunHistory
)
