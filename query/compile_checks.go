package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-botflow/core"
)

var (
	_ gocmd.Querier[HandoffStatusMessage, core.HandoffStatus] = (*HandoffStatusQuery)(nil)
	_ gocmd.Querier[ResolveFlowKeyMessage, string]            = (*ResolveFlowKeyQuery)(nil)
	_ gocmd.Querier[FindTemplateMessage, TemplateLookup]      = (*FindTemplateQuery)(nil)
)
