package sqlstore

import "github.com/goliatone/go-botflow/core"

var (
	_ core.IntegrationStore     = (*IntegrationStore)(nil)
	_ core.TemplateStore        = (*TemplateStore)(nil)
	_ core.ConversationStore    = (*ConversationStore)(nil)
	_ core.ConversationResolver = (*ConversationResolver)(nil)
	_ core.UserStore            = (*UserStore)(nil)
	_ core.TenantFlowStore      = (*TenantFlowStore)(nil)
)
