package flow

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
)

// FlowKeyAgency is the registry key of the built-in digital agency flow.
const FlowKeyAgency = "agency"

// Template names the agency flow sends. Lookups go through the tenant's
// template store first; these names double as the fallback when the tenant
// has no matching row.
const (
	TemplateWelcome  = "bienvenida_general"
	TemplateLocation = "ubicacion_horarios"
	TemplateServices = "menu_servicios"
)

// DefaultTemplateLanguage is used when the template store has no row for a
// template name.
const DefaultTemplateLanguage = "es"

const keywordMenu = "MENU"

const (
	msgFallback      = "No entendí tu mensaje. Te comparto el menú nuevamente 👇"
	msgAgentAck      = "¡Listo! Un asesor se pondrá en contacto contigo en breve. 🤝"
	msgAgentFailed   = "No pude registrar tu solicitud. Escribe AGENTE para intentarlo de nuevo."
	msgYesNoPrompt   = "¿Quieres que un asesor te contacte para este servicio? Responde SI o NO."
	msgYesNoRetry    = "Por favor responde SI o NO."
	msgPickAnother   = "Está bien. Puedes elegir otro servicio o escribir MENU para volver al inicio."
	msgServicesGuide = "No reconocí ese servicio. Elige uno de la lista o escribe MENU para volver al inicio."
)

// Stage-independent keywords that count as explicit commands during an
// active handoff.
var menuKeywords = []string{"HORARIO", "UBICACION", "SERVICIO", "AGENTE", "ASESOR"}

var affirmatives = map[string]bool{
	"SI": true, "SI.": true, "AFIRMATIVO": true, "OK": true, "OK.": true,
}

var negatives = map[string]bool{
	"NO": true, "NO.": true, "NEGATIVO": true,
}

// AgencyFlow is the digital agency conversation script: a three stage state
// machine over the shared StateTable. Recoverable failures are absorbed per
// turn; Handle only errors on wiring problems.
type AgencyFlow struct {
	states        *StateTable
	gateway       core.MessageGateway
	templates     core.TemplateStore
	conversations core.ConversationStore
	arbitrator    core.HandoffArbitrator
	logger        core.Logger
	metrics       core.MetricsRecorder
	language      string
	location      core.LocationPayload
}

type AgencyOption func(*AgencyFlow)

func WithAgencyLogger(logger core.Logger) AgencyOption {
	return func(f *AgencyFlow) { f.logger = logger }
}

func WithAgencyLoggerProvider(provider core.LoggerProvider) AgencyOption {
	return func(f *AgencyFlow) { _, f.logger = glog.Resolve("botflow.flow.agency", provider, f.logger) }
}

func WithAgencyMetrics(recorder core.MetricsRecorder) AgencyOption {
	return func(f *AgencyFlow) { f.metrics = recorder }
}

func WithAgencyLanguage(language string) AgencyOption {
	return func(f *AgencyFlow) { f.language = language }
}

// WithAgencyLocation sets the location header attached to the hours and
// location template.
func WithAgencyLocation(location core.LocationPayload) AgencyOption {
	return func(f *AgencyFlow) { f.location = location }
}

func NewAgencyFlow(
	states *StateTable,
	gateway core.MessageGateway,
	templates core.TemplateStore,
	conversations core.ConversationStore,
	arbitrator core.HandoffArbitrator,
	options ...AgencyOption,
) *AgencyFlow {
	f := &AgencyFlow{
		states:        states,
		gateway:       gateway,
		templates:     templates,
		conversations: conversations,
		arbitrator:    arbitrator,
		metrics:       core.NopMetricsRecorder{},
		language:      DefaultTemplateLanguage,
		location: core.LocationPayload{
			Latitude:  19.432608,
			Longitude: -99.133209,
			Name:      "Oficinas",
			Address:   "Centro, Ciudad de México",
		},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	_, f.logger = glog.Resolve("botflow.flow.agency", nil, f.logger)
	if f.metrics == nil {
		f.metrics = core.NopMetricsRecorder{}
	}
	if strings.TrimSpace(f.language) == "" {
		f.language = DefaultTemplateLanguage
	}
	return f
}

func (f *AgencyFlow) Key() string { return FlowKeyAgency }

// Handle runs one conversation turn. Turns for the same conversation are
// serialized by the state table; Handle blocks until this turn completes.
func (f *AgencyFlow) Handle(ctx context.Context, event core.InboundEvent) error {
	if f == nil {
		return fmt.Errorf("flow: agency flow is nil")
	}
	if f.states == nil || f.gateway == nil || f.templates == nil || f.conversations == nil {
		return fmt.Errorf("flow: agency flow requires states, gateway, template and conversation stores")
	}

	f.states.Do(event.ConversationID, func(state *State) {
		f.handleTurn(ctx, event, state)
	})
	return nil
}

func (f *AgencyFlow) handleTurn(ctx context.Context, event core.InboundEvent, state *State) {
	f.metrics.Counter(ctx, "botflow_flow_turns", 1, map[string]string{
		"flow":  FlowKeyAgency,
		"stage": string(state.Stage),
	})

	if event.JustCreated {
		f.resetToMenu(state)
		f.sendWelcome(ctx, event)
		return
	}

	normalized := ""
	if event.MessageType == "" || event.MessageType == core.MessageTypeText {
		normalized = Normalize(event.MessageText)
	}

	if normalized == keywordMenu {
		f.resetToMenu(state)
		f.sendWelcome(ctx, event)
		return
	}

	switch state.Stage {
	case core.StageServicesMenu:
		f.handleServicesMenu(ctx, event, state, normalized)
	case core.StageAwaitYesNo:
		f.handleAwaitYesNo(ctx, event, state, normalized)
	default:
		f.handleMenu(ctx, event, state, normalized)
	}
}

func (f *AgencyFlow) handleMenu(ctx context.Context, event core.InboundEvent, state *State, normalized string) {
	option, _ := MatchOption(normalized)
	switch {
	case strings.Contains(normalized, "HORARIO"), strings.Contains(normalized, "UBICACION"), option == "1":
		f.sendLocation(ctx, event)
	case strings.Contains(normalized, "SERVICIO"), option == "2":
		f.sendServices(ctx, event)
		state.Stage = core.StageServicesMenu
	case strings.Contains(normalized, "AGENTE"), strings.Contains(normalized, "ASESOR"), option == "3":
		if f.requestAgent(ctx, event) {
			state.CurrentService = ""
			f.sendText(ctx, event, msgAgentAck)
		}
	default:
		if f.silenced(ctx, event, state.Stage, normalized) {
			return
		}
		f.sendText(ctx, event, msgFallback)
		f.sendWelcome(ctx, event)
	}
}

func (f *AgencyFlow) handleServicesMenu(ctx context.Context, event core.InboundEvent, state *State, normalized string) {
	if serviceKey, ok := MatchService(normalized); ok {
		state.CurrentService = serviceKey
		if pitch, ok := PitchFor(serviceKey); ok {
			f.sendText(ctx, event, pitch.Title+"\n\n"+pitch.Body)
		}
		f.sendText(ctx, event, msgYesNoPrompt)
		state.Stage = core.StageAwaitYesNo
		return
	}
	if f.silenced(ctx, event, state.Stage, normalized) {
		return
	}
	f.sendText(ctx, event, msgServicesGuide)
	f.sendServices(ctx, event)
}

func (f *AgencyFlow) handleAwaitYesNo(ctx context.Context, event core.InboundEvent, state *State, normalized string) {
	switch {
	case affirmatives[normalized]:
		if f.requestAgent(ctx, event) {
			f.sendText(ctx, event, msgAgentAck)
			f.sendWelcome(ctx, event)
			f.resetToMenu(state)
		}
	case negatives[normalized]:
		f.sendText(ctx, event, msgPickAnother)
		f.sendServices(ctx, event)
		state.Stage = core.StageServicesMenu
	default:
		if f.silenced(ctx, event, state.Stage, normalized) {
			return
		}
		f.sendText(ctx, event, msgYesNoRetry)
	}
}

func (f *AgencyFlow) resetToMenu(state *State) {
	state.Stage = core.StageMenu
	state.CurrentService = ""
}

// requestAgent stamps the conversation and reports whether the caller should
// continue with its acknowledgement sends.
func (f *AgencyFlow) requestAgent(ctx context.Context, event core.InboundEvent) bool {
	if err := f.conversations.MarkAgentRequested(ctx, event.ConversationID); err != nil {
		f.logger.Error("mark agent requested failed",
			"conversation_id", event.ConversationID,
			"error", err,
		)
		f.sendText(ctx, event, msgAgentFailed)
		return false
	}
	return true
}

// silenced reports whether an active handoff suppresses this turn. Explicit
// commands always reach the flow.
func (f *AgencyFlow) silenced(ctx context.Context, event core.InboundEvent, stage core.Stage, normalized string) bool {
	if f.arbitrator == nil || !f.arbitrator.Active(ctx, event.ConversationID) {
		return false
	}
	if isExplicitCommand(normalized, stage) {
		return false
	}
	f.metrics.Counter(ctx, "botflow_flow_suppressed", 1, map[string]string{"flow": FlowKeyAgency})
	return true
}

func isExplicitCommand(normalized string, stage core.Stage) bool {
	if normalized == keywordMenu {
		return true
	}
	for _, keyword := range menuKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	if _, ok := MatchOption(normalized); ok {
		return true
	}
	if _, ok := MatchService(normalized); ok {
		return true
	}
	if stage == core.StageAwaitYesNo && (affirmatives[normalized] || negatives[normalized]) {
		return true
	}
	return false
}

func (f *AgencyFlow) sendWelcome(ctx context.Context, event core.InboundEvent) {
	f.sendTemplate(ctx, event, TemplateWelcome, nil, nil)
}

func (f *AgencyFlow) sendServices(ctx context.Context, event core.InboundEvent) {
	f.sendTemplate(ctx, event, TemplateServices, nil, nil)
}

func (f *AgencyFlow) sendLocation(ctx context.Context, event core.InboundEvent) {
	location := f.location
	f.sendTemplate(ctx, event, TemplateLocation, nil, &location)
}

func (f *AgencyFlow) sendTemplate(ctx context.Context, event core.InboundEvent, name string, bodyVars []string, location *core.LocationPayload) {
	template, found, err := f.templates.FindActive(ctx, event.TenantID, name)
	if err != nil {
		f.logger.Error("template lookup failed, using defaults",
			"tenant_id", event.TenantID,
			"template", name,
			"error", err,
		)
		found = false
	}
	if !found || strings.TrimSpace(template.Name) == "" {
		template = core.Template{Name: name, Language: f.language}
	}
	if strings.TrimSpace(template.Language) == "" {
		template.Language = f.language
	}

	result, err := f.gateway.SendTemplate(ctx, event.Phone, core.TemplateSend{
		Name:     template.Name,
		Language: template.Language,
		BodyVars: bodyVars,
		Location: location,
	})
	if reason := sendFailureReason(result, err); reason != "" {
		f.reportSendFailure(ctx, event, template.Name, reason)
	}
}

func (f *AgencyFlow) sendText(ctx context.Context, event core.InboundEvent, body string) {
	result, err := f.gateway.SendText(ctx, event.Phone, body)
	if reason := sendFailureReason(result, err); reason != "" {
		f.logger.Error("text send failed",
			"conversation_id", event.ConversationID,
			"reason", reason,
		)
		f.metrics.Counter(ctx, "botflow_flow_send_failed", 1, map[string]string{"kind": "text"})
	}
}

// reportSendFailure tells the contact which template could not go out. The
// diagnostic text itself is best effort; its own failure only logs.
func (f *AgencyFlow) reportSendFailure(ctx context.Context, event core.InboundEvent, templateName string, reason string) {
	f.logger.Error("template send failed",
		"conversation_id", event.ConversationID,
		"template", templateName,
		"reason", reason,
	)
	f.metrics.Counter(ctx, "botflow_flow_send_failed", 1, map[string]string{"kind": "template"})

	diagnostic := fmt.Sprintf("No pude enviar la plantilla %s: %s", templateName, reason)
	if result, err := f.gateway.SendText(ctx, event.Phone, diagnostic); err != nil || !result.Success {
		f.logger.Error("diagnostic send failed",
			"conversation_id", event.ConversationID,
			"template", templateName,
		)
	}
}

func sendFailureReason(result core.SendResult, err error) string {
	if err != nil {
		return err.Error()
	}
	if result.Success {
		return ""
	}
	if strings.TrimSpace(result.Message) != "" {
		return result.Message
	}
	return "rechazado por el proveedor"
}
