// Package gateway implements the outbound message transport against the
// WhatsApp Cloud API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-botflow/core"
	"github.com/goliatone/go-botflow/ratelimit"
)

const (
	DefaultBaseURL       = "https://graph.facebook.com/v19.0"
	defaultClientTimeout = 30 * time.Second
	maxResponseBodyBytes = 1 << 20
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SendThrottle gates outbound calls on the line's known throttle state and
// folds each provider response back into it.
type SendThrottle interface {
	BeforeCall(ctx context.Context, key ratelimit.Key) error
	AfterCall(ctx context.Context, key ratelimit.Key, res ratelimit.ResponseMeta) error
}

// Config holds the Cloud API credentials for one sending line.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return gatewayBadInput("gateway: access token is required", nil)
	}
	if strings.TrimSpace(c.PhoneNumberID) == "" {
		return gatewayBadInput("gateway: phone number id is required", nil)
	}
	return nil
}

// WhatsAppGateway sends text and template messages through the Cloud API
// /messages endpoint. Provider rejections surface as SendResult failures;
// only transport problems error.
type WhatsAppGateway struct {
	config   Config
	client   HTTPDoer
	logger   core.Logger
	throttle SendThrottle
}

type Option func(*WhatsAppGateway)

func WithHTTPClient(client HTTPDoer) Option {
	return func(g *WhatsAppGateway) { g.client = client }
}

func WithLogger(logger core.Logger) Option {
	return func(g *WhatsAppGateway) { g.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(g *WhatsAppGateway) { _, g.logger = glog.Resolve("botflow.gateway", provider, g.logger) }
}

func WithThrottle(throttle SendThrottle) Option {
	return func(g *WhatsAppGateway) { g.throttle = throttle }
}

func NewWhatsAppGateway(config Config, options ...Option) (*WhatsAppGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = DefaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	gateway := &WhatsAppGateway{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(gateway)
	}
	_, gateway.logger = glog.Resolve("botflow.gateway", nil, gateway.logger)
	if gateway.client == nil {
		gateway.client = &http.Client{Timeout: timeout}
	}
	return gateway, nil
}

type textPayload struct {
	Body string `json:"body"`
}

type languagePayload struct {
	Code string `json:"code"`
}

type parameterPayload struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Location *locationPayload `json:"location,omitempty"`
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type componentPayload struct {
	Type       string             `json:"type"`
	Parameters []parameterPayload `json:"parameters"`
}

type templatePayload struct {
	Name       string             `json:"name"`
	Language   languagePayload    `json:"language"`
	Components []componentPayload `json:"components,omitempty"`
}

type messagePayload struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

type apiResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *WhatsAppGateway) SendText(ctx context.Context, phone string, body string) (core.SendResult, error) {
	if strings.TrimSpace(body) == "" {
		return core.SendResult{}, gatewayBadInput("gateway: message body is required", nil)
	}
	return g.post(ctx, messagePayload{
		MessagingProduct: "whatsapp",
		To:               recipient(phone),
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

func (g *WhatsAppGateway) SendTemplate(ctx context.Context, phone string, send core.TemplateSend) (core.SendResult, error) {
	if strings.TrimSpace(send.Name) == "" {
		return core.SendResult{}, gatewayBadInput("gateway: template name is required", nil)
	}
	language := strings.TrimSpace(send.Language)
	if language == "" {
		language = "es"
	}

	template := &templatePayload{
		Name:     send.Name,
		Language: languagePayload{Code: language},
	}
	if send.Location != nil {
		template.Components = append(template.Components, componentPayload{
			Type: "header",
			Parameters: []parameterPayload{{
				Type: "location",
				Location: &locationPayload{
					Latitude:  send.Location.Latitude,
					Longitude: send.Location.Longitude,
					Name:      send.Location.Name,
					Address:   send.Location.Address,
				},
			}},
		})
	}
	if len(send.BodyVars) > 0 {
		parameters := make([]parameterPayload, 0, len(send.BodyVars))
		for _, value := range send.BodyVars {
			parameters = append(parameters, parameterPayload{Type: "text", Text: value})
		}
		template.Components = append(template.Components, componentPayload{
			Type:       "body",
			Parameters: parameters,
		})
	}

	return g.post(ctx, messagePayload{
		MessagingProduct: "whatsapp",
		To:               recipient(phone),
		Type:             "template",
		Template:         template,
	})
}

func (g *WhatsAppGateway) post(ctx context.Context, payload messagePayload) (core.SendResult, error) {
	if g == nil || g.client == nil {
		return core.SendResult{}, gatewayError(
			"gateway: whatsapp gateway requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if strings.TrimSpace(payload.To) == "" {
		return core.SendResult{}, gatewayBadInput("gateway: recipient phone is required", nil)
	}

	throttleKey := ratelimit.Key{LineID: g.config.PhoneNumberID, Bucket: "messages"}
	if g.throttle != nil {
		if err := g.throttle.BeforeCall(ctx, throttleKey); err != nil {
			var throttled ratelimit.ThrottledError
			if errors.As(err, &throttled) {
				g.logger.Debug("send held back by line throttle",
					"line_id", throttled.LineID,
					"retry_after", throttled.RetryAfter,
				)
				return core.SendResult{Success: false, Message: throttled.Error()}, nil
			}
			g.logger.Error("throttle state lookup failed, sending anyway", "error", err)
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return core.SendResult{}, gatewayWrapError(err, goerrors.CategoryInternal, "gateway: encode payload", nil)
	}

	endpoint := fmt.Sprintf("%s/%s/messages",
		strings.TrimRight(g.config.BaseURL, "/"),
		g.config.PhoneNumberID,
	)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return core.SendResult{}, gatewayWrapError(err, goerrors.CategoryBadInput, "gateway: create request", map[string]any{
			"endpoint": endpoint,
		})
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.config.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := g.client.Do(httpReq)
	if err != nil {
		return core.SendResult{}, gatewayWrapError(err, goerrors.CategoryExternal, "gateway: execute request", map[string]any{
			"endpoint": endpoint,
		})
	}
	defer httpRes.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxResponseBodyBytes))
	if err != nil {
		return core.SendResult{}, gatewayWrapError(err, goerrors.CategoryExternal, "gateway: read response", map[string]any{
			"status_code": httpRes.StatusCode,
		})
	}

	if g.throttle != nil {
		if err := g.throttle.AfterCall(ctx, throttleKey, ratelimit.ResponseMeta{
			StatusCode: httpRes.StatusCode,
			Headers:    flattenHeaders(httpRes.Header),
		}); err != nil {
			g.logger.Error("throttle state update failed", "error", err)
		}
	}

	var decoded apiResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			g.logger.Debug("undecodable provider response", "status_code", httpRes.StatusCode)
		}
	}

	if httpRes.StatusCode >= http.StatusBadRequest || decoded.Error != nil {
		message := "provider rejected the message"
		if decoded.Error != nil && strings.TrimSpace(decoded.Error.Message) != "" {
			message = decoded.Error.Message
		}
		g.logger.Error("message send rejected",
			"status_code", httpRes.StatusCode,
			"message", message,
		)
		return core.SendResult{Success: false, Message: message}, nil
	}

	messageID := ""
	if len(decoded.Messages) > 0 {
		messageID = decoded.Messages[0].ID
	}
	return core.SendResult{Success: true, Message: messageID}, nil
}

// recipient strips the E.164 plus sign; the Cloud API wants bare digits.
func recipient(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) > 0 {
			flat[name] = values[0]
		}
	}
	return flat
}

var _ core.MessageGateway = (*WhatsAppGateway)(nil)
