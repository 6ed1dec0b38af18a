package core

import (
	"fmt"
	"strings"
	"time"
)

type FlowsConfig struct {
	// TenantKeys seeds the in-memory tenant flow store: tenant id (decimal
	// string) to flow key. Ignored when a TenantFlowStore is injected.
	TenantKeys map[string]string `koanf:"tenant_keys" mapstructure:"tenant_keys"`
}

type ConversationsConfig struct {
	// StateTTL bounds per-conversation state retention. Zero preserves the
	// reference behavior: state lives for the process lifetime.
	StateTTL time.Duration `koanf:"state_ttl" mapstructure:"state_ttl"`
	// SweepInterval is the suggested cadence for the state sweep job.
	SweepInterval time.Duration `koanf:"sweep_interval" mapstructure:"sweep_interval"`
}

type InboundConfig struct {
	// DedupeWindow is how long a provider message id is remembered for
	// redelivery suppression.
	DedupeWindow time.Duration `koanf:"dedupe_window" mapstructure:"dedupe_window"`
	// DedupeEntries caps how many message ids are remembered at once.
	DedupeEntries int `koanf:"dedupe_entries" mapstructure:"dedupe_entries"`
}

type Config struct {
	ServiceName   string              `koanf:"service_name" mapstructure:"service_name"`
	Flows         FlowsConfig         `koanf:"flows" mapstructure:"flows"`
	Conversations ConversationsConfig `koanf:"conversations" mapstructure:"conversations"`
	Inbound       InboundConfig       `koanf:"inbound" mapstructure:"inbound"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "botflow",
		Conversations: ConversationsConfig{
			SweepInterval: 10 * time.Minute,
		},
		Inbound: InboundConfig{
			DedupeWindow:  10 * time.Minute,
			DedupeEntries: 4096,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Conversations.StateTTL < 0 {
		return fmt.Errorf("core: conversations.state_ttl must not be negative")
	}
	if c.Conversations.SweepInterval < 0 {
		return fmt.Errorf("core: conversations.sweep_interval must not be negative")
	}
	if c.Inbound.DedupeWindow < 0 {
		return fmt.Errorf("core: inbound.dedupe_window must not be negative")
	}
	if c.Inbound.DedupeEntries < 0 {
		return fmt.Errorf("core: inbound.dedupe_entries must not be negative")
	}
	return nil
}
