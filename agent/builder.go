package agent

import (
	"fmt"

	"personahub/logging"
	"personahub/model"
	"personahub/tool"
)

// Config is the declarative description of one agent, typically loaded from
// a database record.
type Config struct {
	Name         string
	Role         string
	Instructions string
	Provider     string
	ModelID      string
	ToolNames    []string
}

// Builder assembles agents from configs by resolving model backends and tool
// instances through the registries.
type Builder struct {
	models *model.Registry
	tools  *tool.Registry
	log    logging.Logger
}

// NewBuilder creates a Builder over the given registries.
func NewBuilder(models *model.Registry, tools *tool.Registry, log logging.Logger) *Builder {
	if log == nil {
		log = logging.NewNoOpLogger()
	}
	return &Builder{models: models, tools: tools, log: log}
}

// Build resolves the config into a runnable agent. An unknown provider or an
// unknown tool name fails the build; a partially equipped agent is worse
// than no agent.
func (b *Builder) Build(cfg Config, optFns ...Option) (*Agent, error) {
	backend, err := b.models.Resolve(cfg.Provider, cfg.ModelID)
	if err != nil {
		return nil, fmt.Errorf("build agent %q: %w", cfg.Name, err)
	}

	tools, err := b.tools.Resolve(cfg.ToolNames)
	if err != nil {
		return nil, fmt.Errorf("build agent %q: %w", cfg.Name, err)
	}

	b.log.Debug("agent built",
		"agent", cfg.Name,
		"role", cfg.Role,
		"provider", cfg.Provider,
		"model", cfg.ModelID,
		"tools", len(tools),
	)

	opts := append([]Option{WithLogger(b.log)}, optFns...)
	return New(cfg.Name, cfg.Role, cfg.Instructions, backend, tools, opts...), nil
}
