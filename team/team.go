// Package team composes built agents into a coordinator-led group. The
// coordinator is the only agent that sees the conversation; members are
// reached through delegation tools and receive just the delegated task.
package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"personahub/agent"
	"personahub/logging"
	"personahub/model"
	"personahub/store"
	"personahub/tool"
	"personahub/trace"
)

// ErrNoMembers is returned when no member agent could be built.
var ErrNoMembers = errors.New("no team members could be assembled")

// Spec describes the coordinator: the persona identity the team answers as.
type Spec struct {
	PersonaName  string
	Instructions string
	Provider     string
	ModelID      string
}

// Team is an assembled coordinator plus its members, ready to run.
type Team struct {
	leader  *agent.Agent
	members []*agent.Agent
	log     logging.Logger
}

// directives are appended to the coordinator's instructions so the model
// understands the delegation protocol.
var directives = []string{
	"You lead a team of agents. Delegate tasks to the most suitable member based on their role and expertise.",
	"Use the delegate_to_<member> tools to hand off a task; each returns that member's complete answer.",
	"Synthesize member answers into one coherent response in the persona's voice. Never mention the team or the delegation.",
	"Handle the request yourself when no member is better suited.",
}

// Assemble builds the member agents and wires the coordinator.
//
// Member builds continue on error: a member whose model or tools fail to
// resolve is skipped and the failure recorded, so one bad record does not
// take the persona offline. Assembly fails only when no member at all could
// be built.
func Assemble(builder *agent.Builder, spec Spec, memberCfgs []agent.Config, log logging.Logger, rec *trace.Recorder) (*Team, error) {
	if log == nil {
		log = logging.NewNoOpLogger()
	}

	var members []*agent.Agent
	for _, cfg := range memberCfgs {
		m, err := builder.Build(cfg, agent.AsMember())
		if err != nil {
			log.Warn("skipping team member", "agent", cfg.Name, "error", err)
			rec.Errorf("member %s skipped: %v", cfg.Name, err)
			continue
		}
		members = append(members, m)
		rec.Debugf("member %s ready (role %s)", m.Name(), m.Role())
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	instructions := spec.Instructions
	if instructions != "" {
		instructions += "\n\n"
	}
	instructions += strings.Join(directives, "\n")

	leader, err := builder.Build(agent.Config{
		Name:         spec.PersonaName,
		Role:         store.RoleLeader,
		Instructions: instructions,
		Provider:     spec.Provider,
		ModelID:      spec.ModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble coordinator: %w", err)
	}

	t := &Team{leader: leader, members: members, log: log}
	for _, m := range members {
		leader.AddTools(t.delegationTool(m, rec))
	}
	return t, nil
}

// Run drives the coordinator over the prepared conversation and returns its
// final answer.
func (t *Team) Run(ctx context.Context, messages []model.Message, rec *trace.Recorder) (string, error) {
	rec.Infof("team run started: leader %s, %d members", t.leader.Name(), len(t.members))

	out, err := t.leader.Run(ctx, messages, rec)
	if err != nil {
		rec.Errorf("team run failed: %v", err)
		return "", err
	}

	rec.Infof("team run completed")
	return out, nil
}

// delegationTool exposes one member as a coordinator tool. The member sees
// only the delegated task, never the surrounding conversation.
func (t *Team) delegationTool(m *agent.Agent, rec *trace.Recorder) tool.Tool {
	name := "delegate_to_" + toolSlug(m.Name())
	description := fmt.Sprintf("Delegate a task to %s (%s) and return their answer.", m.Name(), m.Role())

	return tool.NewFunctionTool(
		name,
		description,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task": map[string]any{
					"type":        "string",
					"description": "The complete, self-contained task for this team member",
				},
			},
			"required": []string{"task"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			task := tool.StringArg(args, "task")
			rec.Infof("delegating to %s", m.Name())

			answer, err := m.Run(ctx, []model.Message{{Role: "user", Content: task}}, rec)
			if err != nil {
				rec.Errorf("delegation to %s failed: %v", m.Name(), err)
				return nil, err
			}

			rec.Infof("delegation to %s completed", m.Name())
			return answer, nil
		},
	)
}

// toolSlug normalizes an agent name into a function-call-safe suffix.
func toolSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Info summarizes team composition bucketed by role.
type Info struct {
	Leader      string   `json:"leader"`
	Specialists []string `json:"specialists"`
	Assistants  []string `json:"assistants"`
}

// Info reports the team's composition.
func (t *Team) Info() Info {
	info := Info{Leader: t.leader.Name()}
	for _, m := range t.members {
		switch m.Role() {
		case store.RoleAssistant:
			info.Assistants = append(info.Assistants, m.Name())
		default:
			info.Specialists = append(info.Specialists, m.Name())
		}
	}
	return info
}
