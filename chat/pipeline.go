package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"personahub/agent"
	"personahub/logging"
	"personahub/memory"
	"personahub/model"
	"personahub/store"
	"personahub/team"
	"personahub/trace"
)

// Canned replies for failures the user can do nothing about mid-chat. They
// are persisted as regular persona messages so the conversation stays
// coherent in the history.
const (
	replyPersonaMissing = "Sorry, this persona doesn't exist."
	replyNoAgents       = "Sorry, this persona doesn't have any active agents configured."
	replyErrorPrefix    = "Sorry, I encountered an error: "
)

// leaderDisplayName labels outbound messages; individual member names stay
// inside the run log.
const leaderDisplayName = "Team Leader"

// Options configure the message pipeline.
type Options struct {
	// Timeout bounds one full turn including all model calls. Zero means
	// the caller's context is the only bound.
	Timeout time.Duration
	// Live mirrors trace events as they happen, normally to stdout.
	Live io.Writer
	// Memory, when set, feeds remembered user facts into the coordinator's
	// instructions.
	Memory memory.Store
	// Logger receives operational events.
	Logger logging.Logger
}

// Pipeline processes inbound chat messages end to end.
type Pipeline struct {
	store   *store.Store
	builder *agent.Builder
	gate    *Gate
	mem     memory.Store
	log     logging.Logger
	timeout time.Duration
	live    io.Writer
}

// NewPipeline wires the pipeline over its stores and the agent builder.
func NewPipeline(s *store.Store, b *agent.Builder, optFns ...func(o *Options)) *Pipeline {
	opts := Options{Logger: logging.NewNoOpLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNoOpLogger()
	}
	return &Pipeline{
		store:   s,
		builder: b,
		gate:    NewGate(),
		mem:     opts.Memory,
		log:     opts.Logger,
		timeout: opts.Timeout,
		live:    opts.Live,
	}
}

// ProcessMessage runs one full turn: persist the inbound message, drive the
// persona's team over the prepared history and persist the reply plus its
// diagnostic transcript. Turns within one conversation are serialized;
// different conversations run concurrently.
//
// Failures inside the turn (missing persona, no live agents, model errors)
// become canned persona replies rather than errors; the returned error is
// reserved for request-level problems such as an unknown conversation.
func (p *Pipeline) ProcessMessage(ctx context.Context, userID, conversationID uint, content string, fileIDs []uint) (*store.Message, error) {
	p.gate.Lock(conversationID)
	defer p.gate.Unlock(conversationID)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conv, err := p.store.GetUserConversation(conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("conversation %d: %w", conversationID, err)
	}

	// History is read before the inbound row is written so the current
	// message never appears twice in the model context.
	recent, err := p.store.RecentMessages(conv.ID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	inbound := &store.Message{
		ConversationID: conv.ID,
		Role:           "user",
		SenderType:     store.SenderUser,
		Content:        content,
	}
	if err := p.store.AppendMessage(inbound); err != nil {
		return nil, fmt.Errorf("persist inbound: %w", err)
	}
	if len(fileIDs) > 0 {
		if err := p.store.AttachFiles(inbound.ID, fileIDs); err != nil {
			p.log.Warn("file attachment failed", "message_id", inbound.ID, "error", err)
		}
	}

	rec := trace.NewRecorder(p.live)
	reply, senderType, invoked := p.respond(ctx, conv, recent, content, fileIDs, rec)

	outbound := &store.Message{
		ConversationID: conv.ID,
		Role:           "assistant",
		SenderType:     senderType,
		Content:        reply,
	}
	if senderType == store.SenderPersona {
		outbound.AgentName = leaderDisplayName
	}
	if err := p.store.AppendMessage(outbound); err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	// One run log per successful invocation; modeled outcomes and failed
	// invokes leave no diagnostic row. The write itself is best effort;
	// losing it must never lose the reply.
	if transcript := rec.Transcript(); invoked && transcript != "" {
		if err := p.store.CreateRunLog(&store.AgentRunLog{
			ConversationID: conv.ID,
			PersonaID:      conv.PersonaID,
			MessageID:      outbound.ID,
			RawLog:         transcript,
		}); err != nil {
			p.log.Warn("run log write failed", "message_id", outbound.ID, "error", err)
		}
	}

	if err := p.store.TouchConversation(conv.ID); err != nil {
		p.log.Warn("conversation touch failed", "conversation_id", conv.ID, "error", err)
	}

	return outbound, nil
}

// respond assembles and runs the team, mapping every failure mode onto a
// reply string plus the sender classification to persist it under. Modeled
// outcomes (missing persona, no agents) stay persona-voiced; invocation
// failures become system rows. The final result reports whether the team
// invocation completed, which gates the diagnostic run-log row.
func (p *Pipeline) respond(ctx context.Context, conv *store.Conversation, recent []store.Message, content string, fileIDs []uint, rec *trace.Recorder) (string, string, bool) {
	persona, err := p.store.GetPersona(conv.PersonaID)
	if err != nil || !persona.Active {
		rec.Errorf("persona %d unavailable", conv.PersonaID)
		return replyPersonaMissing, store.SenderPersona, false
	}

	agents, err := p.store.ActiveAgents(persona.ID)
	if err != nil {
		rec.Errorf("agent lookup failed: %v", err)
		return replyErrorPrefix + err.Error(), store.SenderSystem, false
	}
	if len(agents) == 0 {
		rec.Errorf("persona %s has no active agents", persona.Name)
		return replyNoAgents, store.SenderPersona, false
	}

	memberCfgs := make([]agent.Config, 0, len(agents))
	for _, a := range agents {
		memberCfgs = append(memberCfgs, agent.Config{
			Name:         a.Name,
			Role:         a.Role,
			Instructions: a.Instructions,
			Provider:     a.ModelProvider,
			ModelID:      a.ModelID,
			ToolNames:    a.Tools,
		})
	}

	tm, err := team.Assemble(p.builder, team.Spec{
		PersonaName:  persona.Name,
		Instructions: p.withUserFacts(ctx, conv.UserID, persona.Instructions),
		Provider:     persona.ModelProvider,
		ModelID:      persona.ModelID,
	}, memberCfgs, p.log, rec)
	if errors.Is(err, team.ErrNoMembers) {
		return replyNoAgents, store.SenderPersona, false
	}
	if err != nil {
		rec.Errorf("team assembly failed: %v", err)
		return replyErrorPrefix + err.Error(), store.SenderSystem, false
	}

	rendered := renderContext(recent, content, fileIDs)

	answer, err := tm.Run(ctx, []model.Message{{Role: "user", Content: rendered}}, rec)
	if err != nil {
		return replyErrorPrefix + err.Error(), store.SenderSystem, false
	}
	return answer, store.SenderPersona, true
}

// TeamInfo describes a persona's assembled team without running it.
type TeamInfo struct {
	TotalAgents int      `json:"total_agents"`
	Leader      string   `json:"leader"`
	Specialists []string `json:"specialists"`
	Assistants  []string `json:"assistants"`
}

// TeamInfo assembles the persona's team and reports its composition. Read
// only; no model calls are made.
func (p *Pipeline) TeamInfo(ctx context.Context, personaID uint) (*TeamInfo, error) {
	persona, err := p.store.GetPersona(personaID)
	if err != nil {
		return nil, err
	}
	if !persona.Active {
		return nil, store.ErrNotFound
	}

	agents, err := p.store.ActiveAgents(persona.ID)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return &TeamInfo{}, nil
	}

	memberCfgs := make([]agent.Config, 0, len(agents))
	for _, a := range agents {
		memberCfgs = append(memberCfgs, agent.Config{
			Name:         a.Name,
			Role:         a.Role,
			Instructions: a.Instructions,
			Provider:     a.ModelProvider,
			ModelID:      a.ModelID,
			ToolNames:    a.Tools,
		})
	}

	tm, err := team.Assemble(p.builder, team.Spec{
		PersonaName:  persona.Name,
		Instructions: persona.Instructions,
		Provider:     persona.ModelProvider,
		ModelID:      persona.ModelID,
	}, memberCfgs, p.log, nil)
	if errors.Is(err, team.ErrNoMembers) {
		return &TeamInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	info := tm.Info()
	return &TeamInfo{
		TotalAgents: len(agents),
		Leader:      info.Leader,
		Specialists: info.Specialists,
		Assistants:  info.Assistants,
	}, nil
}

// withUserFacts appends remembered facts to the coordinator's instructions.
func (p *Pipeline) withUserFacts(ctx context.Context, userID uint, instructions string) string {
	if p.mem == nil {
		return instructions
	}
	entries, err := p.mem.List(ctx, userID)
	if err != nil || len(entries) == 0 {
		return instructions
	}

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nKnown facts about the user:")
	for _, e := range entries {
		b.WriteString("\n- ")
		b.WriteString(e.Content)
	}
	return b.String()
}
