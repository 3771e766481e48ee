package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personahub/agent"
	"personahub/model"
	"personahub/store"
	"personahub/tool"
)

type pipelineFixture struct {
	store    *store.Store
	pipeline *Pipeline
	backend  *model.MockBackend
	user     *store.User
	persona  *store.Persona
	conv     *store.Conversation
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)

	backend := model.NewMockBackend("m", "mock")
	models := model.NewRegistry()
	models.Register("mock", func(modelID string) model.Backend { return backend })

	builder := agent.NewBuilder(models, tool.NewRegistry(), nil)
	pipeline := NewPipeline(st, builder)

	user := &store.User{Email: "u@example.com", Name: "U"}
	require.NoError(t, st.CreateUser(user))

	ag := &store.Agent{Name: "Worker", Role: "specialist", Instructions: "Work", ModelProvider: "mock", ModelID: "m"}
	require.NoError(t, st.CreateAgent(ag))

	persona := &store.Persona{
		Name:          "Advisor",
		Instructions:  "Advise",
		ModelProvider: "mock",
		ModelID:       "m",
		AgentIDs:      store.IDList{ag.ID},
	}
	require.NoError(t, st.CreatePersona(persona))
	require.NoError(t, st.AssignPersona(user.ID, persona.ID))

	conv := &store.Conversation{UserID: user.ID, PersonaID: persona.ID, Title: "T"}
	require.NoError(t, st.CreateConversation(conv))

	return &pipelineFixture{
		store:    st,
		pipeline: pipeline,
		backend:  backend,
		user:     user,
		persona:  persona,
		conv:     conv,
	}
}

func TestProcessMessageEndToEnd(t *testing.T) {
	f := newPipelineFixture(t)
	f.backend.AddResponse("Hello", "Hi there!")

	out, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", out.Content)
	assert.Equal(t, "assistant", out.Role)
	assert.Equal(t, store.SenderPersona, out.SenderType)
	assert.Equal(t, "Team Leader", out.AgentName)

	msgs, err := f.store.Messages(f.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "Hi there!", msgs[1].Content)

	runLog, err := f.store.RunLogForMessage(out.ID)
	require.NoError(t, err)
	assert.Equal(t, f.conv.ID, runLog.ConversationID)
	assert.Equal(t, f.persona.ID, runLog.PersonaID)
	assert.Contains(t, runLog.RawLog, "team run started")
}

func TestProcessMessageUnknownConversation(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, 999, "Hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcessMessageOtherUsersConversation(t *testing.T) {
	f := newPipelineFixture(t)

	other := &store.User{Email: "other@example.com"}
	require.NoError(t, f.store.CreateUser(other))

	_, err := f.pipeline.ProcessMessage(context.Background(), other.ID, f.conv.ID, "Hello", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcessMessagePersonaGone(t *testing.T) {
	f := newPipelineFixture(t)

	require.NoError(t, f.store.UnassignPersona(f.user.ID, f.persona.ID))
	require.NoError(t, f.store.DeactivatePersona(f.persona.ID))

	out, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sorry, this persona doesn't exist.", out.Content)
	assert.Equal(t, store.SenderPersona, out.SenderType)
}

func TestProcessMessageNoActiveAgents(t *testing.T) {
	f := newPipelineFixture(t)

	// Simulate drift: the agent row goes inactive underneath the persona's
	// stored id list.
	require.NoError(t, f.store.DB().Model(&store.Agent{}).
		Where("1 = 1").Update("active", false).Error)

	out, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "Hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sorry, this persona doesn't have any active agents configured.", out.Content)

	// No team ran, so no diagnostic row exists.
	_, total, err := f.store.ListRunLogs(nil, 10, 0, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProcessMessageFailuresWriteNoRunLog(t *testing.T) {
	f := newPipelineFixture(t)
	f.backend.FailWith(fmt.Errorf("rate limited"))

	_, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "Hello", nil)
	require.NoError(t, err)

	require.NoError(t, f.store.UnassignPersona(f.user.ID, f.persona.ID))
	require.NoError(t, f.store.DeactivatePersona(f.persona.ID))

	_, err = f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "Again", nil)
	require.NoError(t, err)

	// One run log per successful invocation; failed invokes and the
	// missing-persona outcome leave none.
	_, total, err := f.store.ListRunLogs(nil, 10, 0, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProcessMessageModelErrorBecomesReply(t *testing.T) {
	f := newPipelineFixture(t)
	f.backend.FailWith(fmt.Errorf("rate limited"))

	out, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "Hello", nil)
	require.NoError(t, err)
	assert.Contains(t, out.Content, "Sorry, I encountered an error: ")
	assert.Contains(t, out.Content, "rate limited")
	assert.Equal(t, store.SenderSystem, out.SenderType)
	assert.Empty(t, out.AgentName)

	// Both rows persisted despite the failure.
	msgs, err := f.store.Messages(f.conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestProcessMessageHistoryWindow(t *testing.T) {
	f := newPipelineFixture(t)

	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		require.NoError(t, f.store.AppendMessage(&store.Message{
			ConversationID: f.conv.ID,
			Role:           role,
			Content:        fmt.Sprintf("old %d", i),
		}))
	}

	_, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "current", nil)
	require.NoError(t, err)

	reqs := f.backend.Requests()
	require.NotEmpty(t, reqs)
	msgs := reqs[len(reqs)-1].Messages

	// The team sees a single rendered context: the ten newest history
	// turns in chronological order plus the current message.
	require.Len(t, msgs, 1)
	rendered := msgs[0].Content
	assert.Contains(t, rendered, "Previous conversation:\nUser: old 5")
	assert.NotContains(t, rendered, "old 4")
	assert.Contains(t, rendered, "Current message: current")
}

func TestProcessMessageFileReferences(t *testing.T) {
	f := newPipelineFixture(t)

	file := &store.File{UserID: f.user.ID, Filename: "notes.txt", ObjectKey: "k1", ContentType: "text/plain"}
	require.NoError(t, f.store.CreateFile(file))

	_, err := f.pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "read this", []uint{file.ID})
	require.NoError(t, err)

	// The model sees the reference line; the stored row keeps the raw text.
	reqs := f.backend.Requests()
	last := reqs[len(reqs)-1].Messages
	require.Len(t, last, 1)
	assert.Contains(t, last[0].Content, "Attached Files:")
	assert.Contains(t, last[0].Content,
		fmt.Sprintf("[File ID: %d - Use process_file tool to analyze this file]", file.ID))

	msgs, err := f.store.Messages(f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "read this", msgs[0].Content)

	attached, err := f.store.MessageFiles(msgs[0].ID)
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, file.ID, attached[0].ID)
}

func TestTeamInfo(t *testing.T) {
	f := newPipelineFixture(t)

	info, err := f.pipeline.TeamInfo(context.Background(), f.persona.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.TotalAgents)
	assert.Equal(t, "Advisor", info.Leader)
	assert.Equal(t, []string{"Worker"}, info.Specialists)
	assert.Empty(t, info.Assistants)
}

func TestTeamInfoNoAgents(t *testing.T) {
	f := newPipelineFixture(t)

	require.NoError(t, f.store.DB().Model(&store.Agent{}).
		Where("1 = 1").Update("active", false).Error)

	info, err := f.pipeline.TeamInfo(context.Background(), f.persona.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, info.TotalAgents)
	assert.Empty(t, info.Leader)
}

func TestTeamInfoUnknownPersona(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.TeamInfo(context.Background(), 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestProcessMessageStream(t *testing.T) {
	f := newPipelineFixture(t)
	f.backend.AddResponse("Hello", "OK")

	var got []Event
	for ev := range f.pipeline.ProcessMessageStream(context.Background(), f.user.ID, f.conv.ID, "Hello", nil) {
		got = append(got, ev)
	}

	require.Len(t, got, 4)
	assert.Equal(t, EventUserMessage, got[0].Type)
	require.NotNil(t, got[0].Message)
	assert.Equal(t, "Hello", got[0].Message.Content)

	assert.Equal(t, EventChunk, got[1].Type)
	assert.Equal(t, "O", got[1].Content)
	assert.Equal(t, EventChunk, got[2].Type)
	assert.Equal(t, "K", got[2].Content)

	assert.Equal(t, EventComplete, got[3].Type)
	require.NotNil(t, got[3].Message)
	assert.Equal(t, "OK", got[3].Message.Content)
}

func TestProcessMessageStreamError(t *testing.T) {
	f := newPipelineFixture(t)

	var got []Event
	for ev := range f.pipeline.ProcessMessageStream(context.Background(), f.user.ID, 999, "Hello", nil) {
		got = append(got, ev)
	}

	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Type)
	assert.NotEmpty(t, got[0].Err)
}

// stallingBackend holds its first completion until released so a test can
// line up a second turn behind the conversation gate.
type stallingBackend struct {
	inner   *model.MockBackend
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *stallingBackend) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.inner.Complete(ctx, req)
}

func (b *stallingBackend) ExtractText(ctx context.Context, prompt, imageURL string) (string, error) {
	return b.inner.ExtractText(ctx, prompt, imageURL)
}

func (b *stallingBackend) Info() model.Info { return b.inner.Info() }

func TestProcessMessageSerializesTurnsInSubmissionOrder(t *testing.T) {
	f := newPipelineFixture(t)

	backend := &stallingBackend{
		inner:   f.backend,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	models := model.NewRegistry()
	models.Register("mock", func(modelID string) model.Backend { return backend })
	pipeline := NewPipeline(f.store, agent.NewBuilder(models, tool.NewRegistry(), nil))

	done := make(chan error, 2)
	go func() {
		_, err := pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "first", nil)
		done <- err
	}()

	// The first turn is inside its model call, holding the gate.
	<-backend.entered

	go func() {
		_, err := pipeline.ProcessMessage(context.Background(), f.user.ID, f.conv.ID, "second", nil)
		done <- err
	}()

	// Let the second turn reach the gate before the first is released.
	time.Sleep(50 * time.Millisecond)
	close(backend.release)

	require.NoError(t, <-done)
	require.NoError(t, <-done)

	msgs, err := f.store.Messages(f.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "second", msgs[2].Content)
	assert.Equal(t, "assistant", msgs[3].Role)
}
