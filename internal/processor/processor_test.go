package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/catalog"
	"github.com/MikeSquared-Agency/sentinel/internal/extractor"
	"github.com/MikeSquared-Agency/sentinel/internal/flow"
	"github.com/MikeSquared-Agency/sentinel/internal/hermes"
	"github.com/MikeSquared-Agency/sentinel/internal/llm"
	"github.com/MikeSquared-Agency/sentinel/internal/store"
)

type generatorCall struct {
	prompt       string
	contextBlock string
	history      []llm.Message
}

type fakeGenerator struct {
	reply string
	err   error
	panic bool
	calls []generatorCall
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt, contextBlock string, history []llm.Message) (llm.Generation, error) {
	g.calls = append(g.calls, generatorCall{prompt, contextBlock, history})
	if g.panic {
		panic("generator exploded")
	}
	if g.err != nil {
		return llm.Generation{}, g.err
	}
	return llm.Generation{Text: g.reply, LatencyMS: 12.5, TokenCount: 40, Model: "fake-model"}, nil
}

type escalateCall struct {
	name, issue, phone string
}

type fakeEscalator struct {
	confirmation string
	err          error
	calls        []escalateCall
}

func (e *fakeEscalator) Escalate(ctx context.Context, name, issue, phone string) (string, error) {
	e.calls = append(e.calls, escalateCall{name, issue, phone})
	return e.confirmation, e.err
}

type fakePublisher struct {
	events []hermes.TurnEvent
}

func (f *fakePublisher) Publish(subject string, data any) error {
	if evt, ok := data.(hermes.TurnEvent); ok && subject == hermes.SubjectTurnProcessed {
		f.events = append(f.events, evt)
	}
	return errors.New("bus unavailable")
}

type fakeArchive struct {
	records []store.TurnRecord
}

func (f *fakeArchive) RecordTurn(ctx context.Context, rec store.TurnRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func newTestProcessor(gen llm.Generator, esc Escalator) *Processor {
	cat := catalog.Default()
	return New(cat, extractor.New(cat, zap.NewNop()), Config{
		Generator:    gen,
		Escalator:    esc,
		HistoryLimit: 20,
	}, zap.NewNop())
}

func newSession() *flow.Session {
	return flow.NewSession("sess-test", testTime)
}

func TestProcessMessage_SupportScenario(t *testing.T) {
	gen := &fakeGenerator{reply: "Sorry to hear that, Jane. What's your policy number?"}
	p := newTestProcessor(gen, &fakeEscalator{})
	sess := newSession()

	res := p.ProcessMessage(context.Background(), sess, "Hi, I'm Jane Doe and I have a claim issue", flow.ModalityText)

	assert.Equal(t, flow.IntentSupport, res.Intent)
	assert.Equal(t, flow.StateSupportFlow, res.State)
	assert.Equal(t, flow.StateSupportFlow, sess.State)
	assert.Equal(t, "Jane Doe", sess.Profile.Name)
	assert.Equal(t, map[flow.Field]string{
		flow.FieldName:        "Jane Doe",
		flow.FieldInquiryType: "support",
	}, res.Extracted)
	assert.Equal(t, gen.reply, res.Reply)
	assert.False(t, res.Escalated)
	assert.Equal(t, "fake-model", res.Generation.Model)
	assert.Equal(t, 40, res.Generation.TokenCount)

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.True(t, strings.HasPrefix(call.prompt, catalog.Default().SystemPrompt(flow.StateSupportFlow)))
	assert.Contains(t, call.prompt, "\nInstruction: If you have enough info to call a tool, do it now.")
	assert.Contains(t, call.prompt, "\n[SYSTEM NOTE: User intent detected as support. Current State: support_flow]")
	assert.True(t, strings.HasSuffix(call.prompt, "\n\nUser: Hi, I'm Jane Doe and I have a claim issue"))
	assert.Equal(t, "### INTERNAL AGENT STATE ###\nAVAILABLE_DATA: name: Jane Doe\nCURRENT_PHASE: support_flow", call.contextBlock)
	assert.Empty(t, call.history)

	require.Len(t, sess.History, 2)
	assert.Equal(t, flow.RoleUser, sess.History[0].Role)
	assert.Equal(t, flow.RoleAssistant, sess.History[1].Role)
	assert.Equal(t, gen.reply, sess.History[1].Content)
}

func TestProcessMessage_GeneratorFailureKeepsExtraction(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exhausted")}
	p := newTestProcessor(gen, &fakeEscalator{})
	sess := newSession()

	res := p.ProcessMessage(context.Background(), sess, "My name is john smith, and I need help", flow.ModalityVoice)

	assert.Equal(t, FallbackReply, res.Reply)
	assert.Equal(t, flow.StateErrorHandling, res.State)
	assert.Equal(t, flow.IntentError, res.Intent)
	assert.Empty(t, res.Extracted)
	assert.Equal(t, llm.Generation{}, res.Generation)

	assert.Equal(t, flow.StateErrorHandling, sess.State)
	assert.Equal(t, "John Smith", sess.Profile.Name, "extraction before the failure persists")
	assert.Empty(t, sess.History)

	// The next turn recovers out of error_handling.
	gen.err = nil
	gen.reply = "Welcome back!"
	res = p.ProcessMessage(context.Background(), sess, "hello", flow.ModalityText)
	assert.Equal(t, flow.IntentGreeting, res.Intent)
	assert.Equal(t, flow.StateGreeting, res.State)
	assert.Equal(t, "John Smith", sess.Profile.Name)
}

func TestProcessMessage_GeneratorPanicIsContained(t *testing.T) {
	p := newTestProcessor(&fakeGenerator{panic: true}, &fakeEscalator{})
	sess := newSession()

	res := p.ProcessMessage(context.Background(), sess, "I want a quote", flow.ModalityText)

	assert.Equal(t, FallbackReply, res.Reply)
	assert.Equal(t, flow.StateErrorHandling, sess.State)
}

func TestProcessMessage_EscalationRequestsMissingInfo(t *testing.T) {
	gen := &fakeGenerator{reply: "This requires specialist assistance."}
	esc := &fakeEscalator{confirmation: "ticket"}
	p := newTestProcessor(gen, esc)
	sess := newSession()

	res := p.ProcessMessage(context.Background(), sess, "My claim was denied, what now?", flow.ModalityText)

	assert.Equal(t, "This requires specialist assistance.\n\n"+
		"Before I connect you with a specialist, I'll need your name and phone number. Could you please provide that?", res.Reply)
	assert.False(t, res.Escalated)
	assert.Empty(t, esc.calls)
	assert.Equal(t, res.Reply, sess.History[1].Content)
}

func TestProcessMessage_EscalationMissingPhoneOnly(t *testing.T) {
	gen := &fakeGenerator{reply: "I will escalate this."}
	p := newTestProcessor(gen, &fakeEscalator{})
	sess := newSession()
	sess.Profile.Name = "Jane Doe"

	res := p.ProcessMessage(context.Background(), sess, "My claim was denied, what now?", flow.ModalityText)

	assert.True(t, strings.HasSuffix(res.Reply, "I'll need your phone number. Could you please provide that?"))
}

func TestProcessMessage_EscalatesWithCompleteProfile(t *testing.T) {
	gen := &fakeGenerator{reply: "Let me connect you with a specialist."}
	esc := &fakeEscalator{confirmation: "Escalation ticket ESC-1234ABCD created."}
	p := newTestProcessor(gen, esc)
	sess := newSession()
	sess.Profile.Name = "Jane Doe"
	sess.Profile.ContactInfo = "555-123-4567"

	msg := "Please transfer me, my claim was denied."
	res := p.ProcessMessage(context.Background(), sess, msg, flow.ModalityText)

	require.Len(t, esc.calls, 1)
	assert.Equal(t, escalateCall{"Jane Doe", msg, "555-123-4567"}, esc.calls[0])
	assert.Equal(t, "Let me connect you with a specialist.\n\n"+
		"I'll need a specialist for that. Let me get someone from the department on the line.\n\n"+
		"Escalation ticket ESC-1234ABCD created.", res.Reply)
	assert.True(t, res.Escalated)
	assert.Equal(t, res.Reply, res.Generation.Text)
}

func TestProcessMessage_EscalatorFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{reply: "A human agent will help."}
	esc := &fakeEscalator{err: errors.New("desk offline")}
	p := newTestProcessor(gen, esc)
	sess := newSession()
	sess.Profile.Name = "Jane Doe"
	sess.Profile.ContactInfo = "555-123-4567"

	res := p.ProcessMessage(context.Background(), sess, "I need a person", flow.ModalityText)

	assert.Equal(t, FallbackReply, res.Reply)
	assert.Equal(t, flow.IntentError, res.Intent)
	assert.Equal(t, flow.StateErrorHandling, sess.State)
	assert.Empty(t, sess.History)
}

func TestProcessMessage_NeverOverwritesProfile(t *testing.T) {
	gen := &fakeGenerator{reply: "Got it."}
	p := newTestProcessor(gen, &fakeEscalator{})
	sess := newSession()
	sess.Profile.Name = "Jane Doe"

	res := p.ProcessMessage(context.Background(), sess, "My name is bob stone, and I need help", flow.ModalityText)

	assert.Equal(t, "Bob Stone", res.Extracted[flow.FieldName])
	assert.Equal(t, "Jane Doe", sess.Profile.Name)
	assert.Contains(t, gen.calls[0].contextBlock, "name: Bob Stone", "turn-local value wins in context")

	// A turn without a name leaves the stored one alone.
	p.ProcessMessage(context.Background(), sess, "What does my plan cover?", flow.ModalityText)
	assert.Equal(t, "Jane Doe", sess.Profile.Name)
}

func TestProcessMessage_PassesRecentHistory(t *testing.T) {
	gen := &fakeGenerator{reply: "ok."}
	cat := catalog.Default()
	p := New(cat, extractor.New(cat, zap.NewNop()), Config{
		Generator:    gen,
		Escalator:    &fakeEscalator{},
		HistoryLimit: 3,
	}, zap.NewNop())
	sess := newSession()

	for _, msg := range []string{"hello", "I need help with my claim", "What is covered?"} {
		p.ProcessMessage(context.Background(), sess, msg, flow.ModalityVoice)
	}

	require.Len(t, gen.calls, 3)
	assert.Len(t, gen.calls[1].history, 2)
	last := gen.calls[2].history
	require.Len(t, last, 3)
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "ok."}, last[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "I need help with my claim"}, last[1])

	require.Len(t, sess.History, 6)
	for i, turn := range sess.History {
		assert.Equal(t, i, turn.Position)
		assert.Equal(t, flow.ModalityVoice, turn.Modality)
	}
}

func TestProcessMessage_SalesContextNudge(t *testing.T) {
	gen := &fakeGenerator{reply: "Happy to quote."}
	p := newTestProcessor(gen, &fakeEscalator{})
	sess := newSession()

	res := p.ProcessMessage(context.Background(), sess, "I want a quote for car insurance", flow.ModalityText)

	assert.Equal(t, flow.StateSalesFlow, res.State)
	assert.True(t, strings.HasSuffix(gen.calls[0].contextBlock, "MISSING_REQUIRED: Phone number needed for quote."))
}

func TestProcessMessage_PublishesAndArchives(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure."}
	pub := &fakePublisher{}
	arc := &fakeArchive{}
	cat := catalog.Default()
	p := New(cat, extractor.New(cat, zap.NewNop()), Config{
		Generator: gen,
		Escalator: &fakeEscalator{},
		Events:    pub,
		Archive:   arc,
	}, zap.NewNop())
	sess := newSession()

	res := p.ProcessMessage(context.Background(), sess, "Hi, I'm Jane Doe and I have a claim issue", flow.ModalityVoice)
	assert.Equal(t, "Sure.", res.Reply, "publish failures do not change the result")

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, "sess-test", evt.SessionID)
	assert.Equal(t, "greeting", evt.FromState)
	assert.Equal(t, "support_flow", evt.ToState)
	assert.Equal(t, "Jane Doe", evt.Extracted["name"])
	assert.Equal(t, "voice", evt.Modality)
	assert.False(t, evt.Failed)

	require.Len(t, arc.records, 1)
	assert.Len(t, arc.records[0].Turns, 2)

	gen.err = errors.New("down")
	p.ProcessMessage(context.Background(), sess, "still there?", flow.ModalityText)
	require.Len(t, arc.records, 2)
	assert.True(t, arc.records[1].Failed)
	assert.Empty(t, arc.records[1].Turns)
	assert.Equal(t, flow.IntentError, arc.records[1].Intent)
}
