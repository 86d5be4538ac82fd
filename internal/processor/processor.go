package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/catalog"
	"github.com/MikeSquared-Agency/sentinel/internal/extractor"
	"github.com/MikeSquared-Agency/sentinel/internal/flow"
	"github.com/MikeSquared-Agency/sentinel/internal/hermes"
	"github.com/MikeSquared-Agency/sentinel/internal/llm"
	"github.com/MikeSquared-Agency/sentinel/internal/metrics"
	"github.com/MikeSquared-Agency/sentinel/internal/store"
)

const (
	// FallbackReply is returned for any turn that fails to process.
	FallbackReply = "I apologize, but I'm having trouble processing your message right now. Could you please try again?"

	actionNudge      = "\nInstruction: If you have enough info to call a tool, do it now."
	systemNoteFormat = "\n[SYSTEM NOTE: User intent detected as %s. Current State: %s]"
	handoffNotice    = "I'll need a specialist for that. Let me get someone from the department on the line."
	missingFormat    = "Before I connect you with a specialist, I'll need your %s. Could you please provide that?"

	sideEffectTimeout = 5 * time.Second
)

// Escalator hands a caller to a human specialist and returns a confirmation
// to show them.
type Escalator interface {
	Escalate(ctx context.Context, name, issue, phone string) (string, error)
}

// Publisher emits turn events.
type Publisher interface {
	Publish(subject string, data any) error
}

// Archive stores processed turns.
type Archive interface {
	RecordTurn(ctx context.Context, rec store.TurnRecord) error
}

// Config holds the collaborators of a Processor. Events and Archive are
// optional.
type Config struct {
	Generator    llm.Generator
	Escalator    Escalator
	Events       Publisher
	Archive      Archive
	HistoryLimit int
}

// TurnResult is what a caller gets back for one message.
type TurnResult struct {
	Reply      string                `json:"reply"`
	State      flow.State            `json:"state"`
	Extracted  map[flow.Field]string `json:"extracted_info"`
	Intent     flow.Intent           `json:"intent"`
	Generation llm.Generation        `json:"generation"`
	Escalated  bool                  `json:"escalated"`
}

// Processor runs the per-turn conversation flow.
type Processor struct {
	catalog   *catalog.Catalog
	extractor *extractor.Extractor
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

func New(c *catalog.Catalog, ext *extractor.Extractor, cfg Config, logger *zap.Logger) *Processor {
	return &Processor{
		catalog:   c,
		extractor: ext,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessMessage handles one user message against sess and never fails: any
// error becomes FallbackReply with the session moved to error_handling.
// Profile fields filled before a failure stay filled.
func (p *Processor) ProcessMessage(ctx context.Context, sess *flow.Session, message string, modality flow.Modality) TurnResult {
	from := sess.State.Normalize()

	res, turns, err := p.process(ctx, sess, message, modality)
	failed := err != nil
	if failed {
		p.logger.Error("turn processing failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		sess.State = flow.StateErrorHandling
		res = TurnResult{
			Reply:     FallbackReply,
			State:     flow.StateErrorHandling,
			Extracted: map[flow.Field]string{},
			Intent:    flow.IntentError,
		}
		metrics.TurnFailures.Inc()
	}

	metrics.TurnsTotal.WithLabelValues(string(res.Intent)).Inc()
	if from != res.State {
		metrics.StateTransitions.WithLabelValues(string(from), string(res.State)).Inc()
	}

	p.logger.Info("turn processed",
		zap.String("session_id", sess.ID),
		zap.String("intent", string(res.Intent)),
		zap.String("from", string(from)),
		zap.String("to", string(res.State)),
		zap.Int("extracted", len(res.Extracted)),
		zap.Bool("escalated", res.Escalated),
	)

	p.afterTurn(ctx, sess.ID, from, res, modality, turns, failed)
	return res
}

func (p *Processor) process(ctx context.Context, sess *flow.Session, message string, modality flow.Modality) (res TurnResult, turns []flow.Turn, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	intent := p.extractor.Intent(message)

	extracted := p.extractor.All(message)
	for _, f := range flow.Fields {
		if v, ok := extracted[f]; ok {
			sess.Profile.Fill(f, v)
		}
	}

	next := flow.Transition(sess.State.Normalize(), intent)
	sess.State = next

	contextBlock := flow.BuildContext(sess.Profile, next, extracted)
	prompt := p.catalog.SystemPrompt(next) +
		actionNudge +
		fmt.Sprintf(systemNoteFormat, intent, next) +
		"\n\nUser: " + message

	gen, err := p.cfg.Generator.Generate(ctx, prompt, contextBlock, historyMessages(sess.Recent(p.cfg.HistoryLimit)))
	if err != nil {
		return TurnResult{}, nil, fmt.Errorf("generate reply: %w", err)
	}
	metrics.GenerationLatency.WithLabelValues(gen.Model).Observe(gen.LatencyMS / 1000)
	metrics.GenerationTokens.WithLabelValues(gen.Model).Add(float64(gen.TokenCount))

	reply := gen.Text
	escalated := false
	if flow.DetectEscalation(reply) {
		if missing := sess.Profile.MissingForEscalation(); len(missing) > 0 {
			reply += "\n\n" + fmt.Sprintf(missingFormat, strings.Join(missing, " and "))
			metrics.Escalations.WithLabelValues("info_requested").Inc()
		} else {
			confirmation, err := p.cfg.Escalator.Escalate(ctx, sess.Profile.Name, message, sess.Profile.ContactInfo)
			if err != nil {
				return TurnResult{}, nil, fmt.Errorf("escalate: %w", err)
			}
			reply += "\n\n" + handoffNotice + "\n\n" + confirmation
			escalated = true
			metrics.Escalations.WithLabelValues("escalated").Inc()
		}
	}

	at := p.now()
	turns = []flow.Turn{
		sess.Append(flow.RoleUser, message, modality, at),
		sess.Append(flow.RoleAssistant, reply, modality, at),
	}

	gen.Text = reply
	return TurnResult{
		Reply:      reply,
		State:      next,
		Extracted:  extracted,
		Intent:     intent,
		Generation: gen,
		Escalated:  escalated,
	}, turns, nil
}

func historyMessages(turns []flow.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == flow.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: t.Content})
	}
	return out
}

// afterTurn publishes and archives a finished turn. Failures are logged only.
func (p *Processor) afterTurn(ctx context.Context, sessionID string, from flow.State, res TurnResult, modality flow.Modality, turns []flow.Turn, failed bool) {
	if p.cfg.Events == nil && p.cfg.Archive == nil {
		return
	}

	extracted := make(map[string]string, len(res.Extracted))
	for f, v := range res.Extracted {
		extracted[f.String()] = v
	}

	if p.cfg.Events != nil {
		evt := hermes.TurnEvent{
			SessionID:  sessionID,
			Intent:     string(res.Intent),
			FromState:  string(from),
			ToState:    string(res.State),
			Extracted:  extracted,
			Escalated:  res.Escalated,
			Failed:     failed,
			Modality:   string(modality),
			Model:      res.Generation.Model,
			LatencyMS:  res.Generation.LatencyMS,
			TokenCount: res.Generation.TokenCount,
			Timestamp:  p.now().UTC(),
		}
		if err := p.cfg.Events.Publish(hermes.SubjectTurnProcessed, evt); err != nil {
			p.logger.Warn("failed to publish turn event", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if p.cfg.Archive != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		rec := store.TurnRecord{
			SessionID:  sessionID,
			Intent:     res.Intent,
			FromState:  from,
			ToState:    res.State,
			Extracted:  res.Extracted,
			Escalated:  res.Escalated,
			Failed:     failed,
			Model:      res.Generation.Model,
			LatencyMS:  res.Generation.LatencyMS,
			TokenCount: res.Generation.TokenCount,
			Turns:      turns,
		}
		if err := p.cfg.Archive.RecordTurn(actx, rec); err != nil {
			p.logger.Warn("failed to archive turn", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}
