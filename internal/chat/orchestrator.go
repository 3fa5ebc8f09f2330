package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aikonstudios/aikon/internal/genai"
	"github.com/aikonstudios/aikon/internal/observability"
	"github.com/aikonstudios/aikon/internal/persona"
	"github.com/aikonstudios/aikon/internal/policy"
	"github.com/aikonstudios/aikon/internal/protocol"
	"github.com/aikonstudios/aikon/internal/session"
	"github.com/aikonstudios/aikon/internal/store"
	"github.com/aikonstudios/aikon/internal/tools"
)

const (
	historyContextLimit   = 12
	historyContextTimeout = 500 * time.Millisecond
	profileFetchTimeout   = 500 * time.Millisecond
	messageSaveTimeout    = 2 * time.Second
)

// errToolCallDetected aborts stream consumption once a complete payload has
// been recognized mid-stream; the rest of the turn is the dispatcher's.
var errToolCallDetected = errors.New("tool call detected")

const toolDirective = "When a request requires an action, respond with exactly one JSON object of the form " +
	`{"tool_call": "<name>", ...arguments} and nothing else. Available tools: generate_image, ` +
	"send_email, fetch_weather, generate_website, create_storyboard. For everything else reply in plain text."

// Orchestrator drives chat connections: one goroutine per websocket reads
// inbound client messages, and each user message starts an assistant turn
// that may supersede the previous one.
type Orchestrator struct {
	sessions       *session.Manager
	adapter        genai.Adapter
	store          store.Store
	dispatcher     *tools.Dispatcher
	personas       *persona.Registry
	metrics        *observability.Metrics
	streamMinChars int
}

func NewOrchestrator(
	sessions *session.Manager,
	adapter genai.Adapter,
	st store.Store,
	dispatcher *tools.Dispatcher,
	personas *persona.Registry,
	metrics *observability.Metrics,
	streamMinChars int,
) *Orchestrator {
	return &Orchestrator{
		sessions:       sessions,
		adapter:        adapter,
		store:          st,
		dispatcher:     dispatcher,
		personas:       personas,
		metrics:        metrics,
		streamMinChars: streamMinChars,
	}
}

// RunConnection drives a session lifecycle for one websocket connection.
// Inbound messages are pre-parsed protocol values; outbound values are
// marshaled by the transport.
func (o *Orchestrator) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	var (
		turnMu     sync.Mutex
		turnCancel context.CancelFunc
		activeGen  int64
		nextGen    int64
	)

	// Stale asynchronous completions must never write to a superseded turn.
	isCurrent := func(gen int64) bool {
		turnMu.Lock()
		defer turnMu.Unlock()
		return activeGen == gen
	}

	cancelActive := func() {
		turnMu.Lock()
		cancel := turnCancel
		turnCancel = nil
		activeGen = -1
		turnMu.Unlock()
		if cancel != nil {
			cancel()
		}
	}
	defer cancelActive()

	startTurn := func(msg protocol.ClientUserMessage) {
		turnMu.Lock()
		if turnCancel != nil {
			turnCancel()
		}
		nextGen++
		gen := nextGen
		activeGen = gen
		turnCtx, cancel := context.WithCancel(ctx)
		turnCancel = cancel
		turnMu.Unlock()

		go o.runAssistantTurn(turnCtx, *s, gen, msg, outbound, isCurrent)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-inbound:
			if !ok {
				return nil
			}
			switch msg := raw.(type) {
			case protocol.ClientUserMessage:
				_ = o.sessions.Touch(s.ID)
				startTurn(msg)
			case protocol.ClientControl:
				switch msg.Action {
				case protocol.ActionCancelTurn:
					cancelActive()
					_ = o.sessions.CancelTurn(s.ID)
					o.metrics.TurnOutcomes.WithLabelValues("cancelled").Inc()
				case protocol.ActionEnd:
					if _, err := o.sessions.End(s.ID); err == nil {
						o.metrics.SessionEvents.WithLabelValues("ended").Inc()
					}
					return nil
				default:
					o.send(outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						SessionID: s.ID,
						Code:      "unsupported_action",
						Source:    "gateway",
						Detail:    msg.Action,
					})
				}
			default:
				// Audio chunks and anything else do not belong on the chat socket.
				o.send(outbound, protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: s.ID,
					Code:      "unsupported_message",
					Source:    "gateway",
				})
			}
		}
	}
}

func (o *Orchestrator) runAssistantTurn(
	ctx context.Context,
	sess session.Session,
	gen int64,
	userMsg protocol.ClientUserMessage,
	outbound chan<- any,
	isCurrent func(int64) bool,
) {
	turn := NewStreamTurn(sess.ID, sess.UserID, gen)
	_ = o.sessions.StartTurn(sess.ID, turn.MessageID)

	o.saveMessageBestEffort(store.MessageRecord{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Sender:    string(SenderUser),
		Text:      userMsg.Text,
	})

	req := o.buildRequest(ctx, sess, turn, userMsg)

	collector := genai.NewDeltaCollector(o.streamMinChars)
	var (
		sentVisible string
		firstDelta  bool
	)
	turnStart := time.Now()

	emitVisible := func(total string) {
		if len(total) <= len(sentVisible) || !strings.HasPrefix(total, sentVisible) {
			return
		}
		delta := total[len(sentVisible):]
		sentVisible = total
		for _, seg := range collector.Consume(delta) {
			if !isCurrent(gen) {
				return
			}
			o.send(outbound, protocol.AssistantMessageDelta{
				Type:      protocol.TypeAssistantMessageDelta,
				SessionID: sess.ID,
				MessageID: turn.MessageID,
				TextDelta: seg,
			})
		}
	}

	flushVisible := func() {
		for _, seg := range collector.Finalize() {
			if !isCurrent(gen) {
				return
			}
			o.send(outbound, protocol.AssistantMessageDelta{
				Type:      protocol.TypeAssistantMessageDelta,
				SessionID: sess.ID,
				MessageID: turn.MessageID,
				TextDelta: seg,
			})
		}
	}

	onDelta := func(delta string) error {
		if ctx.Err() != nil || !isCurrent(gen) {
			return context.Canceled
		}
		if !firstDelta && delta != "" {
			firstDelta = true
			o.metrics.ObserveFirstDeltaLatency(time.Since(turnStart))
		}
		acc := turn.Append(delta)
		res := Sniff(acc)
		switch res.Verdict {
		case SniffProse:
			turn.SetVisible(res.Visible)
			emitVisible(res.Visible)
		case SniffHold:
			// Looks like a tool call taking shape; show nothing new.
		case SniffToolCall:
			turn.SetPayload(res.Payload)
			turn.SetVisible(res.Visible)
			turn.Advance(TurnToolCallDetected)
			return errToolCallDetected
		}
		return nil
	}

	resp, err := o.adapter.StreamResponse(ctx, req, onDelta)
	if err != nil && !errors.Is(err, errToolCallDetected) {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			// Superseded or user-cancelled; the canceller already accounted
			// for it. Nothing may be written against this turn anymore.
			return
		}
		o.failTurn(turn, sess.ID, outbound, gen, isCurrent, err)
		return
	}

	// Defensive: an adapter may return final text without delta callbacks.
	if turn.Accumulated() == "" && resp.Text != "" {
		turn.Append(resp.Text)
	}

	payload := turn.Payload()
	if payload == nil {
		fin := SniffFinal(turn.Accumulated())
		turn.SetVisible(fin.Visible)
		if fin.Verdict == SniffToolCall {
			payload = fin.Payload
			turn.SetPayload(fin.Payload)
			turn.Advance(TurnToolCallDetected)
			o.metrics.MarkTurnIndicator("tool_call_final_sniff")
		}
	}

	var result *tools.Result
	if payload != nil {
		flushVisible()
		turn.Advance(TurnToolCallExecuting)
		if isCurrent(gen) {
			o.send(outbound, o.snapshot(sess.ID, Project(turn, nil)))
		}

		dispatchStart := time.Now()
		res, derr := o.dispatcher.Dispatch(ctx, payload.Name, payload.Args)
		o.metrics.ObserveDispatchLatency(time.Since(dispatchStart))

		if derr != nil {
			if ctx.Err() != nil {
				return
			}
			// Unknown tool: degrade to the raw model text rather than crash.
			log.Printf("turn %s: %v", turn.MessageID, derr)
			o.metrics.ToolDispatches.WithLabelValues(payload.Name, "unknown").Inc()
			o.metrics.MarkTurnIndicator("raw_text_fallback")
			turn.SetVisible(strings.TrimSpace(turn.Accumulated()))
		} else {
			o.metrics.ToolDispatches.WithLabelValues(payload.Name, string(res.State)).Inc()
			result = &res
		}
	} else {
		flushVisible()
	}

	turn.Advance(TurnComplete)
	final := Project(turn, result)

	if isCurrent(gen) {
		o.send(outbound, o.snapshot(sess.ID, final))
		o.send(outbound, protocol.AssistantTurnEnd{
			Type:      protocol.TypeAssistantTurnEnd,
			SessionID: sess.ID,
			MessageID: turn.MessageID,
			Reason:    "complete",
		})
	}
	_ = o.sessions.FinishTurn(sess.ID, turn.MessageID)
	o.metrics.TurnOutcomes.WithLabelValues("complete").Inc()
	o.metrics.ObserveTurnTotal(time.Since(turnStart))

	record := store.MessageRecord{
		ID:        turn.MessageID,
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Sender:    string(SenderAssistant),
		Text:      final.Text,
	}
	if final.ToolResult != nil {
		if raw, err := json.Marshal(final.ToolResult); err == nil {
			record.ToolResultJSON = string(raw)
		}
	}
	o.saveMessageBestEffort(record)
}

func (o *Orchestrator) failTurn(
	turn *StreamTurn,
	sessionID string,
	outbound chan<- any,
	gen int64,
	isCurrent func(int64) bool,
	cause error,
) {
	log.Printf("turn %s failed: %v", turn.MessageID, cause)
	turn.Fail(cause.Error())
	o.metrics.TurnOutcomes.WithLabelValues("failed").Inc()
	o.metrics.ProviderErrors.WithLabelValues("genai", "stream_failed").Inc()

	if isCurrent(gen) {
		o.send(outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "stream_failed",
			Source:    "genai",
			Retryable: true,
			Detail:    turn.FailureDetail(),
		})
		o.send(outbound, o.snapshot(sessionID, Project(turn, nil)))
		o.send(outbound, protocol.AssistantTurnEnd{
			Type:      protocol.TypeAssistantTurnEnd,
			SessionID: sessionID,
			MessageID: turn.MessageID,
			Reason:    "failed",
		})
	}
	_ = o.sessions.FinishTurn(sessionID, turn.MessageID)
}

func (o *Orchestrator) buildRequest(
	ctx context.Context,
	sess session.Session,
	turn *StreamTurn,
	userMsg protocol.ClientUserMessage,
) genai.MessageRequest {
	personaID := strings.TrimSpace(userMsg.PersonaID)
	if personaID == "" {
		personaID = sess.PersonaID
	}
	p := o.personas.Resolve(ctx, sess.UserID, personaID)

	var history []string
	if o.store != nil {
		recentCtx, cancel := context.WithTimeout(ctx, historyContextTimeout)
		recent, err := o.store.RecentMessages(recentCtx, sess.UserID, historyContextLimit)
		cancel()
		if err == nil {
			for _, r := range recent {
				if strings.TrimSpace(r.Text) == "" {
					continue
				}
				history = append(history, r.Sender+": "+r.Text)
			}
		}
	}

	instruction := p.Instruction
	if o.store != nil {
		profCtx, cancel := context.WithTimeout(ctx, profileFetchTimeout)
		profile, err := o.store.GetProfile(profCtx, sess.UserID)
		cancel()
		if err == nil {
			if about := strings.TrimSpace(profile.AboutYou); about != "" {
				instruction += "\nAbout the user: " + about
			}
			if custom := strings.TrimSpace(profile.CustomInstructions); custom != "" {
				instruction += "\n" + custom
			}
		}
	}
	instruction += "\n" + toolDirective

	return genai.MessageRequest{
		UserID:            sess.UserID,
		SessionID:         sess.ID,
		TurnID:            turn.MessageID,
		InputText:         userMsg.Text,
		HistoryContext:    history,
		SystemInstruction: instruction,
		PersonaID:         p.ID,
	}
}

func (o *Orchestrator) snapshot(sessionID string, msg DisplayMessage) protocol.AssistantMessage {
	out := protocol.AssistantMessage{
		Type:      protocol.TypeAssistantMessage,
		SessionID: sessionID,
		MessageID: msg.ID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		Status:    string(msg.Status),
	}
	if msg.ToolResult != nil {
		out.ToolResult = msg.ToolResult
	}
	return out
}

// send never blocks the turn goroutine: if the outbound queue is saturated
// the message is dropped and counted, keeping websocket writes responsive.
func (o *Orchestrator) send(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		o.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
	}
}

func (o *Orchestrator) saveMessageBestEffort(record store.MessageRecord) {
	if o.store == nil {
		return
	}
	redacted, changed := policy.RedactPII(record.Text)
	record.Text = redacted
	record.PIIRedacted = changed

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), messageSaveTimeout)
		defer cancel()
		if err := o.store.SaveMessage(ctx, record); err != nil {
			log.Printf("save message: %v", err)
		}
	}()
}
