package live

import (
	"context"
	"fmt"
	"log"

	"github.com/aikonstudios/aikon/internal/audio"
	"github.com/aikonstudios/aikon/internal/observability"
	"github.com/aikonstudios/aikon/internal/protocol"
	"github.com/aikonstudios/aikon/internal/reliability"
	"github.com/aikonstudios/aikon/internal/session"
)

// Bridge connects voice websockets to a live endpoint through a Framer.
type Bridge struct {
	endpoint Endpoint
	sessions *session.Manager
	metrics  *observability.Metrics
}

func NewBridge(endpoint Endpoint, sessions *session.Manager, metrics *observability.Metrics) *Bridge {
	return &Bridge{endpoint: endpoint, sessions: sessions, metrics: metrics}
}

// RunConnection drives one voice websocket until the client ends the session,
// the endpoint closes, or the context is cancelled.
func (b *Bridge) RunConnection(ctx context.Context, s *session.Session, inbound <-chan any, outbound chan<- any) error {
	framer := NewFramer(s.ID, s.PersonaID)
	defer framer.End()

	b.send(outbound, protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: s.ID, State: string(StateConnecting)})

	events, err := framer.Connect(ctx, b.endpoint)
	if err != nil {
		b.metrics.ProviderErrors.WithLabelValues("live", "connect_failed").Inc()
		b.send(outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      "connect_failed",
			Source:    "live",
			Retryable: true,
			Detail:    err.Error(),
		})
		b.send(outbound, protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: s.ID, State: string(StateError)})
		return err
	}
	b.send(outbound, protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: s.ID, State: string(StateConnected)})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				b.send(outbound, protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: s.ID, State: string(StateEnded)})
				return nil
			}
			if terminal := b.handleEvent(s.ID, framer, ev, outbound); terminal {
				return fmt.Errorf("live endpoint: %s", ev.Code)
			}

		case raw, ok := <-inbound:
			if !ok {
				return nil
			}
			switch msg := raw.(type) {
			case protocol.ClientAudioChunk:
				_ = b.sessions.Touch(s.ID)
				dropped, err := framer.ForwardFrame(ctx, msg.PCM16Base64, msg.SampleRate)
				if err != nil {
					b.metrics.WSMessages.WithLabelValues("inbound", "bad_audio").Inc()
					b.send(outbound, protocol.ErrorEvent{
						Type:      protocol.TypeErrorEvent,
						SessionID: s.ID,
						Code:      "invalid_audio_frame",
						Source:    "gateway",
						Detail:    err.Error(),
					})
					continue
				}
				if dropped {
					b.metrics.WSMessages.WithLabelValues("inbound", "muted_drop").Inc()
				}
			case protocol.ClientControl:
				if done := b.handleControl(s, framer, msg, outbound); done {
					return nil
				}
			default:
				b.send(outbound, protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: s.ID,
					Code:      "unsupported_message",
					Source:    "gateway",
				})
			}
		}
	}
}

func (b *Bridge) handleEvent(sessionID string, framer *Framer, ev Event, outbound chan<- any) (terminal bool) {
	switch ev.Type {
	case EventAudio:
		pcm, err := audio.DecodeFrame(ev.AudioBase64)
		if err != nil {
			log.Printf("live session %s: discarding malformed downstream frame: %v", sessionID, err)
			return
		}
		rate := ev.SampleRate
		if rate <= 0 {
			rate = audio.PlaybackSampleRate
		}
		seq, startAt := framer.SchedulePlayback(pcm, rate)
		b.send(outbound, protocol.AssistantAudioChunk{
			Type:        protocol.TypeAssistantAudio,
			SessionID:   sessionID,
			Seq:         seq,
			Format:      fmt.Sprintf("pcm16le_%d", rate),
			AudioBase64: ev.AudioBase64,
			StartAtMs:   startAt,
		})
	case EventText:
		b.send(outbound, protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: sessionID,
			Code:      "transcript",
			Detail:    ev.Text,
		})
	case EventError:
		retryable := ev.Retryable || reliability.IsRetryableRealtimeMessageType(ev.Code)
		b.metrics.ProviderErrors.WithLabelValues("live", ev.Code).Inc()
		b.send(outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      ev.Code,
			Source:    "live",
			Retryable: retryable,
			Detail:    ev.Detail,
		})
		if !retryable {
			framer.fail()
			b.send(outbound, protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: sessionID, State: string(StateError), Detail: ev.Code})
			return true
		}
	case EventEnded:
		// The channel close that follows emits the ended state.
	}
	return false
}

func (b *Bridge) handleControl(s *session.Session, framer *Framer, msg protocol.ClientControl, outbound chan<- any) (done bool) {
	switch msg.Action {
	case protocol.ActionMute:
		framer.SetMuted(true)
		b.send(outbound, protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: s.ID, Code: "muted"})
	case protocol.ActionUnmute:
		framer.SetMuted(false)
		b.send(outbound, protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: s.ID, Code: "unmuted"})
	case protocol.ActionCancelTurn:
		framer.Interrupt()
		b.send(outbound, protocol.SystemEvent{Type: protocol.TypeSystemEvent, SessionID: s.ID, Code: "playback_flushed"})
	case protocol.ActionEnd:
		if err := framer.End(); err == nil {
			b.send(outbound, protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: s.ID, State: string(StateEnded)})
		}
		if _, err := b.sessions.End(s.ID); err == nil {
			b.metrics.SessionEvents.WithLabelValues("ended").Inc()
		}
		return true
	default:
		b.send(outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: s.ID,
			Code:      "unsupported_action",
			Source:    "gateway",
			Detail:    msg.Action,
		})
	}
	return false
}

func (b *Bridge) send(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		b.metrics.WSMessages.WithLabelValues("outbound", "drop_full").Inc()
	}
}
