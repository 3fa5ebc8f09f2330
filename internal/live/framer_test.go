package live

import (
	"context"
	"errors"
	"testing"

	"github.com/aikonstudios/aikon/internal/audio"
)

// captureStream records forwarded frames.
type captureStream struct {
	frames [][]byte
	rates  []int
	closed bool
}

func (s *captureStream) SendAudio(_ context.Context, pcm []byte, sampleRate int) error {
	s.frames = append(s.frames, pcm)
	s.rates = append(s.rates, sampleRate)
	return nil
}

func (s *captureStream) Close() error {
	s.closed = true
	return nil
}

type captureEndpoint struct {
	stream *captureStream
	err    error
}

func (e *captureEndpoint) Connect(_ context.Context, _, _ string) (Stream, <-chan Event, error) {
	if e.err != nil {
		return nil, nil, e.err
	}
	events := make(chan Event)
	close(events)
	return e.stream, events, nil
}

func connectedFramer(t *testing.T) (*Framer, *captureStream) {
	t.Helper()
	stream := &captureStream{}
	f := NewFramer("sess-1", "aikon")
	if _, err := f.Connect(context.Background(), &captureEndpoint{stream: stream}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return f, stream
}

func TestFramerLifecycle(t *testing.T) {
	f := NewFramer("sess-1", "aikon")
	if f.State() != StateIdle {
		t.Fatalf("State = %s, want idle", f.State())
	}

	f, stream := connectedFramer(t)
	if f.State() != StateConnected {
		t.Fatalf("State = %s, want connected", f.State())
	}

	if err := f.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if f.State() != StateEnded || !stream.closed {
		t.Fatalf("state = %s, stream closed = %v", f.State(), stream.closed)
	}
	if err := f.End(); !errors.Is(err, ErrTerminal) {
		t.Fatalf("second End() error = %v, want ErrTerminal", err)
	}
}

func TestFramerConnectFailureIsTerminal(t *testing.T) {
	f := NewFramer("sess-1", "aikon")
	_, err := f.Connect(context.Background(), &captureEndpoint{err: errors.New("dial refused")})
	if err == nil {
		t.Fatal("Connect() should surface the dial error")
	}
	if f.State() != StateError {
		t.Fatalf("State = %s, want error", f.State())
	}
	if f.SetMuted(true) {
		t.Fatal("SetMuted should be rejected on a terminal session")
	}
}

func TestFramerRejectsDoubleConnect(t *testing.T) {
	f, _ := connectedFramer(t)
	if _, err := f.Connect(context.Background(), &captureEndpoint{stream: &captureStream{}}); err == nil {
		t.Fatal("second Connect() should fail")
	}
}

func TestForwardFrame(t *testing.T) {
	f, stream := connectedFramer(t)
	frame := audio.EncodeFrame([]byte{1, 0, 2, 0})

	dropped, err := f.ForwardFrame(context.Background(), frame, 0)
	if err != nil || dropped {
		t.Fatalf("ForwardFrame() = %v, %v", dropped, err)
	}
	if len(stream.frames) != 1 || stream.rates[0] != audio.DefaultSampleRate {
		t.Fatalf("frames = %d, rates = %v", len(stream.frames), stream.rates)
	}
}

func TestForwardFrameValidation(t *testing.T) {
	f, _ := connectedFramer(t)

	if _, err := f.ForwardFrame(context.Background(), "!!not-base64!!", 0); err == nil {
		t.Fatal("invalid base64 should fail")
	}
	if _, err := f.ForwardFrame(context.Background(), audio.EncodeFrame(nil), 0); !errors.Is(err, audio.ErrEmptyFrame) {
		t.Fatalf("empty frame error = %v", err)
	}
	if _, err := f.ForwardFrame(context.Background(), audio.EncodeFrame([]byte{1}), 0); !errors.Is(err, audio.ErrOddFrameLen) {
		t.Fatalf("odd frame error = %v", err)
	}
}

func TestForwardFrameRequiresConnection(t *testing.T) {
	f := NewFramer("sess-1", "aikon")
	_, err := f.ForwardFrame(context.Background(), audio.EncodeFrame([]byte{1, 0}), 0)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}
}

func TestMuteDropsWithoutTeardown(t *testing.T) {
	f, stream := connectedFramer(t)
	if !f.SetMuted(true) {
		t.Fatal("SetMuted(true) rejected")
	}

	dropped, err := f.ForwardFrame(context.Background(), audio.EncodeFrame([]byte{1, 0}), 0)
	if err != nil || !dropped {
		t.Fatalf("muted forward = %v, %v, want dropped", dropped, err)
	}
	if len(stream.frames) != 0 {
		t.Fatalf("muted frame reached the stream")
	}
	if f.State() != StateConnected {
		t.Fatalf("State = %s, mute must not tear down the session", f.State())
	}

	f.SetMuted(false)
	if dropped, err := f.ForwardFrame(context.Background(), audio.EncodeFrame([]byte{1, 0}), 0); err != nil || dropped {
		t.Fatalf("unmuted forward = %v, %v", dropped, err)
	}
}

func TestSchedulePlaybackSequencesFrames(t *testing.T) {
	f, _ := connectedFramer(t)
	pcm := make([]byte, 4800) // 100ms at 24kHz mono PCM16

	seq1, start1 := f.SchedulePlayback(pcm, 0)
	seq2, start2 := f.SchedulePlayback(pcm, 0)

	if seq1 != 1 || seq2 != 2 {
		t.Fatalf("seq = %d, %d", seq1, seq2)
	}
	if start2 < start1+100 {
		t.Fatalf("start2 = %d, want at least start1+100 (%d)", start2, start1+100)
	}
}
