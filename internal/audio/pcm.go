package audio

import (
	"encoding/base64"
	"errors"
	"time"
)

const (
	// DefaultSampleRate is the capture rate expected from clients.
	DefaultSampleRate = 16000
	// PlaybackSampleRate is the rate of synthesized speech frames.
	PlaybackSampleRate = 24000

	bytesPerSample = 2
)

var (
	ErrEmptyFrame  = errors.New("audio: empty frame")
	ErrOddFrameLen = errors.New("audio: frame length not a multiple of sample size")
)

// DecodeFrame decodes a base64 PCM16LE frame and validates its shape.
func DecodeFrame(encoded string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(pcm)%bytesPerSample != 0 {
		return nil, ErrOddFrameLen
	}
	return pcm, nil
}

// EncodeFrame encodes a raw PCM16LE frame for the wire.
func EncodeFrame(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// Duration reports the playback time of a PCM16LE mono frame.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	samples := len(pcm) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
