// Package services – AudioService
//
// This file implements the audio bridge between WhatsApp voice notes and the
// speech endpoints: downloading inbound media to a scratch file, transcribing
// it, synthesizing spoken replies, and re-uploading them.
//
// Failure policy differs by direction. Downloads and uploads propagate errors
// because the pipeline cannot proceed without them. Transcription never fails:
// a missing credential or a service error degrades to a placeholder so a
// voice note still produces a coached reply. Synthesis fails loudly because
// the voice reply is an optional branch the caller already guards.
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aurawell/go-coach-backend/internal/observability"
)

// Transcription placeholder texts. These flow into the conversation log as
// the user turn when real transcription is unavailable.
const (
	placeholderNoCredential = "Audio message received (transcription not available)"
	placeholderFailed       = "Audio message received (transcription failed)"
	placeholderEmpty        = "Could not transcribe audio"
)

// TranscriptionStatus tags a Transcription result so callers and tests can
// tell genuine success from a masked failure.
type TranscriptionStatus string

const (
	// TranscriptionOK means the text is a real transcript.
	TranscriptionOK TranscriptionStatus = "ok"
	// TranscriptionDegraded means no credential was configured and the text
	// is a placeholder.
	TranscriptionDegraded TranscriptionStatus = "degraded"
	// TranscriptionFailed means the speech service errored and the text is a
	// placeholder.
	TranscriptionFailed TranscriptionStatus = "failed"
)

// Transcription is the tagged result of transcribing a voice note. The Text
// field is always usable as pipeline input regardless of Status.
type Transcription struct {
	Text   string
	Status TranscriptionStatus
}

// MediaStore is the WhatsApp media surface the audio bridge needs.
type MediaStore interface {
	MediaURL(ctx context.Context, mediaID string) (string, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
	UploadMedia(ctx context.Context, path, mimeType string) (string, error)
}

// SpeechModel is the speech-to-text / text-to-speech surface of the LLM
// provider.
type SpeechModel interface {
	Configured() bool
	Transcribe(ctx context.Context, path string) (string, error)
	Speech(ctx context.Context, text, voice string) ([]byte, error)
}

// AudioService bridges WhatsApp media and the speech endpoints, managing the
// scratch files in between.
type AudioService struct {
	Media      MediaStore
	Speech     SpeechModel
	ScratchDir string
	Voice      string // TTS voice, e.g. "alloy"
}

// VoiceConfigured reports whether a speech credential is available, which
// gates both real transcription and the voice-reply branch.
func (s *AudioService) VoiceConfigured() bool {
	return s.Speech != nil && s.Speech.Configured()
}

// Download resolves a media ID to its time-limited URL, fetches the bytes,
// and persists them to a scratch file named after the media ID. Failures at
// either step propagate to the caller; there is no retry.
func (s *AudioService) Download(ctx context.Context, mediaID string) (string, error) {
	url, err := s.Media.MediaURL(ctx, mediaID)
	if err != nil {
		return "", fmt.Errorf("resolve media url: %w", err)
	}
	data, err := s.Media.DownloadMedia(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}

	if err := os.MkdirAll(s.ScratchDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.ScratchDir, mediaID+".ogg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Transcribe converts a downloaded voice note into text. It never returns an
// error: without a credential the result is tagged degraded, and a service
// failure is tagged failed, both with placeholder text the pipeline can still
// log and reply to.
func (s *AudioService) Transcribe(ctx context.Context, path string) Transcription {
	if !s.VoiceConfigured() {
		log.Info().Str("path", path).Msg("no speech credential, using placeholder transcription")
		observability.TranscriptionsDegraded.Inc()
		return Transcription{Text: placeholderNoCredential, Status: TranscriptionDegraded}
	}

	text, err := s.Speech.Transcribe(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("transcription failed")
		observability.TranscriptionsDegraded.Inc()
		return Transcription{Text: placeholderFailed, Status: TranscriptionFailed}
	}
	if text == "" {
		return Transcription{Text: placeholderEmpty, Status: TranscriptionDegraded}
	}
	return Transcription{Text: text, Status: TranscriptionOK}
}

// Synthesize renders reply text as spoken audio and persists it to a
// timestamp-named scratch file. Unlike transcription this propagates errors:
// the voice branch is optional and guarded by the caller.
func (s *AudioService) Synthesize(ctx context.Context, text string) (string, error) {
	if !s.VoiceConfigured() {
		return "", ErrVoiceNotConfigured
	}

	data, err := s.Speech.Speech(ctx, text, s.Voice)
	if err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}

	if err := os.MkdirAll(s.ScratchDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.ScratchDir, fmt.Sprintf("voice_%d.mp3", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Upload submits a synthesized file to the WhatsApp media endpoint and
// returns the provider media handle.
func (s *AudioService) Upload(ctx context.Context, path string) (string, error) {
	return s.Media.UploadMedia(ctx, path, "audio/mpeg")
}

// Cleanup removes a scratch file. Deletion is best-effort: a failure is
// logged and swallowed so cleanup can never fail an otherwise-handled
// request. Empty paths are ignored.
func (s *AudioService) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove scratch file")
		return
	}
	log.Debug().Str("path", path).Msg("scratch file removed")
}
