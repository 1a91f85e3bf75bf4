package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// chunkLimit is the per-request character cap for synthesis. Longer scripts
// are split on paragraph boundaries and the chunks concatenated.
const chunkLimit = 5000

// Synthesizer turns a podcast script into an audio file.
type Synthesizer struct {
	apiKey     string
	voiceID    string
	modelID    string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithVoiceID pins a specific voice. When unset the first voice from the
// account's voice list is used.
func WithVoiceID(id string) Option {
	return func(s *Synthesizer) { s.voiceID = id }
}

// WithModelID overrides the synthesis model.
func WithModelID(id string) Option {
	return func(s *Synthesizer) { s.modelID = id }
}

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(s *Synthesizer) { s.baseURL = u }
}

func NewSynthesizer(apiKey string, timeout time.Duration, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("voice api key cannot be empty")
	}

	s := &Synthesizer{
		apiKey:     apiKey,
		modelID:    "eleven_monolingual_v1",
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type voiceList struct {
	Voices []struct {
		VoiceID string `json:"voice_id"`
		Name    string `json:"name"`
	} `json:"voices"`
}

// resolveVoice returns the configured voice ID, fetching the account's first
// voice when none is configured. The resolution is cached on the client.
func (s *Synthesizer) resolveVoice(ctx context.Context) (string, error) {
	if s.voiceID != "" {
		return s.voiceID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/voices", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build voices request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("voices request returned %d: %s", resp.StatusCode, body)
	}

	var list voiceList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", fmt.Errorf("failed to decode voices response: %w", err)
	}
	if len(list.Voices) == 0 {
		return "", fmt.Errorf("no voices available on account")
	}

	s.voiceID = list.Voices[0].VoiceID
	slog.Info("Using voice", "name", list.Voices[0].Name, "id", s.voiceID)
	return s.voiceID, nil
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize renders text to outPath as MP3. Scripts over the per-request
// character limit are split on paragraph breaks and the audio concatenated.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	if text == "" {
		return fmt.Errorf("cannot synthesize empty text")
	}

	voiceID, err := s.resolveVoice(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	defer out.Close()

	for i, chunk := range splitChunks(text, chunkLimit) {
		audio, err := s.synthesizeChunk(ctx, voiceID, chunk)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i+1, err)
		}
		if _, err := out.Write(audio); err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}
	}

	slog.Info("Synthesized audio", "path", outPath)
	return nil
}

func (s *Synthesizer) synthesizeChunk(ctx context.Context, voiceID, text string) ([]byte, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis returned %d: %s", resp.StatusCode, body)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	return audio, nil
}

// splitChunks splits text into pieces no longer than limit, preferring
// paragraph boundaries and falling back to hard cuts for oversized
// paragraphs.
func splitChunks(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current bytes.Buffer

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range bytes.Split([]byte(text), []byte("\n\n")) {
		for len(para) > limit {
			flush()
			chunks = append(chunks, string(para[:limit]))
			para = para[limit:]
		}
		if current.Len()+len(para)+2 > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.Write(para)
	}
	flush()
	return chunks
}
