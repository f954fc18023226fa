// Package openai is a thin REST client for the OpenAI endpoints the pipeline
// uses: chat completions (reply generation and intent classification), audio
// transcription (Whisper), and speech synthesis (TTS).
//
// The client does not retry and applies no fallback policy of its own; the
// degrade-or-propagate decisions live in the service layer.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotConfigured is returned by calls that require an API key when none is
// set.
var ErrNotConfigured = errors.New("openai: api key not configured")

// Client talks to the OpenAI REST API.
type Client struct {
	APIKey  string
	BaseURL string // e.g. "https://api.openai.com"
	HTTP    *http.Client

	ChatModel  string // e.g. "gpt-4o"
	AudioModel string // e.g. "whisper-1"
	TTSModel   string // e.g. "tts-1"
}

// Configured reports whether an API key is available. Voice features and real
// transcription are gated on this.
func (c *Client) Configured() bool { return c != nil && strings.TrimSpace(c.APIKey) != "" }

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	b := strings.TrimRight(c.BaseURL, "/")
	if b == "" {
		b = "https://api.openai.com"
	}
	return b
}

// Message is one chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool advertises a function-calling capability to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes one callable function in a tool schema.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ToolCall is a function invocation the model returned instead of (or next
// to) text content.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatResponse is the subset of the chat-completions response the pipeline
// reads.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Role      string     `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Content returns the first choice's text content, or "".
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ChatCompletion issues one chat-completion request. Non-2xx responses are
// returned as errors carrying a snippet of the provider body.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.Model == "" {
		req.Model = c.ChatModel
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai: chat completion failed: status %d: %s", resp.StatusCode, snippet(b))
	}

	var out ChatResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("openai: decode chat completion: %w", err)
	}
	return &out, nil
}

// Transcribe submits a local audio file to the transcription endpoint and
// returns the plain-text transcript.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", err
	}
	model := c.AudioModel
	if model == "" {
		model = "whisper-1"
	}
	if err := mw.WriteField("model", model); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "text"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai: transcription failed: status %d: %s", resp.StatusCode, snippet(b))
	}
	return strings.TrimSpace(string(b)), nil
}

// Speech synthesizes spoken audio for text and returns the mp3 bytes.
func (c *Client) Speech(ctx context.Context, text, voice string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	model := c.TTSModel
	if model == "" {
		model = "tts-1"
	}

	body, err := json.Marshal(map[string]any{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
		"speed":           1.0,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai: speech synthesis failed: status %d: %s", resp.StatusCode, snippet(b))
	}
	return io.ReadAll(resp.Body)
}

// snippet keeps provider error bodies readable inside wrapped errors.
func snippet(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
