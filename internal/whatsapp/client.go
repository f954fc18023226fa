// Package whatsapp is a thin REST client for the WhatsApp Cloud (Graph) API.
// It covers the surface the pipeline needs: resolving and fetching media,
// uploading synthesized audio, and sending text, audio, and template messages.
//
// All calls are bearer-token authenticated and context-aware. Transport
// failures and non-2xx responses are returned as errors; callers decide
// whether a failure is fatal to the request being processed.
package whatsapp

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

// Client talks to the Graph API for one WhatsApp business phone number.
type Client struct {
	Token         string
	PhoneNumberID string
	BaseURL       string // e.g. "https://graph.facebook.com"
	APIVersion    string // e.g. "v22.0"
	HTTP          *http.Client
}

// SendResponse is the decoded provider response to a message send, together
// with the raw status code and body so handlers can proxy it verbatim.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`

	StatusCode int             `json:"-"`
	Body       json.RawMessage `json:"-"`
}

// ErrNoMediaID indicates the provider accepted an upload but returned no
// media handle.
var ErrNoMediaID = errors.New("whatsapp: no media id in upload response")

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	b := strings.TrimRight(c.BaseURL, "/")
	if b == "" {
		b = "https://graph.facebook.com"
	}
	v := c.APIVersion
	if v == "" {
		v = "v22.0"
	}
	return b + "/" + v
}

// MediaURL resolves the time-limited download URL for a media ID.
func (c *Client) MediaURL(ctx context.Context, mediaID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/"+mediaID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whatsapp: media url lookup failed: status %d", resp.StatusCode)
	}

	var meta struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("whatsapp: decode media metadata: %w", err)
	}
	if meta.URL == "" {
		return "", errors.New("whatsapp: media metadata missing url")
	}
	return meta.URL, nil
}

// DownloadMedia fetches the media bytes behind a resolved URL. The URL is
// time-limited and still requires bearer auth.
func (c *Client) DownloadMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whatsapp: media download failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// UploadMedia submits a local audio file to the media endpoint and returns
// the provider-assigned media ID. ErrNoMediaID is returned when the provider
// does not hand one back.
func (c *Client) UploadMedia(ctx context.Context, path, mimeType string) (string, error) {
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
	if err := mw.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", err
	}
	if err := mw.WriteField("type", mimeType); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := c.base() + "/" + c.PhoneNumberID + "/media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whatsapp: media upload failed: status %d: %s", resp.StatusCode, truncateBody(b))
	}

	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(b, &out)
	if out.ID == "" {
		return "", ErrNoMediaID
	}
	return out.ID, nil
}

// SendText posts a text message to the recipient.
func (c *Client) SendText(ctx context.Context, to, body string) (SendResponse, error) {
	return c.sendMessage(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	})
}

// SendAudio posts an audio message referencing an uploaded media ID.
func (c *Client) SendAudio(ctx context.Context, to, mediaID string) (SendResponse, error) {
	return c.sendMessage(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "audio",
		"audio":             map[string]string{"id": mediaID},
	})
}

// SendTemplate posts a pre-approved template message (used for onboarding).
func (c *Client) SendTemplate(ctx context.Context, to, name, lang string) (SendResponse, error) {
	return c.sendMessage(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":     name,
			"language": map[string]string{"code": lang},
		},
	})
}

// sendMessage posts a type-tagged payload to the messages endpoint and
// decodes the provider response. Non-2xx statuses are errors, but the decoded
// response (with status and raw body) is still returned so callers can proxy
// the provider verdict.
func (c *Client) sendMessage(ctx context.Context, payload map[string]any) (SendResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SendResponse{}, err
	}

	endpoint := c.base() + "/" + c.PhoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return SendResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return SendResponse{}, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out SendResponse
	_ = json.Unmarshal(b, &out)
	out.StatusCode = resp.StatusCode
	out.Body = b

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("whatsapp: message send failed: status %d: %s", resp.StatusCode, truncateBody(b))
	}
	return out, nil
}

// truncateBody keeps provider error bodies readable in wrapped errors.
func truncateBody(b []byte) string {
	const max = 256
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
