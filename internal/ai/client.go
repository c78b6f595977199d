// Package ai talks to the generative model behind character, environment
// and prop generation. One request per user action; failures are returned
// to the caller as is.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/common"
	"storyforge.app/api/internal/config"
)

// Generator produces drafts and images for a kind.
type Generator interface {
	GenerateCreation(ctx context.Context, kind common.Kind, prompt string) (*Draft, error)
	GenerateImage(ctx context.Context, kind common.Kind, description string) (*Image, error)
}

// Draft is a generated, not yet saved creation.
type Draft struct {
	Kind    common.Kind       `json:"kind"`
	Name    string            `json:"name"`
	Summary string            `json:"summary"`
	Fields  map[string]string `json:"fields"`
	// Fallback is set when the model's answer held no usable JSON and
	// default values were filled in.
	Fallback bool `json:"fallback"`
}

type Image struct {
	Bytes    []byte
	MimeType string
}

// New returns the HTTP client, or the mock generator when no API key is configured.
func New(cfg *config.Config) Generator {
	if cfg.AIAPIKey == "" {
		log.Warn("AI_API_KEY is empty, using mock generator")
		return NewMock()
	}
	return NewClient(cfg)
}

// maxResponseBytes caps a model answer. Inline images arrive base64 encoded
// inside the JSON body.
const maxResponseBytes = 32 << 20

// Client calls a generateContent endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
	maxBody    int64
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.AIRequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     cfg.AIAPIKey,
		baseURL:    strings.TrimRight(cfg.AIBaseURL, "/"),
		textModel:  cfg.AITextModel,
		imageModel: cfg.AIImageModel,
		httpClient: &http.Client{Timeout: timeout},
		maxBody:    maxResponseBytes,
	}
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *Client) GenerateCreation(ctx context.Context, kind common.Kind, prompt string) (*Draft, error) {
	resp, err := c.generate(ctx, c.textModel, generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: BuildCreationPrompt(kind, prompt)}}}},
		GenerationConfig: generationConfig{Temperature: 0.9},
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, p := range firstParts(resp) {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: empty model answer", common.ErrUpstream)
	}
	return ParseDraft(kind, text.String()), nil
}

func (c *Client) GenerateImage(ctx context.Context, kind common.Kind, description string) (*Image, error) {
	resp, err := c.generate(ctx, c.imageModel, generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: BuildImagePrompt(kind, description)}}}},
		GenerationConfig: generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, err
	}

	for _, p := range firstParts(resp) {
		if p.InlineData == nil || p.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode inline image: %v", common.ErrUpstream, err)
		}
		mime := p.InlineData.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return &Image{Bytes: data, MimeType: mime}, nil
	}
	return nil, fmt.Errorf("%w: no image in model answer", common.ErrUpstream)
}

func firstParts(resp *generateResponse) []part {
	if len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func (c *Client) generate(ctx context.Context, model string, payload generateRequest) (*generateResponse, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: post %s: %v", common.ErrUpstream, model, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", common.ErrUpstream, err)
	}
	if int64(len(rawBody)) > c.maxBody {
		return nil, fmt.Errorf("%w: response from %s exceeds %d bytes", common.ErrUpstream, model, c.maxBody)
	}

	entry := log.WithFields(log.Fields{
		"model":      model,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	})
	if resp.StatusCode >= 300 {
		entry.WithField("body", truncateBody(rawBody)).Error("AI request failed")
		return nil, fmt.Errorf("%w: status=%d body=%s", common.ErrUpstream, resp.StatusCode, truncateBody(rawBody))
	}
	entry.Debug("AI request served")

	var out generateResponse
	if err := json.Unmarshal(rawBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v (body=%s)", common.ErrUpstream, err, truncateBody(rawBody))
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked: %s", common.ErrUpstream, out.PromptFeedback.BlockReason)
	}
	return &out, nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
