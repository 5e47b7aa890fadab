// Package llm provides the generative-language backend client. The
// assistant asks the model for JSON-typed replies (the structured
// reply contract) by setting the response MIME type; validation of
// what comes back is the reply package's job.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mirahq/mira-agent/internal/config"
	"github.com/mirahq/mira-agent/internal/httpkit"
	"github.com/mirahq/mira-agent/internal/session"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client is a Gemini generateContent API client.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	captionModel string
	systemPrompt string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a Gemini client from configuration.
func NewClient(cfg config.GeminiConfig, systemPrompt string, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		captionModel: cfg.CaptionModel,
		systemPrompt: systemPrompt,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(2*time.Minute),
			httpkit.WithRetry(2, time.Second),
			httpkit.WithLogger(logger),
		),
		logger: logger,
	}
}

// Wire types for the generateContent API.

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
	SafetySettings    []safetySetting  `json:"safetySettings,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// blockNothing disables the default safety filters. The persona prompt
// carries the actual behavioral constraints.
func blockNothing() []safetySetting {
	categories := []string{
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]safetySetting, len(categories))
	for i, c := range categories {
		settings[i] = safetySetting{Category: c, Threshold: "BLOCK_NONE"}
	}
	return settings
}

// Generate sends the session history plus the current prompt and
// returns the model's raw reply text. The response MIME type is pinned
// to JSON so the model answers in the structured reply schema.
func (c *Client) Generate(ctx context.Context, history []session.Turn, prompt string) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, content{
			Role:  turn.Role,
			Parts: []part{{Text: turn.Content}},
		})
	}
	contents = append(contents, content{
		Role:  session.RoleUser,
		Parts: []part{{Text: prompt}},
	})

	req := generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:      1,
			TopP:             0.95,
			TopK:             1,
			MaxOutputTokens:  8192,
			ResponseMimeType: "application/json",
		},
		SafetySettings: blockNothing(),
	}
	if c.systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: c.systemPrompt}}}
	}

	return c.generate(ctx, c.model, req)
}

// Caption asks the vision-capable caption model to describe a JPEG
// snapshot, for the situational-context fragment.
func (c *Client) Caption(ctx context.Context, jpeg []byte) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Role: session.RoleUser,
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(jpeg),
				}},
				{Text: "Explain what you see in the picture."},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.4,
			TopP:            0.95,
			TopK:            32,
			MaxOutputTokens: 1024,
		},
	}

	return c.generate(ctx, c.captionModel, req)
}

func (c *Client) generate(ctx context.Context, model string, req generateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Log(ctx, config.LevelTrace, "gemini request",
		"model", model, "bytes", len(body))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 512)
		return "", fmt.Errorf("gemini API error %d: %s", resp.StatusCode, errBody)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	text := genResp.Candidates[0].Content.Parts[0].Text
	c.logger.Log(ctx, config.LevelTrace, "gemini response",
		"model", model, "finish", genResp.Candidates[0].FinishReason, "bytes", len(text))

	return text, nil
}
