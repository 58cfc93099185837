package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// Message is one entry in the chat transcript sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	Model        string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	JSONResponse bool
}

// Response is the raw model output. Content is the untrusted JSON-ish text
// blob the recovery engine must handle.
type Response struct {
	Content    string
	TokensUsed int
}

// Client is the model API boundary.
//
//go:generate mockgen -destination=../../mocks/mock_llm_client.go -package=mocks . Client
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type openAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible chat-completions
// endpoint. A missing API key is a configuration problem and fails here,
// before any review work starts.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) (Client, error) {
	if apiKey == "" {
		return nil, NewClassifiedError(KindFatal, fmt.Errorf("model API key is not set"))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &openAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (c *openAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONResponse {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, NewClassifiedError(KindFatal, fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Response{}, NewClassifiedError(KindFatal, fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		// Transport errors and timeouts are transient for retry purposes.
		return Response{}, NewClassifiedError(KindServerError, fmt.Errorf("sending request: %w", err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, NewClassifiedError(KindServerError, fmt.Errorf("reading response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		cerr := ClassifyStatus(httpResp.StatusCode, truncateBody(respBody))
		c.logger.Warn("model API returned non-OK status",
			"status", httpResp.StatusCode,
			"kind", cerr.Kind.String(),
		)
		return Response{}, cerr
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Response{}, NewClassifiedError(KindParseFailure, fmt.Errorf("parsing completion envelope: %w", err))
	}
	if len(result.Choices) == 0 {
		return Response{}, NewClassifiedError(KindParseFailure, fmt.Errorf("no choices in response"))
	}
	if result.Choices[0].Message.Content == "" {
		return Response{}, NewClassifiedError(KindParseFailure, fmt.Errorf("empty content in API response"))
	}

	return Response{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

func truncateBody(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type chatUsage struct {
	TotalTokens int `json:"total_tokens"`
}
