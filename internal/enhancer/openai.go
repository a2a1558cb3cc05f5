package enhancer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultTimeout = 60 * time.Second
	defaultOpenAIModel   = "gpt-4o"
	openAIMaxTokens      = 300

	// The fixed enhancement brief. Wording is part of the product: it asks
	// for a high-end advertising-shoot rendition of the uploaded photo.
	systemPrompt = "Você é um especialista em aprimoramento de fotos com foco em fotografia publicitária de alta qualidade."
	userPrompt   = "Melhore a iluminação, o enquadramento e os detalhes, simulando uma sessão fotográfica feita para uma campanha publicitária de alto padrão. O ângulo deve valorizar o produto/pessoa, com profundidade de campo realista, contraste equilibrado e cores vivas, mantendo o foco nítido e o fundo suavemente desfocado (efeito bokeh), como em uma lente Canon 50mm f/1.2. Melhore a padronização dos ingredientes dispostos."
)

// OpenAIOptions controls how the OpenAI adapter is configured.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// OpenAI submits the fixed enhancement brief plus the user's image to the
// chat completions endpoint in a single multimodal call and extracts the
// result reference from the first choice. One attempt, no retries: callers
// fall back to the mock on any error.
type OpenAI struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

// NewOpenAI constructs the adapter. A missing API key is an error here so
// the wiring site can apply the "absent credential means always mock" rule
// by leaving the adapter nil.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = openAIDefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &OpenAI{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (o *OpenAI) Enhance(ctx context.Context, imageRef string) (string, error) {
	if o == nil {
		return "", errors.New("openai: adapter not configured")
	}
	trimmed := strings.TrimSpace(imageRef)
	if trimmed == "" {
		return "", errors.New("openai: image reference required")
	}

	payload := openAIChatRequest{
		Model:     o.model,
		MaxTokens: openAIMaxTokens,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []openAIContentPart{
				{Type: "text", Text: userPrompt},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: trimmed}},
			}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := o.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		req.Header.Set("OpenAI-Organization", o.organization)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("openai: http %d", resp.StatusCode)
		}
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("openai error: %s (%s)", out.Error.Message, out.Error.Type)
		}
		return "", fmt.Errorf("openai: http %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	result := strings.TrimSpace(out.Choices[0].Message.Content)
	if result == "" {
		return "", errors.New("openai: response carried no usable content")
	}
	return result, nil
}

var _ Enhancer = (*OpenAI)(nil)
