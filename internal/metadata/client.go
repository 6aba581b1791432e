package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/unipublish/backend/internal/logging"
	"github.com/unipublish/backend/internal/platforms"
)

const (
	// DefaultModel is used when no model identifier is configured.
	DefaultModel = "gemini-3-flash-preview"

	analysisTemperature   float32 = 0.2
	generationTemperature float32 = 0.7

	analysisSystemInstruction = "You are an expert video content analyst."
	analysisPrompt            = "Analyze this video and provide a detailed summary of its visual content, topic, key events, and the overall mood. This summary will be used to generate social media metadata."
	analysisFallback          = "Could not analyze video content."
)

// ContentGenerator is the subset of the genai models service used by the client.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client translates domain requests into calls against the generative AI service.
type Client struct {
	models ContentGenerator
	model  string
}

// NewClient wraps the provided generator. An empty model selects DefaultModel.
func NewClient(models ContentGenerator, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model}
}

// NewGeminiClient constructs a Client talking to the Gemini API with the given key.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini client: %w: api key is required", ErrClientUnavailable)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return NewClient(gc.Models, model), nil
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.model
}

// AnalyzeVideoContext asks the model for a textual summary of the video. The
// video is sent inline regardless of its size.
func (c *Client) AnalyzeVideoContext(ctx context.Context, video []byte, mimeType string) (string, error) {
	if c == nil || c.models == nil {
		return "", ErrClientUnavailable
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(video, mimeType),
			genai.NewPartFromText(analysisPrompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisSystemInstruction, genai.RoleUser),
		Temperature:       float32Ptr(analysisTemperature),
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		logging.FromContext(ctx).Error("video analysis error", "mimeType", mimeType, "bytes", len(video), "error", err)
		return "", fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	text := responseText(resp)
	if text == "" {
		return analysisFallback, nil
	}
	return text, nil
}

// GenerateMetadata produces the title, description and tags for one platform
// from the supplied context.
func (c *Client) GenerateMetadata(ctx context.Context, platform platforms.ID, sourceContext string) (platforms.Metadata, error) {
	if c == nil || c.models == nil {
		return platforms.Metadata{}, ErrClientUnavailable
	}

	instruction, err := platforms.SystemInstruction(platform)
	if err != nil {
		return platforms.Metadata{}, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
		Temperature:       float32Ptr(generationTemperature),
	}
	prompt := fmt.Sprintf("Generate video metadata based on this context: \"%s\"", sourceContext)

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		logging.FromContext(ctx).Error("metadata generation error", "platform", platform, "error", err)
		return platforms.Metadata{}, fmt.Errorf("%w for %s: %w", ErrGenerationFailed, platform, err)
	}

	text := responseText(resp)
	if text == "" {
		return platforms.Metadata{}, fmt.Errorf("%w for %s", ErrEmptyGenerationResult, platform)
	}

	return parseMetadata(text)
}

func parseMetadata(text string) (platforms.Metadata, error) {
	var payload struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Tags        []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return platforms.Metadata{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if payload.Title == nil || payload.Description == nil {
		return platforms.Metadata{}, fmt.Errorf("%w: missing required fields", ErrMalformedResponse)
	}

	tags := payload.Tags
	if tags == nil {
		tags = []string{}
	}

	return platforms.Metadata{
		Title:       *payload.Title,
		Description: *payload.Description,
		Tags:        tags,
	}, nil
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "The optimized title for the video.",
			},
			"description": {
				Type:        genai.TypeString,
				Description: "The optimized description for the video.",
			},
			"tags": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "A list of relevant tags or hashtags.",
			},
		},
		Required: []string{"title", "description", "tags"},
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

func float32Ptr(v float32) *float32 {
	return &v
}
