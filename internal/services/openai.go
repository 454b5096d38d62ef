package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const (
	defaultModel      = "gpt-4.1-mini"
	defaultImageModel = "dall-e-3"
)

// OpenAIService calls the OpenAI Responses and Images APIs.
type OpenAIService struct {
	client     openai.Client
	model      string
	imageModel string
	logger     *log.Logger
}

// NewOpenAIService creates a client from the [credentials.openai] config section.
func NewOpenAIService(cfg shared.OpenAIConfig, logger *log.Logger, opts ...option.RequestOption) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api_key (or OPENAI_API_KEY)", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = log.Default()
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	options = append(options, opts...)

	s := &OpenAIService{
		client:     openai.NewClient(options...),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		logger:     logger,
	}
	if s.model == "" {
		s.model = defaultModel
	}
	if s.imageModel == "" {
		s.imageModel = defaultImageModel
	}
	return s, nil
}

// Complete sends prompt with a strict JSON schema text format and returns the raw output text.
func (s *OpenAIService) Complete(ctx context.Context, prompt StructuredPrompt) (string, error) {
	params := responses.ResponseNewParams{
		Model: s.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(prompt.Input, responses.EasyInputMessageRoleUser),
			},
		},
		Instructions: openai.String(prompt.Instructions),
	}

	format := responses.ResponseFormatTextConfigParamOfJSONSchema(prompt.Name, prompt.Schema)
	if format.OfJSONSchema != nil {
		format.OfJSONSchema.Strict = openai.Bool(true)
	}
	params.Text = responses.ResponseTextConfigParam{Format: format}

	start := time.Now()
	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	s.logger.Debug("openai completion",
		"schema", prompt.Name,
		"model", s.model,
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return strings.TrimSpace(resp.OutputText()), nil
}

// GenerateImage creates one square image for prompt. The hosted URL is preferred; inline base64 is decoded when present.
func (s *OpenAIService) GenerateImage(ctx context.Context, prompt string) (*models.ImageRef, error) {
	resp, err := s.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(s.imageModel),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no images")
	}

	img := resp.Data[0]
	ref := &models.ImageRef{URL: img.URL}
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		ref.Data = data
		ref.ContentType = "image/png"
	}
	if ref.URL == "" && !ref.HasData() {
		return nil, fmt.Errorf("openai returned an empty image")
	}

	s.logger.Debug("openai image", "model", s.imageModel, "url", ref.URL != "")
	return ref, nil
}
