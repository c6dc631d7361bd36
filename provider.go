package main

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenerateRequest carries everything one generation call needs. Only the
// fields the caller sets are forwarded to the provider.
type GenerateRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	UseSearch         bool
	ThinkingBudget    int32
	ImageAspectRatio  string
}

// GenerateResponse is the provider-neutral view of one response: the joined
// text, grounding metadata when search was enabled, and any inline image
// payloads (already base64-decoded by the SDK).
type GenerateResponse struct {
	Text          string
	Grounding     []GroundingRef
	SearchQueries []string
	Images        [][]byte
}

// TextGenerator abstracts the generative provider so the harvest, article and
// image flows can be exercised against fakes.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GeminiClient calls the Gemini API through the official SDK.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a provider client for the given API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provider client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// GenerateContent issues one generation request and flattens the response.
func (g *GeminiClient) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	cfg := &genai.GenerateContentConfig{}

	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if req.UseSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(req.ThinkingBudget),
		}
	}
	if req.ImageAspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: req.ImageAspectRatio}
		cfg.ResponseModalities = []string{"TEXT", "IMAGE"}
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}

	out := &GenerateResponse{Text: resp.Text()}
	if len(resp.Candidates) == 0 {
		return out, nil
	}

	cand := resp.Candidates[0]
	if gm := cand.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil {
				out.Grounding = append(out.Grounding, GroundingRef{
					URI:   chunk.Web.URI,
					Title: chunk.Web.Title,
				})
			}
		}
		out.SearchQueries = gm.WebSearchQueries
	}
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out.Images = append(out.Images, part.InlineData.Data)
			}
		}
	}

	return out, nil
}
