package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const sampleArticle = `<h1>제목</h1>
<p>본문 첫 단락.</p>
[[IMAGE_PROMPT: a calm morning office]]
<p>본문 둘째 단락.</p>
[[IMAGE_PROMPT: a robot writing a blog]]
[[TAGS: AI, 블로그, 자동화]]`

func TestGenerateExtractsByproducts(t *testing.T) {
	var got GenerateRequest
	provider := &fakeProvider{fn: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
		got = req
		return &GenerateResponse{
			Text:          sampleArticle,
			Grounding:     []GroundingRef{{URI: "https://source.example", Title: "Source"}},
			SearchQueries: []string{"ai blog automation"},
		}, nil
	}}
	g := NewGenerator(provider, NewStatusLog(), testSettings(), "persona")

	article, err := g.Generate(context.Background(), "테스트 주제", "자료 요약", "https://ref.example")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(article.ImagePrompts) != 2 {
		t.Errorf("want 2 image prompts, got %v", article.ImagePrompts)
	}
	if len(article.Tags) != 3 {
		t.Errorf("want 3 tags, got %v", article.Tags)
	}
	if len(article.GroundingRefs) != 1 || article.GroundingRefs[0].URI != "https://source.example" {
		t.Errorf("grounding refs not carried: %v", article.GroundingRefs)
	}
	if len(article.SearchQueries) != 1 {
		t.Errorf("search queries not carried: %v", article.SearchQueries)
	}

	if !got.UseSearch {
		t.Error("article generation must enable search grounding")
	}
	if got.SystemInstruction != "persona" {
		t.Errorf("system instruction = %q", got.SystemInstruction)
	}
	if !strings.Contains(got.Prompt, "테스트 주제") || !strings.Contains(got.Prompt, "자료 요약") {
		t.Errorf("prompt missing topic or material:\n%s", got.Prompt)
	}
}

func TestGenerateThinkingBudget(t *testing.T) {
	tests := []struct {
		model string
		want  int32
	}{
		{"gemini-2.5-flash", thinkingBudget},
		{"gemini-3-pro", thinkingBudget},
		{"gemini-2.0-flash", 0},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var got int32
			provider := &fakeProvider{fn: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
				got = req.ThinkingBudget
				return &GenerateResponse{Text: "<p>ok</p>"}, nil
			}}
			settings := testSettings()
			settings.TextModel = tt.model
			g := NewGenerator(provider, NewStatusLog(), settings, "")
			if _, err := g.Generate(context.Background(), "t", "", ""); err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if got != tt.want {
				t.Errorf("thinking budget = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGeneratePropagatesErrors(t *testing.T) {
	provider := &fakeProvider{fn: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
		return nil, errors.New("quota exceeded")
	}}
	g := NewGenerator(provider, NewStatusLog(), testSettings(), "")

	_, err := g.Generate(context.Background(), "topic", "", "")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("want wrapped provider error, got %v", err)
	}
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	provider := &fakeProvider{fn: func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
		return &GenerateResponse{Text: "   "}, nil
	}}
	g := NewGenerator(provider, NewStatusLog(), testSettings(), "")

	if _, err := g.Generate(context.Background(), "topic", "", ""); err == nil {
		t.Error("empty response must be an error")
	}
}
