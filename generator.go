package main

import (
	"context"
	"fmt"
	"strings"
)

// thinkingBudget is the token allowance granted to models that support an
// explicit reasoning phase.
const thinkingBudget int32 = 24576

// Generator turns a harvested item (or a free-form topic) into a full blog
// article using the configured editorial persona.
type Generator struct {
	provider          TextGenerator
	log               *StatusLog
	model             string
	systemInstruction string
}

// NewGenerator builds a generator from settings and the embedded persona.
func NewGenerator(provider TextGenerator, log *StatusLog, settings *Settings, systemInstruction string) *Generator {
	return &Generator{
		provider:          provider,
		log:               log,
		model:             settings.TextModel,
		systemInstruction: systemInstruction,
	}
}

// supportsThinking reports whether the model accepts a thinking budget.
func supportsThinking(model string) bool {
	return strings.Contains(model, "gemini-2.5") || strings.Contains(model, "gemini-3")
}

func buildArticlePrompt(topic, material, reference string) string {
	var b strings.Builder
	b.WriteString("[미션] 마크다운 기호를 100% 제거한 순수 HTML 기반 원고 집필\n\n")
	fmt.Fprintf(&b, "주제: %s\n", topic)
	if material != "" {
		fmt.Fprintf(&b, "자료: %s\n", material)
	}
	if reference != "" {
		fmt.Fprintf(&b, "참고: %s\n", reference)
	}
	b.WriteString(`
[필수 명령]
1. 최신 웹 검색 결과를 근거로 사실만 서술할 것.
2. #, *, ` + "`" + ` 등 마크다운 기호를 절대 사용하지 말 것. 서식은 h1, h2, h3, b, blockquote 태그로만 표현할 것.
3. 본문 중간에 [[IMAGE_PROMPT: ...]] 형식의 이미지 프롬프트를 3개 이상 삽입할 것.
4. 원고 마지막에 [[TAGS: ...]] 형식으로 SEO 태그를 10개 이상 제시할 것.`)
	return b.String()
}

// Generate writes one article. The topic drives the piece; material and
// reference carry the harvested summary and the source link when the article
// is written from a scanned item.
func (g *Generator) Generate(ctx context.Context, topic, material, reference string) (*GeneratedArticle, error) {
	req := GenerateRequest{
		Model:             g.model,
		Prompt:            buildArticlePrompt(topic, material, reference),
		SystemInstruction: g.systemInstruction,
		UseSearch:         true,
	}
	if supportsThinking(g.model) {
		req.ThinkingBudget = thinkingBudget
	}

	resp, err := g.provider.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generating article %q: %w", topic, err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("generating article %q: empty response", topic)
	}

	// Directives are harvested from the raw text; the sanitizer removes
	// them from the display copy later.
	article := &GeneratedArticle{
		RawText:       resp.Text,
		ImagePrompts:  ExtractImagePrompts(resp.Text),
		Tags:          ExtractTags(resp.Text),
		GroundingRefs: resp.Grounding,
		SearchQueries: resp.SearchQueries,
	}

	g.log.Successf(topic, topic, "article generated (%d image prompts, %d tags)",
		len(article.ImagePrompts), len(article.Tags))
	return article, nil
}

// GenerateFromItem writes an article grounded on one harvested item.
func (g *Generator) GenerateFromItem(ctx context.Context, item HarvestedItem) (*GeneratedArticle, error) {
	return g.Generate(ctx, item.Title, item.Content, item.Link)
}
