package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// Model output is supposed to be pure HTML, but markdown tokens leak through
// anyway. The sanitizer strips them, extracts the special directives, and
// renders whatever is left through a forgiving markdown pass.
var (
	headingMarkerRe = regexp.MustCompile(`(^|\n)#+\s+`)
	emphasisTokenRe = regexp.MustCompile("\\*\\*|__|`|~~")
	metaLabelRe     = regexp.MustCompile(`(?i)\[(?:SEO 도입부|Intro Hook)[^\]]*\]`)
	// TAGS payloads may wrap across lines; image prompts are single-line,
	// which keeps an unclosed directive from swallowing the next one.
	tagsDirectiveRe = regexp.MustCompile(`(?is)\[\[\s*TAGS\s*:\s*(.*?)\s*\]\]`)
	imagePromptRe   = regexp.MustCompile(`(?i)\[\[\s*IMAGE_PROMPT\s*:\s*(.*?)\s*\]\]`)
	codeFenceRe     = regexp.MustCompile("(?i)```[a-z]*\n?")
)

// renderMarkdown matches the behavior the sanitizer relies on: GFM tables and
// strikethrough, hard line breaks, raw HTML passed through, no generated
// heading IDs.
var renderMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		ghtml.WithHardWraps(),
		ghtml.WithUnsafe(),
	),
)

// The widget block must contain no blank lines so the markdown pass treats it
// as a single HTML block and leaves it untouched on re-sanitization.
var widgetTemplate = template.Must(template.New("widget").Parse(
	`<div class="image-prompt-box" data-prompt="{{.Attr}}">
<div class="header">🎨 AI VISUAL CONTENT</div>
<div class="content">{{.Prompt}}</div>
<div class="image-result-area hidden"></div>
</div>`))

// escapePromptAttr makes a prompt safe to carry inside a double-quoted HTML
// attribute. Only quotes and apostrophes are rewritten so the visible copy of
// the prompt and the attribute copy stay byte-comparable after unescaping.
func escapePromptAttr(prompt string) string {
	prompt = strings.ReplaceAll(prompt, "'", "&apos;")
	return strings.ReplaceAll(prompt, `"`, "&quot;")
}

func renderWidget(prompt string) string {
	var buf bytes.Buffer
	err := widgetTemplate.Execute(&buf, struct{ Attr, Prompt string }{
		Attr:   escapePromptAttr(prompt),
		Prompt: prompt,
	})
	if err != nil {
		// Template over two strings cannot fail at execute time.
		panic(fmt.Sprintf("widget template: %v", err))
	}
	return buf.String()
}

// ExtractImagePrompts returns every image directive payload in order of
// appearance, trimmed.
func ExtractImagePrompts(raw string) []string {
	var prompts []string
	for _, m := range imagePromptRe.FindAllStringSubmatch(raw, -1) {
		if p := strings.TrimSpace(m[1]); p != "" {
			prompts = append(prompts, p)
		}
	}
	return prompts
}

// ExtractTags returns the deduplicated tag list from the first tags directive,
// preserving first-seen order.
func ExtractTags(raw string) []string {
	m := tagsDirectiveRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	return splitTagList(m[1])
}

func splitTagList(list string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// Sanitize converts raw model output into clean display HTML: markdown tokens
// stripped, directives removed (tags) or replaced with prompt widgets (image
// prompts), and the remainder rendered as HTML. Running the result through
// Sanitize again returns it unchanged.
func Sanitize(raw string) (string, error) {
	text := codeFenceRe.ReplaceAllString(raw, "")
	text = headingMarkerRe.ReplaceAllString(text, "$1")
	text = emphasisTokenRe.ReplaceAllString(text, "")
	text = metaLabelRe.ReplaceAllString(text, "")
	text = tagsDirectiveRe.ReplaceAllString(text, "")

	// Swap directives for placeholders before the markdown pass so prompt
	// text cannot be reinterpreted as markup, then splice the widgets in.
	var prompts []string
	text = imagePromptRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := imagePromptRe.FindStringSubmatch(m)
		prompt := strings.TrimSpace(sub[1])
		if prompt == "" {
			return ""
		}
		prompts = append(prompts, prompt)
		return fmt.Sprintf("\n\n[[[WIDGET_%d]]]\n\n", len(prompts)-1)
	})

	var buf bytes.Buffer
	if err := renderMarkdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering content: %w", err)
	}
	out := buf.String()

	for i, prompt := range prompts {
		placeholder := fmt.Sprintf("[[[WIDGET_%d]]]", i)
		widget := renderWidget(prompt)
		out = strings.ReplaceAll(out, "<p>"+placeholder+"</p>", widget)
		out = strings.ReplaceAll(out, placeholder, widget)
	}

	return strings.TrimSpace(out), nil
}
