package main

import (
	"strings"
	"testing"
)

func TestSanitizeStripsMarkdownTokens(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		absent  []string
		present []string
	}{
		{
			name:   "heading markers",
			input:  "# Title\n\nBody text\n\n## Section",
			absent: []string{"#"},
		},
		{
			name:    "emphasis tokens",
			input:   "This is **bold** and __also bold__ and `code` and ~~gone~~.",
			absent:  []string{"**", "__", "`", "~~"},
			present: []string{"bold", "code", "gone"},
		},
		{
			name:   "meta labels",
			input:  "[SEO 도입부 - hook] Real opening line.",
			absent: []string{"SEO 도입부"},
		},
		{
			name:   "code fences",
			input:  "```html\n<h2>Kept</h2>\n```",
			absent: []string{"```"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Sanitize(tt.input)
			if err != nil {
				t.Fatalf("Sanitize: %v", err)
			}
			for _, s := range tt.absent {
				if strings.Contains(out, s) {
					t.Errorf("output still contains %q:\n%s", s, out)
				}
			}
			for _, s := range tt.present {
				if !strings.Contains(out, s) {
					t.Errorf("output lost %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestSanitizeRendersWidgets(t *testing.T) {
	input := "Intro.\n\n[[IMAGE_PROMPT: a red fox]]\n\nMiddle.\n\n[[IMAGE_PROMPT: a blue sea]]\n\nEnd."
	out, err := Sanitize(input)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}

	if got := strings.Count(out, `class="image-prompt-box"`); got != 2 {
		t.Fatalf("want 2 widgets, got %d:\n%s", got, out)
	}
	first := strings.Index(out, "a red fox")
	second := strings.Index(out, "a blue sea")
	if first < 0 || second < 0 || first > second {
		t.Errorf("widget order lost (fox at %d, sea at %d)", first, second)
	}
	if strings.Contains(out, "IMAGE_PROMPT") {
		t.Errorf("directive text leaked into output:\n%s", out)
	}
	if !strings.Contains(out, `<div class="image-result-area hidden"></div>`) {
		t.Errorf("widget missing hidden result area:\n%s", out)
	}
}

func TestSanitizeEscapesPromptAttribute(t *testing.T) {
	out, err := Sanitize(`[[IMAGE_PROMPT: a "quoted" fox's den]]`)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if !strings.Contains(out, `data-prompt="a &quot;quoted&quot; fox&apos;s den"`) {
		t.Errorf("attribute not escaped:\n%s", out)
	}
	// The visible copy keeps the raw characters.
	if !strings.Contains(out, `a "quoted" fox's den`) {
		t.Errorf("visible prompt was altered:\n%s", out)
	}
}

func TestSanitizeRemovesTagsDirective(t *testing.T) {
	out, err := Sanitize("Body.\n\n[[TAGS: one, two, three]]")
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if strings.Contains(out, "TAGS") || strings.Contains(out, "one, two") {
		t.Errorf("tags directive leaked:\n%s", out)
	}
}

func TestSanitizeLeavesMalformedDirectiveAlone(t *testing.T) {
	input := "Text with [[IMAGE_PROMPT: never closed"
	out, err := Sanitize(input)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if !strings.Contains(out, "[[IMAGE_PROMPT: never closed") {
		t.Errorf("malformed directive should survive untouched:\n%s", out)
	}
}

func TestSanitizeMalformedDirectiveDoesNotSwallowNext(t *testing.T) {
	input := "[[IMAGE_PROMPT: never closed\n\nMore text.\n\n[[IMAGE_PROMPT: a red fox]]"

	prompts := ExtractImagePrompts(input)
	if len(prompts) != 1 || prompts[0] != "a red fox" {
		t.Fatalf("want only the well-formed prompt, got %v", prompts)
	}

	out, err := Sanitize(input)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if got := strings.Count(out, `class="image-prompt-box"`); got != 1 {
		t.Errorf("want 1 widget, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "[[IMAGE_PROMPT: never closed") {
		t.Errorf("malformed directive should survive untouched:\n%s", out)
	}
	if !strings.Contains(out, "More text.") {
		t.Errorf("text between directives lost:\n%s", out)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	input := "# Title\n\nSome **bold** text.\n\n[[IMAGE_PROMPT: a fox]]\n\nMore.\n\n[[TAGS: a, b]]"
	once, err := Sanitize(input)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := Sanitize(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if once != twice {
		t.Errorf("sanitizer not idempotent:\nfirst:\n%s\nsecond:\n%s", once, twice)
	}
}

func TestExtractImagePrompts(t *testing.T) {
	raw := "a [[IMAGE_PROMPT: first]] b [[image_prompt: second ]] c [[IMAGE_PROMPT:]]"
	got := ExtractImagePrompts(raw)
	want := []string{"first", "second"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prompt %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"dedup preserves order", "[[TAGS: a, b, a, c, b]]", []string{"a", "b", "c"}},
		{"trims and drops empties", "[[TAGS:  x , , y ,]]", []string{"x", "y"}},
		{"no directive", "plain text", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTags(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tag %d: want %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}
