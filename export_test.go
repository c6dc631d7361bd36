package main

import (
	"strings"
	"testing"
)

func TestApplyInlineStyles(t *testing.T) {
	markup := `<h1>Title</h1><h2>Section</h2><p>Body</p><blockquote><p>Quote</p></blockquote>`
	styled, err := applyInlineStyles(markup)
	if err != nil {
		t.Fatalf("applyInlineStyles: %v", err)
	}

	checks := []struct {
		name string
		want string
	}{
		{"h1 styled", `<h1 style="font-family:&#39;Nanum Gothic&#39;`},
		{"h2 accent", "#03C75A"},
		{"body paragraph size", "font-size:13px"},
		{"quote paragraph italic", "font-style:italic"},
	}
	for _, c := range checks {
		if !strings.Contains(styled, c.want) {
			t.Errorf("%s: output missing %q:\n%s", c.name, c.want, styled)
		}
	}
}

func TestBlockquoteParagraphKeepsQuoteStyle(t *testing.T) {
	styled, err := applyInlineStyles(`<blockquote><p>Quote</p></blockquote><p>Plain</p>`)
	if err != nil {
		t.Fatalf("applyInlineStyles: %v", err)
	}
	// The quote paragraph must not carry the plain-body style.
	quoteStart := strings.Index(styled, "<blockquote")
	quoteEnd := strings.Index(styled, "</blockquote>")
	if quoteStart < 0 || quoteEnd < 0 {
		t.Fatalf("blockquote lost:\n%s", styled)
	}
	if strings.Contains(styled[quoteStart:quoteEnd], "font-size:13px") {
		t.Errorf("quote paragraph overwritten with body style:\n%s", styled)
	}
	if !strings.Contains(styled[quoteEnd:], "font-size:13px") {
		t.Errorf("plain paragraph missing body style:\n%s", styled)
	}
}

func TestInnerText(t *testing.T) {
	got := innerText(`<h1>Title</h1><p>One &amp; two.</p><p>Three&nbsp;four.</p>`)
	if strings.Contains(got, "<") {
		t.Errorf("markup survived: %q", got)
	}
	if !strings.Contains(got, "One & two.") {
		t.Errorf("entities not resolved: %q", got)
	}
	if !strings.Contains(got, "Title") {
		t.Errorf("heading text lost: %q", got)
	}
}

func TestExportSelectedTextMatchesHTML(t *testing.T) {
	doc := newTestDocument(t)
	raw := "<h1>제목</h1>\n\n<p>본문 단락입니다.</p>"
	if _, err := doc.AddArticle("제목", testArticle(raw)); err != nil {
		t.Fatalf("AddArticle: %v", err)
	}

	clip, err := ExportSelected(doc)
	if err != nil {
		t.Fatalf("ExportSelected: %v", err)
	}
	if clip.Text != innerText(clip.HTML) {
		t.Errorf("plain text must be the innerText of the markup:\ntext: %q\nwant: %q",
			clip.Text, innerText(clip.HTML))
	}
	if !strings.Contains(clip.Text, "본문 단락입니다.") {
		t.Errorf("body text lost: %q", clip.Text)
	}
}

func TestExportEmptyDocument(t *testing.T) {
	doc := newTestDocument(t)
	if _, err := ExportSelected(doc); err == nil {
		t.Error("exporting an empty document must fail")
	}
	if _, err := ExportAll(doc); err == nil {
		t.Error("exporting an empty document must fail")
	}
}

func TestExportAllClearsPendingImageSlots(t *testing.T) {
	doc := newTestDocument(t)
	raw := "<p>Intro</p>\n\n[[IMAGE_PROMPT: a fox]]"
	if _, err := doc.AddArticle("t", testArticle(raw)); err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	// Simulate a failed render left in the slot.
	if err := doc.SetWidgetError(0, "generation failed"); err != nil {
		t.Fatalf("SetWidgetError: %v", err)
	}

	clip, err := ExportAll(doc)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if strings.Contains(clip.HTML, "generation failed") {
		t.Errorf("pending slot content leaked into export:\n%s", clip.HTML)
	}
	if !strings.Contains(clip.HTML, `class="image-result-area hidden"`) {
		t.Errorf("emptied slot must be re-hidden:\n%s", clip.HTML)
	}
}

func TestExportAllConcatenatesInOrder(t *testing.T) {
	doc := newTestDocument(t)
	doc.AddArticle("a", testArticle("<p>first post body</p>"))
	doc.AddArticle("b", testArticle("<p>second post body</p>"))

	clip, err := ExportAll(doc)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	first := strings.Index(clip.HTML, "first post body")
	second := strings.Index(clip.HTML, "second post body")
	if first < 0 || second < 0 || first > second {
		t.Errorf("posts out of order (first at %d, second at %d)", first, second)
	}
}

func TestToMarkdown(t *testing.T) {
	out, err := ToMarkdown(`<h1>Title</h1><p>Body with <b>bold</b>.</p>`)
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(out, "# Title") {
		t.Errorf("heading not converted: %q", out)
	}
	if !strings.Contains(out, "**bold**") {
		t.Errorf("bold not converted: %q", out)
	}
}
