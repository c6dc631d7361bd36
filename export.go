package main

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/atotto/clipboard"
	"github.com/microcosm-cc/bluemonday"
)

// Blog editors ignore stylesheets on paste, so the export pass bakes the
// visual design into style attributes element by element.
var inlineStyles = []struct {
	selector string
	style    string
}{
	{"h1", "font-family:'Nanum Gothic',sans-serif;font-size:2.6rem;font-weight:900;color:#111827;margin-bottom:2rem;padding-bottom:1rem;border-bottom:3px solid #E5E7EB;line-height:1.35;text-align:left;"},
	{"h2", "font-size:19px;font-weight:800;color:#1f2937;margin-top:3rem;margin-bottom:1.5rem;border-left:6px solid #03C75A;background-color:#F0FDF4;padding:1rem 1.5rem;border-radius:0 12px 12px 0;"},
	{"h3", "font-size:15px;font-weight:700;color:#111827;margin-top:3rem;margin-bottom:1.5rem;border-left:4px solid #CBD5E1;padding-left:1rem;"},
	{"b", "font-weight:700;background:linear-gradient(to top, #FFEF00 35%, transparent 35%);padding:0 2px;color:#000;"},
	{"blockquote", "font-family:'Nanum Myeongjo',serif;margin:4rem 0;padding:3rem 2rem;border:none;background:transparent;text-align:center;"},
	{"blockquote p", "font-family:'Nanum Myeongjo',serif;font-size:16px;color:#475569;font-style:italic;line-height:1.8;"},
}

const plainParagraphStyle = "font-family:'Nanum Gothic',sans-serif;font-size:13px;color:#334155;line-height:1.8;margin-bottom:2rem;"

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}

var collapseSpaceRe = regexp.MustCompile(`[ \t]+`)
var collapseNewlineRe = regexp.MustCompile(`\n{3,}`)

// innerText strips all markup and returns the readable text, entities
// resolved and whitespace collapsed.
func innerText(markup string) string {
	// Block-level closes become newlines so headings and paragraphs do not
	// run together once the tags are gone.
	blockEnd := regexp.MustCompile(`(?i)</(p|h1|h2|h3|h4|div|blockquote|li|article)>`)
	text := blockEnd.ReplaceAllString(markup, "\n")
	text = strictPolicy().Sanitize(text)
	text = html.UnescapeString(text)
	text = collapseSpaceRe.ReplaceAllString(text, " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	text = strings.Join(lines, "\n")
	text = collapseNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func parseFragment(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing export markup: %w", err)
	}
	return doc, nil
}

func serialize(doc *goquery.Document) (string, error) {
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serializing export markup: %w", err)
	}
	return out, nil
}

// applyInlineStyles rewrites the markup with the blog design inlined.
// Paragraphs inside blockquotes keep the quote style; every other paragraph
// gets the body style.
func applyInlineStyles(markup string) (string, error) {
	doc, err := parseFragment(markup)
	if err != nil {
		return "", err
	}

	for _, rule := range inlineStyles {
		doc.Find(rule.selector).SetAttr("style", rule.style)
	}
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if sel.ParentsFiltered("blockquote").Length() == 0 {
			sel.SetAttr("style", plainParagraphStyle)
		}
	})

	return serialize(doc)
}

// Clipboard is one export result: rich markup plus its plain-text reading.
type Clipboard struct {
	HTML string
	Text string
}

// ExportSelected styles the selected post for publishing.
func ExportSelected(doc *Document) (*Clipboard, error) {
	post := doc.Selected()
	if post == nil {
		return nil, fmt.Errorf("document is empty")
	}
	styled, err := applyInlineStyles(post.RenderedHTML)
	if err != nil {
		return nil, err
	}
	return &Clipboard{HTML: styled, Text: innerText(styled)}, nil
}

// ExportAll styles the whole document in post order. Pending widget slots are
// emptied and re-hidden so half-rendered image areas never reach the export.
func ExportAll(doc *Document) (*Clipboard, error) {
	posts := doc.Posts()
	if len(posts) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	var b strings.Builder
	for _, post := range posts {
		b.WriteString(post.RenderedHTML)
		b.WriteString("\n")
	}

	parsed, err := parseFragment(b.String())
	if err != nil {
		return nil, err
	}
	parsed.Find(".image-result-area").Each(func(_ int, sel *goquery.Selection) {
		if sel.Find("img").Length() == 0 {
			sel.SetHtml("")
			sel.SetAttr("class", "image-result-area hidden")
		}
	})
	combined, err := serialize(parsed)
	if err != nil {
		return nil, err
	}

	styled, err := applyInlineStyles(combined)
	if err != nil {
		return nil, err
	}
	return &Clipboard{HTML: styled, Text: innerText(styled)}, nil
}

// ToMarkdown converts styled export markup to markdown for editors that take
// markdown paste instead of rich text.
func ToMarkdown(markup string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return out, nil
}

// CopyText places the plain-text reading on the system clipboard.
func CopyText(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}
	return nil
}
