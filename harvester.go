package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Harvester extracts news items from configured sources one source at a time.
// A failing source never aborts the run; it records an error entry and the
// scan moves on.
type Harvester struct {
	provider TextGenerator
	log      *StatusLog
	model    string
	timeout  time.Duration
	perSite  int
}

// NewHarvester builds a harvester from settings.
func NewHarvester(provider TextGenerator, log *StatusLog, settings *Settings) *Harvester {
	return &Harvester{
		provider: provider,
		log:      log,
		model:    settings.TextModel,
		timeout:  time.Duration(settings.Harvest.TimeoutSeconds) * time.Second,
		perSite:  settings.Harvest.ItemsPerSource,
	}
}

type extractedItem struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Link    string `json:"link"`
}

type extractionPayload struct {
	Items []extractedItem `json:"items"`
}

func (h *Harvester) sourcePrompt(mode Mode, src SourceConfig, keyword string) string {
	if mode == ModeNaver {
		return fmt.Sprintf(`You are a strict Korean news data extraction API.
Find the TOP 5 MOST POPULAR/TRENDING news articles currently featured on %s (%s).
Category: %s.
For each article provide: title, date (YYYY-MM-DD), a 3-sentence content summary in Korean, and the article link.
RESPONSE FORMAT: STRICT RAW JSON ONLY. No markdown, no commentary.
{"items":[{"title":"...","date":"...","content":"...","link":"..."}]}`,
			src.Name, src.Locator, src.Category)
	}
	return fmt.Sprintf(`You are a strict data extraction API.
Find the top %d UNIQUE news articles related to %q from this SPECIFIC source ONLY: %s (%s).
For each article provide: title, date (YYYY-MM-DD), a 3-sentence content summary, and the article link.
RESPONSE FORMAT: STRICT RAW JSON ONLY. No markdown, no commentary.
{"items":[{"title":"...","date":"...","content":"...","link":"..."}]}`,
		h.perSite, keyword, src.Name, src.Locator)
}

// extractJSONObject pulls the outermost {...} span out of a response that may
// be wrapped in prose or code fences.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Harvest scans every source in order. After each source finishes, onSource is
// called with that source's items (possibly empty) so callers can surface
// progress incrementally. The returned slice holds all items from all sources
// with batch-wide running indexes.
func (h *Harvester) Harvest(ctx context.Context, mode Mode, sources []SourceConfig, keyword string, onSource func(SourceConfig, []HarvestedItem)) []HarvestedItem {
	var all []HarvestedItem
	index := 0

	for _, src := range sources {
		items, err := h.harvestSource(ctx, mode, src, keyword)
		if err != nil {
			h.log.Errorf(src.Name, src.Name, "scan failed: %v", err)
			if onSource != nil {
				onSource(src, nil)
			}
			continue
		}

		for i := range items {
			index++
			items[i].Index = index
		}
		all = append(all, items...)
		h.log.Successf(src.Name, src.Name, "Found %d items", len(items))
		if onSource != nil {
			onSource(src, items)
		}
	}

	return all
}

func (h *Harvester) harvestSource(ctx context.Context, mode Mode, src SourceConfig, keyword string) ([]HarvestedItem, error) {
	sctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := h.provider.GenerateContent(sctx, GenerateRequest{
		Model:     h.model,
		Prompt:    h.sourcePrompt(mode, src, keyword),
		UseSearch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}

	raw, ok := extractJSONObject(resp.Text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parsing extraction response: %w", err)
	}

	items := make([]HarvestedItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		items = append(items, HarvestedItem{
			ID:          uuid.NewString(),
			SourceName:  src.Name,
			Title:       strings.TrimSpace(it.Title),
			Content:     strings.TrimSpace(it.Content),
			Link:        strings.TrimSpace(it.Link),
			PublishDate: strings.TrimSpace(it.Date),
			Category:    src.Category,
		})
	}
	return items, nil
}

// Translate rewrites item titles and summaries into Korean in one request,
// mutating items in place. Items keep their original text when the response
// comes back short.
func (h *Harvester) Translate(ctx context.Context, items []HarvestedItem) error {
	if len(items) == 0 {
		return nil
	}

	type entry struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	input := make([]entry, len(items))
	for i, it := range items {
		input[i] = entry{Title: it.Title, Content: it.Content}
	}
	encoded, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encoding translation input: %w", err)
	}

	prompt := fmt.Sprintf(`Translate the following news titles and summaries into natural Korean.
Keep the array order identical to the input.
RESPONSE FORMAT: STRICT RAW JSON ONLY.
{"translations":[{"title":"...","content":"..."}]}

INPUT:
%s`, encoded)

	resp, err := h.provider.GenerateContent(ctx, GenerateRequest{
		Model:  h.model,
		Prompt: prompt,
	})
	if err != nil {
		return fmt.Errorf("requesting translation: %w", err)
	}

	raw, ok := extractJSONObject(resp.Text)
	if !ok {
		return fmt.Errorf("no JSON object in translation response")
	}
	var payload struct {
		Translations []entry `json:"translations"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("parsing translation response: %w", err)
	}

	for i := range items {
		if i >= len(payload.Translations) {
			break
		}
		t := payload.Translations[i]
		if t.Title != "" {
			items[i].Title = t.Title
		}
		if t.Content != "" {
			items[i].Content = t.Content
		}
	}
	return nil
}

// SaveToWebhook posts the batch to a spreadsheet webhook endpoint.
func SaveToWebhook(ctx context.Context, webhookURL, sheetName string, items []HarvestedItem) error {
	if len(items) == 0 {
		return fmt.Errorf("no items to save")
	}
	parsed, err := url.Parse(webhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid webhook URL %q", webhookURL)
	}

	q := parsed.Query()
	q.Set("sheetName", sheetName)
	parsed.RawQuery = q.Encode()

	body, err := json.Marshal(map[string]interface{}{
		"sheetName": sheetName,
		"site":      "Multiple Sources",
		"items":     items,
	})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsed.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", explainWebhookError(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook responded %s", resp.Status)
	}
	return nil
}

// explainWebhookError maps common transport failures to actionable hints.
func explainWebhookError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unsupported protocol"), strings.Contains(msg, "invalid URL"):
		return "webhook URL is malformed; paste the full deployment URL"
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "connection refused"):
		return "webhook host unreachable; check the deployment is live"
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "Client.Timeout"):
		return "webhook timed out; the script may be redeploying"
	default:
		return "webhook request failed"
	}
}
