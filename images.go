package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Widget is one image slot in the selected post.
type Widget struct {
	Index     int
	Prompt    string
	HasResult bool
}

func (d *Document) mutateSelected(fn func(*goquery.Document) error) error {
	post := d.Selected()
	if post == nil {
		return fmt.Errorf("document is empty")
	}
	parsed, err := parseFragment(post.RenderedHTML)
	if err != nil {
		return err
	}
	if err := fn(parsed); err != nil {
		return err
	}
	updated, err := serialize(parsed)
	if err != nil {
		return err
	}
	post.RenderedHTML = updated
	return d.persist()
}

// Widgets lists the image slots of the selected post in document order.
func (d *Document) Widgets() ([]Widget, error) {
	post := d.Selected()
	if post == nil {
		return nil, nil
	}
	parsed, err := parseFragment(post.RenderedHTML)
	if err != nil {
		return nil, err
	}
	var widgets []Widget
	parsed.Find(".image-prompt-box").Each(func(i int, sel *goquery.Selection) {
		prompt, _ := sel.Attr("data-prompt")
		widgets = append(widgets, Widget{
			Index:     i,
			Prompt:    prompt,
			HasResult: sel.Find(".image-result-area img").Length() > 0,
		})
	})
	return widgets, nil
}

func widgetAt(parsed *goquery.Document, index int) (*goquery.Selection, error) {
	sel := parsed.Find(".image-prompt-box").Eq(index)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("no image slot %d", index)
	}
	return sel, nil
}

// SetWidgetResult fills an image slot with the rendered JPEG as a data URI.
func (d *Document) SetWidgetResult(index int, jpegData []byte) error {
	return d.mutateSelected(func(parsed *goquery.Document) error {
		sel, err := widgetAt(parsed, index)
		if err != nil {
			return err
		}
		uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
		area := sel.Find(".image-result-area")
		area.SetHtml(fmt.Sprintf(`<img src="%s" alt="generated image">`, uri))
		area.RemoveClass("hidden")
		return nil
	})
}

// SetWidgetError marks an image slot as failed.
func (d *Document) SetWidgetError(index int, message string) error {
	return d.mutateSelected(func(parsed *goquery.Document) error {
		sel, err := widgetAt(parsed, index)
		if err != nil {
			return err
		}
		area := sel.Find(".image-result-area")
		area.SetHtml(fmt.Sprintf(`<div class="error">%s</div>`, message))
		area.RemoveClass("hidden")
		return nil
	})
}

// SetWidgetPrompt replaces the prompt of an image slot, both the attribute
// and the visible copy.
func (d *Document) SetWidgetPrompt(index int, prompt string) error {
	return d.mutateSelected(func(parsed *goquery.Document) error {
		sel, err := widgetAt(parsed, index)
		if err != nil {
			return err
		}
		sel.SetAttr("data-prompt", prompt)
		sel.Find(".content").SetText(prompt)
		return nil
	})
}

// Renderer turns image prompts into flattened JPEGs.
type Renderer struct {
	provider  TextGenerator
	log       *StatusLog
	model     string
	imagesDir string
}

// NewRenderer builds a renderer from settings.
func NewRenderer(provider TextGenerator, log *StatusLog, settings *Settings) *Renderer {
	return &Renderer{
		provider:  provider,
		log:       log,
		model:     settings.ImageModel,
		imagesDir: settings.ImagesDirectory,
	}
}

// Render generates one square image and returns it as a flattened JPEG.
func (r *Renderer) Render(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := r.provider.GenerateContent(ctx, GenerateRequest{
		Model:            r.model,
		Prompt:           prompt,
		ImageAspectRatio: "1:1",
	})
	if err != nil {
		return nil, fmt.Errorf("rendering image: %w", err)
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("rendering image: no image in response")
	}
	return flattenToJPEG(resp.Images[0])
}

// flattenToJPEG composites the image over a white background and re-encodes
// it as JPEG. Transparent regions would otherwise come out black.
func flattenToJPEG(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// saveImage writes the JPEG under dir with a time-derived name, suffixing a
// sequence number on collisions.
func saveImage(dir string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating images directory: %w", err)
	}

	base := now.Format("02-01-05")
	path := filepath.Join(dir, base+".jpg")
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", base, n))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return path, nil
}

// RenderPending renders every unfilled image slot of the selected post in
// order. A failed slot records its error and the run continues; each rendered
// image is also saved to disk.
func (r *Renderer) RenderPending(ctx context.Context, doc *Document) error {
	widgets, err := doc.Widgets()
	if err != nil {
		return err
	}

	for _, w := range widgets {
		if w.HasResult {
			continue
		}
		slot := fmt.Sprintf("image %d", w.Index+1)

		data, err := r.Render(ctx, w.Prompt)
		if err != nil {
			r.log.Errorf(slot, slot, "render failed: %v", err)
			if serr := doc.SetWidgetError(w.Index, "generation failed"); serr != nil {
				return serr
			}
			continue
		}
		if err := doc.SetWidgetResult(w.Index, data); err != nil {
			return err
		}
		path, err := saveImage(r.imagesDir, data, time.Now())
		if err != nil {
			r.log.Errorf(slot, slot, "save failed: %v", err)
			continue
		}
		r.log.Successf(slot, slot, "saved %s", filepath.Base(path))
	}
	return nil
}

// Regenerate re-renders one slot with a new prompt. The result replaces the
// slot content but is not written to disk.
func (r *Renderer) Regenerate(ctx context.Context, doc *Document, index int, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		widgets, err := doc.Widgets()
		if err != nil {
			return err
		}
		if index < 0 || index >= len(widgets) {
			return fmt.Errorf("no image slot %d", index)
		}
		prompt = widgets[index].Prompt
	} else if err := doc.SetWidgetPrompt(index, prompt); err != nil {
		return err
	}

	data, err := r.Render(ctx, prompt)
	if err != nil {
		return err
	}
	return doc.SetWidgetResult(index, data)
}
