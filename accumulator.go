package main

import (
	"bytes"
	"fmt"
	"html"
	"text/template"
	"time"
)

// sectionTemplate renders one accumulated post: a metadata card with the
// generation byproducts, then the sanitized article body. text/template is
// used on purpose: the body and the widget attributes are already escaped and
// contextual autoescaping would mangle them.
var sectionTemplate = template.Must(template.New("section").Parse(
	`<article class="doc-section" data-post-id="{{.ID}}">
<div class="meta-card">
{{- if .Prompts}}
<div class="meta-block meta-prompts"><span class="meta-label">Visual prompts</span>
{{- range .Prompts}}
<div class="meta-item">{{.}}</div>
{{- end}}
</div>
{{- end}}
{{- if .Queries}}
<div class="meta-block meta-queries"><span class="meta-label">Search queries</span>
{{- range .Queries}}
<div class="meta-item">{{.}}</div>
{{- end}}
</div>
{{- end}}
{{- if .Tags}}
<div class="meta-block meta-tags">
{{- range .Tags}}
<span class="tag-pill">#{{.}}</span>
{{- end}}
</div>
{{- end}}
{{- if .Refs}}
<div class="meta-block meta-sources"><span class="meta-label">Sources</span>
{{- range .Refs}}
<a href="{{.URI}}" target="_blank">{{.Title}}</a>
{{- end}}
</div>
{{- end}}
</div>
{{.Body}}
</article>`))

type sectionData struct {
	ID      string
	Prompts []string
	Queries []string
	Tags    []string
	Refs    []GroundingRef
	Body    string
}

// Document is the accumulating working document: an ordered list of posts of
// which exactly one is selected whenever the list is non-empty.
type Document struct {
	posts []AccumulatedPost
	store *Store
	log   *StatusLog
}

// NewDocument loads the persisted document, if any. A nil store gives an
// in-memory document.
func NewDocument(store *Store, log *StatusLog) (*Document, error) {
	var posts []AccumulatedPost
	if store != nil {
		var err error
		posts, err = store.LoadDocument()
		if err != nil {
			return nil, fmt.Errorf("loading document: %w", err)
		}
	}
	d := &Document{posts: posts, store: store, log: log}
	d.healSelection()
	return d, nil
}

func (d *Document) persist() error {
	if d.store == nil {
		return nil
	}
	return d.store.SaveDocument(d.posts)
}

// healSelection restores the exactly-one-selected invariant: when posts exist
// but none is marked, the most recent one becomes selected.
func (d *Document) healSelection() {
	if len(d.posts) == 0 {
		return
	}
	for i := range d.posts {
		if d.posts[i].Selected {
			return
		}
	}
	d.posts[len(d.posts)-1].Selected = true
}

// nextID derives a post id from the wall clock, bumping past collisions when
// two posts land in the same millisecond.
func (d *Document) nextID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := fmt.Sprintf("post-%d", ms)
		taken := false
		for i := range d.posts {
			if d.posts[i].ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
		ms++
	}
}

// AddArticle sanitizes the article, renders its section, appends it and makes
// it the selected post.
func (d *Document) AddArticle(title string, article *GeneratedArticle) (*AccumulatedPost, error) {
	body, err := Sanitize(article.RawText)
	if err != nil {
		return nil, fmt.Errorf("sanitizing article %q: %w", title, err)
	}

	var escapedTags []string
	for _, t := range article.Tags {
		escapedTags = append(escapedTags, html.EscapeString(t))
	}

	var buf bytes.Buffer
	id := d.nextID(time.Now())
	err = sectionTemplate.Execute(&buf, sectionData{
		ID:      id,
		Prompts: escapeAll(article.ImagePrompts),
		Queries: escapeAll(article.SearchQueries),
		Tags:    escapedTags,
		Refs:    escapeRefs(article.GroundingRefs),
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering section for %q: %w", title, err)
	}

	for i := range d.posts {
		d.posts[i].Selected = false
	}
	post := AccumulatedPost{
		ID:           id,
		Title:        title,
		RenderedHTML: buf.String(),
		Selected:     true,
		CreatedAt:    time.Now(),
	}
	d.posts = append(d.posts, post)

	if err := d.persist(); err != nil {
		return nil, err
	}
	return &d.posts[len(d.posts)-1], nil
}

func escapeAll(in []string) []string {
	var out []string
	for _, s := range in {
		out = append(out, html.EscapeString(s))
	}
	return out
}

func escapeRefs(in []GroundingRef) []GroundingRef {
	var out []GroundingRef
	for _, r := range in {
		out = append(out, GroundingRef{
			URI:   html.EscapeString(r.URI),
			Title: html.EscapeString(r.Title),
		})
	}
	return out
}

// Posts returns the posts in insertion order.
func (d *Document) Posts() []AccumulatedPost {
	out := make([]AccumulatedPost, len(d.posts))
	copy(out, d.posts)
	return out
}

// Selected returns the selected post, or nil when the document is empty.
func (d *Document) Selected() *AccumulatedPost {
	d.healSelection()
	for i := range d.posts {
		if d.posts[i].Selected {
			return &d.posts[i]
		}
	}
	return nil
}

// Select marks the post with the given id as selected.
func (d *Document) Select(id string) error {
	found := false
	for i := range d.posts {
		if d.posts[i].ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no post %q", id)
	}
	for i := range d.posts {
		d.posts[i].Selected = d.posts[i].ID == id
	}
	return d.persist()
}

// Remove deletes the post with the given id. If it was selected, the last
// remaining post takes over.
func (d *Document) Remove(id string) error {
	idx := -1
	for i := range d.posts {
		if d.posts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("no post %q", id)
	}
	d.posts = append(d.posts[:idx], d.posts[idx+1:]...)
	d.healSelection()
	return d.persist()
}

// Clear empties the document.
func (d *Document) Clear() error {
	d.posts = nil
	return d.persist()
}
