package main

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreGetPut(t *testing.T) {
	store := newTestStore(t)

	if v, err := store.Get(keyKeyword); err != nil || v != "" {
		t.Errorf("missing key: got %q, %v", v, err)
	}
	if err := store.Put(keyKeyword, "반려견"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, _ := store.Get(keyKeyword); v != "반려견" {
		t.Errorf("Get = %q", v)
	}
	if err := store.Delete(keyKeyword); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, _ := store.Get(keyKeyword); v != "" {
		t.Errorf("deleted key still returns %q", v)
	}
}

func TestStoreItemsRoundTripPerMode(t *testing.T) {
	store := newTestStore(t)

	rss := []HarvestedItem{{ID: "1", Index: 1, SourceName: "Alpha", Title: "RSS item"}}
	naver := []HarvestedItem{{ID: "2", Index: 1, SourceName: "네이버IT뉴스", Title: "네이버 item", Category: "IT"}}

	if err := store.SaveItems(ModeRSS, rss); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	if err := store.SaveItems(ModeNaver, naver); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}

	gotRSS, err := store.LoadItems(ModeRSS)
	if err != nil || len(gotRSS) != 1 || gotRSS[0].Title != "RSS item" {
		t.Errorf("rss batch = %+v, %v", gotRSS, err)
	}
	gotNaver, err := store.LoadItems(ModeNaver)
	if err != nil || len(gotNaver) != 1 || gotNaver[0].Category != "IT" {
		t.Errorf("naver batch = %+v, %v", gotNaver, err)
	}
}

func TestStoreSourcesRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if sources, err := store.LoadSources(ModeRSS); err != nil || sources != nil {
		t.Errorf("fresh store sources = %v, %v", sources, err)
	}

	in := []SourceConfig{{Name: "Alpha", Locator: "https://alpha.example"}}
	if err := store.SaveSources(ModeRSS, in); err != nil {
		t.Fatalf("SaveSources: %v", err)
	}
	out, err := store.LoadSources(ModeRSS)
	if err != nil || len(out) != 1 || out[0].Name != "Alpha" {
		t.Errorf("sources = %+v, %v", out, err)
	}
}

func TestDocumentPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	doc, err := NewDocument(store, NewStatusLog())
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	post, err := doc.AddArticle("persisted", testArticle("<p>body</p>"))
	if err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	store.Close()

	store2, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store2.Close()
	doc2, err := NewDocument(store2, NewStatusLog())
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	got := doc2.Selected()
	if got == nil || got.ID != post.ID || got.Title != "persisted" {
		t.Errorf("reloaded selection = %+v, want %s", got, post.ID)
	}
}
