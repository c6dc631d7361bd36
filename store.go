package main

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store keys. The names carry over from earlier releases so existing state
// files keep working.
const (
	keyTextModel  = "gemini_automator_text_model"
	keyImageModel = "gemini_automator_image_model"
	keyAutoTime   = "gemini_auto_time"
	keyKeyword    = "gemini_auto_keywords"
	keyWebhookURL = "gemini_auto_webhook"
	keySheetName  = "gemini_auto_sheet_name_save"
	keyDocument   = "gemini_automator_document"

	keySourcesPrefix = "gemini_auto_sites_"
	keyItemsPrefix   = "gemini_scraped_items_"
	keyCanvasPrefix  = "gemini_canvas_html_"
)

var stateBucket = []byte("state")

// Store persists sources, harvested batches and the working document between
// runs, backed by a single bbolt file.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (or creates) the state file at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening state file %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing state bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or "" when absent.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(stateBucket).Get([]byte(key)); v != nil {
			value = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key.
func (s *Store) Put(key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Put(key, string(data))
}

func (s *Store) getJSON(key string, v interface{}) (bool, error) {
	raw, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// SaveSources persists the source list for a mode.
func (s *Store) SaveSources(mode Mode, sources []SourceConfig) error {
	return s.putJSON(keySourcesPrefix+string(mode), sources)
}

// LoadSources returns the persisted source list for a mode, or nil when none
// has been saved yet.
func (s *Store) LoadSources(mode Mode) ([]SourceConfig, error) {
	var sources []SourceConfig
	ok, err := s.getJSON(keySourcesPrefix+string(mode), &sources)
	if err != nil || !ok {
		return nil, err
	}
	return sources, nil
}

// SaveItems persists the harvested batch for a mode.
func (s *Store) SaveItems(mode Mode, items []HarvestedItem) error {
	return s.putJSON(keyItemsPrefix+string(mode), items)
}

// LoadItems returns the persisted batch for a mode.
func (s *Store) LoadItems(mode Mode) ([]HarvestedItem, error) {
	var items []HarvestedItem
	ok, err := s.getJSON(keyItemsPrefix+string(mode), &items)
	if err != nil || !ok {
		return nil, err
	}
	return items, nil
}

// SaveDocument persists the accumulated posts.
func (s *Store) SaveDocument(posts []AccumulatedPost) error {
	return s.putJSON(keyDocument, posts)
}

// LoadDocument returns the persisted posts.
func (s *Store) LoadDocument() ([]AccumulatedPost, error) {
	var posts []AccumulatedPost
	ok, err := s.getJSON(keyDocument, &posts)
	if err != nil || !ok {
		return nil, err
	}
	return posts, nil
}
