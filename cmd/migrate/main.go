package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// migrate imports a browser localStorage dump into the state database.
// Export the dump from the devtools console with:
//
//	copy(JSON.stringify(localStorage))
//
// Only the application's own keys are imported; everything else in the dump
// is skipped.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <localStorage-dump.json> <state.db>")
	}

	dumpPath := os.Args[1]
	dbPath := os.Args[2]

	if err := importDump(dumpPath, dbPath); err != nil {
		log.Fatal(err)
	}
}

var keyPrefixes = []string{
	"gemini_automator_",
	"gemini_auto_",
	"gemini_scraped_items_",
	"gemini_canvas_html_",
}

func ownKey(key string) bool {
	for _, prefix := range keyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func importDump(dumpPath, dbPath string) error {
	content, err := os.ReadFile(dumpPath)
	if err != nil {
		return fmt.Errorf("reading dump %s: %w", dumpPath, err)
	}

	var dump map[string]string
	if err := json.Unmarshal(content, &dump); err != nil {
		return fmt.Errorf("parsing dump: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("opening state database %s: %w", dbPath, err)
	}
	defer db.Close()

	imported := 0
	skipped := 0
	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte("state"))
		if err != nil {
			return err
		}
		for key, value := range dump {
			if !ownKey(key) {
				skipped++
				continue
			}
			if err := bucket.Put([]byte(key), []byte(value)); err != nil {
				return fmt.Errorf("writing %s: %w", key, err)
			}
			log.Printf("Imported %s (%d bytes)", key, len(value))
			imported++
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nImported %d keys, skipped %d foreign keys\n", imported, skipped)
	return nil
}
