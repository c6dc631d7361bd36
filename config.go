package main

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/settings.yaml
var defaultSettings []byte

//go:embed config/system-instruction.md
var defaultSystemInstruction []byte

//go:embed config/default-sources-rss.txt
var defaultSourcesRSS []byte

//go:embed config/default-sources-naver.txt
var defaultSourcesNaver []byte

// Settings is the on-disk configuration.
type Settings struct {
	TextModel  string `yaml:"text_model"`
	ImageModel string `yaml:"image_model"`
	Keyword    string `yaml:"keyword"`
	Harvest    struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		ItemsPerSource int `yaml:"items_per_source"`
	} `yaml:"harvest"`
	Schedule struct {
		Hour   int `yaml:"hour"`
		Minute int `yaml:"minute"`
	} `yaml:"schedule"`
	Webhook struct {
		URL       string `yaml:"url"`
		SheetName string `yaml:"sheet_name"`
	} `yaml:"webhook"`
	OutputDirectory string `yaml:"output_directory"`
	ImagesDirectory string `yaml:"images_directory"`
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".blog-automator"), nil
}

// ensureConfigExists writes the embedded default to path unless a file is
// already there.
func ensureConfigExists(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default config %s: %w", path, err)
	}
	return nil
}

// loadSettings reads settings from the config directory, materializing the
// embedded defaults on first run.
func loadSettings(configDir string) (*Settings, error) {
	path := filepath.Join(configDir, "settings.yaml")
	if err := ensureConfigExists(path, defaultSettings); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	settings := &Settings{}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	// Fill gaps so a partial settings file still works.
	if settings.TextModel == "" {
		settings.TextModel = "gemini-2.5-flash"
	}
	if settings.ImageModel == "" {
		settings.ImageModel = "gemini-2.5-flash-image"
	}
	if settings.Keyword == "" {
		settings.Keyword = "AI"
	}
	if settings.Harvest.TimeoutSeconds <= 0 {
		settings.Harvest.TimeoutSeconds = 15
	}
	if settings.Harvest.ItemsPerSource <= 0 {
		settings.Harvest.ItemsPerSource = 3
	}
	if settings.Webhook.SheetName == "" {
		settings.Webhook.SheetName = "AutoData"
	}
	if settings.OutputDirectory == "" {
		settings.OutputDirectory = "exports"
	}
	if settings.ImagesDirectory == "" {
		settings.ImagesDirectory = "images"
	}

	return settings, nil
}

// loadSystemInstruction reads the editorial persona, materializing the
// embedded default on first run.
func loadSystemInstruction(configDir string) (string, error) {
	path := filepath.Join(configDir, "system-instruction.md")
	if err := ensureConfigExists(path, defaultSystemInstruction); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading system instruction: %w", err)
	}
	return string(data), nil
}

var sourceLineRe = regexp.MustCompile(`^(.+?)\s+(https?://\S+)(?:\s+(.+))?$`)

// parseSourceList parses "Name URL [Category]" lines. Lines holding a bare
// URL get a name derived from the host. Blank lines and # comments are
// skipped.
func parseSourceList(data string) []SourceConfig {
	var sources []SourceConfig
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := sourceLineRe.FindStringSubmatch(line); m != nil {
			sources = append(sources, SourceConfig{
				Name:     strings.TrimSpace(m[1]),
				Locator:  m[2],
				Category: strings.TrimSpace(m[3]),
			})
			continue
		}

		if u, err := url.Parse(line); err == nil && u.Host != "" {
			sources = append(sources, SourceConfig{
				Name:    strings.TrimPrefix(u.Host, "www."),
				Locator: line,
			})
		}
	}
	return sources
}

// defaultSources returns the embedded source list for a mode.
func defaultSources(mode Mode) []SourceConfig {
	if mode == ModeNaver {
		return parseSourceList(string(defaultSourcesNaver))
	}
	return parseSourceList(string(defaultSourcesRSS))
}

// loadSources returns the persisted source list for a mode, falling back to
// the embedded defaults.
func loadSources(store *Store, mode Mode) ([]SourceConfig, error) {
	sources, err := store.LoadSources(mode)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return defaultSources(mode), nil
	}
	return sources, nil
}
