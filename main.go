package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagConfigDir string
	flagAPIKey    string
	flagMode      string
)

// Session wires the pieces of one CLI invocation together: configuration,
// persistent state, the status log, the provider, and the working document.
type Session struct {
	Settings *Settings
	Store    *Store
	Log      *StatusLog
	Provider TextGenerator
	Doc      *Document

	configDir string
}

func (s *Session) Close() {
	if s.Store != nil {
		s.Store.Close()
	}
}

func (s *Session) mode() Mode {
	if flagMode == string(ModeNaver) {
		return ModeNaver
	}
	return ModeRSS
}

// newSession opens state and config. The provider is only dialed when the
// command needs it, so local commands work without an API key.
func newSession(ctx context.Context, needProvider bool) (*Session, error) {
	configDir := flagConfigDir
	if configDir == "" {
		var err error
		configDir, err = defaultConfigDir()
		if err != nil {
			return nil, err
		}
	}

	settings, err := loadSettings(configDir)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(filepath.Join(configDir, "state.db"))
	if err != nil {
		return nil, err
	}

	log := NewStatusLog()
	doc, err := NewDocument(store, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	sess := &Session{
		Settings:  settings,
		Store:     store,
		Log:       log,
		Doc:       doc,
		configDir: configDir,
	}

	if needProvider {
		apiKey := flagAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		provider, err := NewGeminiClient(ctx, apiKey)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("set GEMINI_API_KEY or pass --api-key: %w", err)
		}
		sess.Provider = provider
	}

	return sess, nil
}

var rootCmd = &cobra.Command{
	Use:          "blog-automator",
	Short:        "Harvest news, write blog articles, and render their images with Gemini",
	SilenceUsage: true,
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Scan the configured sources and collect article candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		mode := sess.mode()
		sources, err := loadSources(sess.Store, mode)
		if err != nil {
			return err
		}
		keyword, _ := cmd.Flags().GetString("keyword")
		if keyword == "" {
			keyword = sess.Settings.Keyword
		}

		fmt.Printf("Scanning %d sources (%s mode, keyword %q)\n", len(sources), mode, keyword)
		harvester := NewHarvester(sess.Provider, sess.Log, sess.Settings)
		items := harvester.Harvest(ctx, mode, sources, keyword, func(src SourceConfig, found []HarvestedItem) {
			if found == nil {
				fmt.Printf("  ✗ %s\n", src.Name)
				return
			}
			fmt.Printf("  ✓ %s (%d items)\n", src.Name, len(found))
		})

		if translate, _ := cmd.Flags().GetBool("translate"); translate && len(items) > 0 {
			fmt.Println("Translating batch to Korean...")
			if err := harvester.Translate(ctx, items); err != nil {
				sess.Log.Errorf("translate", "translate", "%v", err)
			}
		}

		if err := sess.Store.SaveItems(mode, items); err != nil {
			return err
		}

		fmt.Printf("\n%d items collected:\n", len(items))
		for _, it := range items {
			fmt.Printf("  %2d. [%s] %s\n", it.Index, it.SourceName, it.Title)
		}
		if errs := sess.Log.Errors(); len(errs) > 0 {
			fmt.Printf("%d sources failed; see log above\n", len(errs))
		}

		if save, _ := cmd.Flags().GetBool("webhook"); save {
			url := sess.Settings.Webhook.URL
			if url == "" {
				return fmt.Errorf("no webhook URL configured")
			}
			if err := SaveToWebhook(ctx, url, sess.Settings.Webhook.SheetName, items); err != nil {
				return err
			}
			fmt.Println("Batch saved to webhook")
		}
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write full articles from harvested items or a manual title",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		instruction, err := loadSystemInstruction(sess.configDir)
		if err != nil {
			return err
		}
		generator := NewGenerator(sess.Provider, sess.Log, sess.Settings, instruction)

		title, _ := cmd.Flags().GetString("title")
		itemsFlag, _ := cmd.Flags().GetString("items")

		var queue []HarvestedItem
		switch {
		case title != "":
			link, _ := cmd.Flags().GetString("url")
			queue = []HarvestedItem{{Title: title, Link: link}}
		case itemsFlag != "":
			items, loadErr := sess.Store.LoadItems(sess.mode())
			if loadErr != nil {
				return loadErr
			}
			for _, field := range strings.Split(itemsFlag, ",") {
				index, convErr := strconv.Atoi(strings.TrimSpace(field))
				if convErr != nil {
					return fmt.Errorf("item index must be a number, got %q", field)
				}
				found := false
				for _, it := range items {
					if it.Index == index {
						queue = append(queue, it)
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("no harvested item %d; run harvest first", index)
				}
			}
		default:
			return fmt.Errorf("pass --items or --title")
		}

		// One article per item; a failed item is logged and the rest
		// still get written.
		failed := 0
		for _, item := range queue {
			fmt.Printf("Writing article: %s\n", item.Title)
			article, genErr := generator.GenerateFromItem(ctx, item)
			if genErr != nil {
				sess.Log.Errorf(item.Title, item.Title, "%v", genErr)
				fmt.Printf("  ✗ %v\n", genErr)
				failed++
				continue
			}
			post, addErr := sess.Doc.AddArticle(item.Title, article)
			if addErr != nil {
				return addErr
			}
			fmt.Printf("  ✓ added %s (%d image prompts, %d tags)\n",
				post.ID, len(article.ImagePrompts), len(article.Tags))
		}
		if failed == len(queue) {
			return fmt.Errorf("all %d articles failed", failed)
		}
		return nil
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Render pending image slots of the selected post",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		renderer := NewRenderer(sess.Provider, sess.Log, sess.Settings)

		if index, _ := cmd.Flags().GetInt("widget"); index > 0 {
			prompt, _ := cmd.Flags().GetString("prompt")
			if err := renderer.Regenerate(ctx, sess.Doc, index-1, prompt); err != nil {
				return err
			}
			fmt.Printf("✓ regenerated image %d\n", index)
			return nil
		}

		widgets, err := sess.Doc.Widgets()
		if err != nil {
			return err
		}
		if len(widgets) == 0 {
			return fmt.Errorf("selected post has no image slots")
		}
		fmt.Printf("Rendering %d image slots\n", len(widgets))
		return renderer.RenderPending(ctx, sess.Doc)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the document with inline styles for pasting into the editor",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		all, _ := cmd.Flags().GetBool("all")
		var clip *Clipboard
		if all {
			clip, err = ExportAll(sess.Doc)
		} else {
			clip, err = ExportSelected(sess.Doc)
		}
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		var payload string
		switch format {
		case "html":
			payload = clip.HTML
		case "text":
			payload = clip.Text
		case "markdown":
			payload, err = ToMarkdown(clip.HTML)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format %q (html, text, markdown)", format)
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			ext := map[string]string{"html": "html", "text": "txt", "markdown": "md"}[format]
			if err := os.MkdirAll(sess.Settings.OutputDirectory, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			out = filepath.Join(sess.Settings.OutputDirectory,
				fmt.Sprintf("export-%s.%s", time.Now().Format("2006-01-02-150405"), ext))
		}
		if err := os.WriteFile(out, []byte(payload), 0644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("✓ exported to %s\n", out)

		if copyFlag, _ := cmd.Flags().GetBool("copy"); copyFlag {
			if err := CopyText(clip.Text); err != nil {
				return err
			}
			fmt.Println("✓ plain text copied to clipboard")
		}
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources [add name url [category] | remove name | reset]",
	Short: "Manage the harvesting source list",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()
		mode := sess.mode()

		sources, err := loadSources(sess.Store, mode)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Printf("%d sources (%s mode):\n", len(sources), mode)
			for _, s := range sources {
				if s.Category != "" {
					fmt.Printf("  %s  %s  [%s]\n", s.Name, s.Locator, s.Category)
				} else {
					fmt.Printf("  %s  %s\n", s.Name, s.Locator)
				}
			}
			return nil
		}

		switch args[0] {
		case "add":
			if len(args) < 3 {
				return fmt.Errorf("usage: sources add <name> <url> [category]")
			}
			src := SourceConfig{Name: args[1], Locator: args[2]}
			if len(args) > 3 {
				src.Category = args[3]
			}
			sources = append(sources, src)
			if err := sess.Store.SaveSources(mode, sources); err != nil {
				return err
			}
			fmt.Printf("✓ added %s\n", src.Name)
		case "remove":
			if len(args) != 2 {
				return fmt.Errorf("usage: sources remove <name>")
			}
			kept := sources[:0]
			for _, s := range sources {
				if s.Name != args[1] {
					kept = append(kept, s)
				}
			}
			if len(kept) == len(sources) {
				return fmt.Errorf("no source named %q", args[1])
			}
			if err := sess.Store.SaveSources(mode, kept); err != nil {
				return err
			}
			fmt.Printf("✓ removed %s\n", args[1])
		case "reset":
			if err := sess.Store.SaveSources(mode, defaultSources(mode)); err != nil {
				return err
			}
			fmt.Println("✓ sources reset to defaults")
		default:
			return fmt.Errorf("unknown action %q", args[0])
		}
		return nil
	},
}

var postsCmd = &cobra.Command{
	Use:   "posts [select id | remove id | clear]",
	Short: "Manage the accumulated document",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		if len(args) == 0 {
			posts := sess.Doc.Posts()
			if len(posts) == 0 {
				fmt.Println("document is empty")
				return nil
			}
			for _, p := range posts {
				marker := " "
				if p.Selected {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  (%s)\n", marker, p.ID, p.Title, p.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		}

		switch args[0] {
		case "select":
			if len(args) != 2 {
				return fmt.Errorf("usage: posts select <id>")
			}
			return sess.Doc.Select(args[1])
		case "remove":
			if len(args) != 2 {
				return fmt.Errorf("usage: posts remove <id>")
			}
			return sess.Doc.Remove(args[1])
		case "clear":
			return sess.Doc.Clear()
		default:
			return fmt.Errorf("unknown action %q", args[0])
		}
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Run the daily pipeline on the configured schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := newSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		scheduler, err := NewScheduler(sess.Settings.Schedule.Hour, sess.Settings.Schedule.Minute, sess.Log)
		if err != nil {
			return err
		}

		if once, _ := cmd.Flags().GetBool("now"); once {
			return runPipeline(ctx, sess)
		}
		return scheduler.Run(ctx, func(ctx context.Context) error {
			return runPipeline(ctx, sess)
		})
	},
}

// runPipeline is one unattended daily run: harvest, write an article from the
// first item, render its images, export, and push the batch to the webhook
// when one is configured.
func runPipeline(ctx context.Context, sess *Session) error {
	mode := sess.mode()
	sources, err := loadSources(sess.Store, mode)
	if err != nil {
		return err
	}

	harvester := NewHarvester(sess.Provider, sess.Log, sess.Settings)
	items := harvester.Harvest(ctx, mode, sources, sess.Settings.Keyword, nil)
	if len(items) == 0 {
		return fmt.Errorf("harvest found no items")
	}
	if err := sess.Store.SaveItems(mode, items); err != nil {
		return err
	}

	instruction, err := loadSystemInstruction(sess.configDir)
	if err != nil {
		return err
	}
	generator := NewGenerator(sess.Provider, sess.Log, sess.Settings, instruction)
	article, err := generator.GenerateFromItem(ctx, items[0])
	if err != nil {
		return err
	}
	if _, err := sess.Doc.AddArticle(items[0].Title, article); err != nil {
		return err
	}

	renderer := NewRenderer(sess.Provider, sess.Log, sess.Settings)
	if err := renderer.RenderPending(ctx, sess.Doc); err != nil {
		return err
	}

	clip, err := ExportSelected(sess.Doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(sess.Settings.OutputDirectory, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	out := filepath.Join(sess.Settings.OutputDirectory,
		fmt.Sprintf("auto-%s.html", time.Now().Format("2006-01-02")))
	if err := os.WriteFile(out, []byte(clip.HTML), 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	sess.Log.Successf("auto", "auto", "exported %s", out)

	if url := strings.TrimSpace(sess.Settings.Webhook.URL); url != "" {
		if err := SaveToWebhook(ctx, url, sess.Settings.Webhook.SheetName, items); err != nil {
			sess.Log.Errorf("auto", "auto", "webhook save failed: %v", err)
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config", "", "config directory (default ~/.blog-automator)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (default $GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "rss", "source mode: rss or naver")

	harvestCmd.Flags().String("keyword", "", "topic keyword (default from settings)")
	harvestCmd.Flags().Bool("translate", false, "translate the batch to Korean")
	harvestCmd.Flags().Bool("webhook", false, "push the batch to the configured webhook")

	generateCmd.Flags().String("items", "", "comma-separated harvested item indexes, e.g. 1,3")
	generateCmd.Flags().String("title", "", "write about a manual title instead of harvested items")
	generateCmd.Flags().String("url", "", "reference link for --title")

	imagesCmd.Flags().Int("widget", 0, "re-render one slot (1-based)")
	imagesCmd.Flags().String("prompt", "", "replacement prompt for --widget")

	exportCmd.Flags().Bool("all", false, "export every post, not just the selected one")
	exportCmd.Flags().String("format", "html", "html, text, or markdown")
	exportCmd.Flags().StringP("output", "o", "", "output file (default under the export directory)")
	exportCmd.Flags().Bool("copy", false, "also copy the plain text to the clipboard")

	autoCmd.Flags().Bool("now", false, "run the pipeline once immediately")

	rootCmd.AddCommand(harvestCmd, generateCmd, imagesCmd, exportCmd, sourcesCmd, postsCmd, autoCmd)
}

func main() {
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
