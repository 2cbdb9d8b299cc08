package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"dropsum/internal/config"
	"dropsum/internal/exporter"
	"dropsum/internal/importer"
	"dropsum/internal/model"
	"dropsum/internal/picker"
	"dropsum/internal/pipeline"
	"dropsum/internal/raindrop"
	"dropsum/internal/search"
	"dropsum/internal/store"
	"dropsum/internal/summarizer"
	"dropsum/internal/tagsync"
	"dropsum/internal/video"
)

func main() {
	// Load .env if present; variables may also be set directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()
	case "run":
		runPipeline(os.Args[2:])
	case "sync-tags":
		runSyncTags()
	case "list":
		runList(os.Args[2:])
	case "stats":
		runStats()
	case "search":
		if len(os.Args) < 3 {
			fatal("Usage: dropsum search <query>")
		}
		runSearch(os.Args[2])
	case "delete":
		if len(os.Args) < 3 {
			fatal("Usage: dropsum delete <video-id>")
		}
		runDelete(os.Args[2])
	case "export":
		var path string
		if len(os.Args) >= 3 {
			path = os.Args[2]
		}
		runExport(path)
	case "import":
		if len(os.Args) < 3 {
			fatal("Usage: dropsum import <file.html>")
		}
		runImport(os.Args[2], os.Args[3:])
	case "verify":
		runVerify()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	help := `dropsum - summarize bookmarked videos with AI

Usage:
  dropsum run [flags]         Fetch bookmarks, summarize unprocessed videos
  dropsum sync-tags           Force-push merged tags for all processed records
  dropsum list [-limit n]     List processed records, newest first
  dropsum stats               Show processing statistics
  dropsum search <query>      Fuzzy-search processed summaries
  dropsum delete <video-id>   Remove one processed record
  dropsum export [path]       Export an HTML index of summaries
  dropsum import <file.html>  Summarize videos from a bookmarks HTML export
  dropsum verify              Check Raindrop connectivity and credentials
  dropsum help                Show this help

Run flags:
  -force            Reprocess already summarized videos
  -limit n          Cap the number of videos dispatched
  -concurrency n    Videos summarized at once (1-10)
  -collection id    Raindrop collection (default: all)
  -tag name         Only bookmarks carrying this tag
  -pick             Choose candidates interactively

Configuration (environment or .env):
  RAINDROP_TOKEN            Raindrop API bearer token (required)
  GOOGLE_CLOUD_PROJECT_ID   Cloud project for the summarizer (required for run)
  DROPSUM_OUTPUT_DIR        Summary output directory (default ./summaries)
  DROPSUM_SUMMARIZER        Path to the summarizer script
`
	fmt.Print(help)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// fatalAPI renders upstream errors, with remediation for bad credentials.
func fatalAPI(err error) {
	if errors.Is(err, raindrop.ErrUnauthorized) {
		fmt.Fprintln(os.Stderr, "Error: Raindrop rejected the access token.")
		fmt.Fprintln(os.Stderr, "Create a test token at https://app.raindrop.io/settings/integrations and set RAINDROP_TOKEN.")
		os.Exit(1)
	}
	fatal("Error: %v", err)
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal("Configuration error: %v", err)
	}
	return cfg
}

func requireToken(cfg *config.Config) {
	if cfg.Token == "" {
		fatal("RAINDROP_TOKEN is not set. Add it to your environment or .env file.")
	}
}

func openStore() *store.SQLite {
	path, err := store.DefaultPath()
	if err != nil {
		fatal("Error resolving store path: %v", err)
	}
	s, err := store.New(path)
	if err != nil {
		fatal("Error opening record store: %v", err)
	}
	return s
}

// signalContext cancels on interrupt so in-flight work stops and the
// store still closes on the way out.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPipeline(args []string) {
	cfg := loadConfig()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	force := fs.Bool("force", false, "reprocess already summarized videos")
	limit := fs.Int("limit", cfg.MaxItems, "cap the number of videos dispatched")
	concurrency := fs.Int("concurrency", cfg.Concurrency, "videos summarized at once")
	collection := fs.Int64("collection", cfg.Collection, "raindrop collection ID")
	tag := fs.String("tag", cfg.TagFilter, "only bookmarks carrying this tag")
	pick := fs.Bool("pick", false, "choose candidates interactively")
	fs.Parse(args)

	cfg.Concurrency = *concurrency
	cfg.MaxItems = *limit
	if err := cfg.Validate(); err != nil {
		fatal("Configuration error: %v", err)
	}
	requireToken(cfg)
	if cfg.ProjectID == "" {
		fatal("GOOGLE_CLOUD_PROJECT_ID is not set. The summarizer needs a cloud project.")
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	client := raindrop.NewClient(cfg.Token)
	s := openStore()
	defer s.Close()

	fmt.Println("Fetching bookmarks...")
	isVideo := func(item model.BookmarkItem) bool {
		_, ok := video.Classify(item.Link)
		return ok
	}
	var items []model.BookmarkItem
	var err error
	if cfg.MaxItems > 0 {
		items, err = client.FetchUntilVideoCount(ctx, *collection, *tag, isVideo, cfg.MaxItems)
	} else {
		items, err = client.Fetch(ctx, *collection, *tag, 0)
	}
	if err != nil {
		fatalAPI(err)
	}

	candidates := video.FilterCandidates(items)
	fmt.Printf("Found %d bookmarks, %d video candidates\n", len(items), len(candidates))
	for platform, count := range video.PlatformBreakdown(items) {
		fmt.Printf("  %s: %d\n", platform, count)
	}

	if *pick && len(candidates) > 0 {
		p := picker.New(candidates)
		finalModel, err := tea.NewProgram(p).Run()
		if err != nil {
			fatal("Error running picker: %v", err)
		}
		finalPicker := finalModel.(picker.Picker)
		if finalPicker.Cancelled() {
			return
		}
		candidates = finalPicker.Selected()
	}

	gateway := summarizer.NewGateway(
		summarizer.NewResolver(filepath.Dir(cfg.SummarizerScript)),
		summarizer.ExecRunner{},
		cfg.SummarizerScript,
		cfg.ProjectID,
		logger,
	)
	engine := tagsync.NewEngine(client, s, logger)
	dispatcher := pipeline.NewDispatcher(gateway, s, engine, cfg.OutputDir, logger)

	stats, err := dispatcher.Run(ctx, candidates, pipeline.Options{
		Concurrency: cfg.Concurrency,
		MaxItems:    cfg.MaxItems,
		Force:       *force,
	})
	if err != nil && stats == nil {
		fatal("Error: %v", err)
	}

	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Candidates:  %d\n", stats.Total)
	fmt.Printf("Skipped:     %d (already processed)\n", stats.Skipped)
	fmt.Printf("Dispatched:  %d\n", stats.Dispatched)
	fmt.Printf("Succeeded:   %d\n", stats.Succeeded)
	fmt.Printf("Failed:      %d\n", stats.Failed)
	fmt.Printf("Duration:    %s\n", stats.Duration().Round(time.Second))
	if err != nil {
		fmt.Printf("Interrupted: %v\n", err)
	}
}

func runSyncTags() {
	cfg := loadConfig()
	requireToken(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	client := raindrop.NewClient(cfg.Token)
	s := openStore()
	defer s.Close()

	engine := tagsync.NewEngine(client, s, logger)
	summary, err := engine.SyncAll(ctx, cfg.Collection)
	if err != nil {
		fatalAPI(err)
	}

	fmt.Println("=== Tag Sync Summary ===")
	fmt.Printf("Matched:   %d\n", summary.Matched)
	fmt.Printf("Updated:   %d\n", summary.Updated)
	fmt.Printf("Unmatched: %d\n", summary.Skipped)
	fmt.Printf("Failed:    %d\n", summary.Failed)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "records to show")
	fs.Parse(args)

	s := openStore()
	defer s.Close()

	records, err := s.List(*limit)
	if err != nil {
		fatal("Error listing records: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No processed videos yet.")
		return
	}

	for _, rec := range records {
		fmt.Printf("%s  %-11s  %s\n", rec.ProcessedAt.Format("2006-01-02 15:04"), rec.VideoID, rec.Title)
	}
}

func runStats() {
	s := openStore()
	defer s.Close()

	st, err := s.Stats()
	if err != nil {
		fatal("Error reading stats: %v", err)
	}

	fmt.Printf("Total processed: %d\n", st.TotalProcessed)
	fmt.Printf("Today:           %d\n", st.ProcessedToday)
	fmt.Printf("This week:       %d\n", st.ProcessedThisWeek)
}

func runSearch(query string) {
	s := openStore()
	defer s.Close()

	records, err := s.List(0)
	if err != nil {
		fatal("Error listing records: %v", err)
	}

	results := search.FuzzySearchRecords(records, query)
	if len(results) == 0 {
		fmt.Printf("No summaries found for '%s'\n", query)
		return
	}

	for _, r := range results {
		fmt.Printf("%-11s  %s\n", r.Record.VideoID, r.Record.Title)
		fmt.Printf("             %s\n", r.Record.OutputPath)
	}
}

func runDelete(videoID string) {
	s := openStore()
	defer s.Close()

	deleted, err := s.Delete(videoID)
	if err != nil {
		fatal("Error deleting record: %v", err)
	}
	if !deleted {
		fmt.Printf("No record for video %s\n", videoID)
		return
	}
	fmt.Printf("Deleted record for video %s\n", videoID)
}

func runExport(outputPath string) {
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fatal("Error getting default export path: %v", err)
		}
	}

	s := openStore()
	defer s.Close()

	records, err := s.List(0)
	if err != nil {
		fatal("Error listing records: %v", err)
	}

	html := exporter.ExportHTML(records)
	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		fatal("Error writing file: %v", err)
	}

	fmt.Printf("Exported %d summaries to %s\n", len(records), outputPath)
}

func runImport(filePath string, args []string) {
	cfg := loadConfig()
	requireToken(cfg)
	if cfg.ProjectID == "" {
		fatal("GOOGLE_CLOUD_PROJECT_ID is not set. The summarizer needs a cloud project.")
	}

	fs := flag.NewFlagSet("import", flag.ExitOnError)
	force := fs.Bool("force", false, "reprocess already summarized videos")
	fs.Parse(args)

	file, err := os.Open(filePath)
	if err != nil {
		fatal("Error opening file: %v", err)
	}
	defer file.Close()

	items, err := importer.ParseHTMLBookmarks(file)
	if err != nil {
		fatal("Error parsing HTML: %v", err)
	}

	candidates := video.FilterCandidates(items)
	fmt.Printf("Found %d bookmarks, %d video candidates\n", len(items), len(candidates))

	ctx, cancel := signalContext()
	defer cancel()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	client := raindrop.NewClient(cfg.Token)
	s := openStore()
	defer s.Close()

	gateway := summarizer.NewGateway(
		summarizer.NewResolver(filepath.Dir(cfg.SummarizerScript)),
		summarizer.ExecRunner{},
		cfg.SummarizerScript,
		cfg.ProjectID,
		logger,
	)
	engine := tagsync.NewEngine(client, s, logger)
	dispatcher := pipeline.NewDispatcher(gateway, s, engine, cfg.OutputDir, logger)

	stats, err := dispatcher.Run(ctx, candidates, pipeline.Options{
		Concurrency: cfg.Concurrency,
		MaxItems:    cfg.MaxItems,
		Force:       *force,
	})
	if err != nil && stats == nil {
		fatal("Error: %v", err)
	}

	fmt.Printf("Done: %d succeeded, %d failed, %d skipped\n", stats.Succeeded, stats.Failed, stats.Skipped)
}

func runVerify() {
	cfg := loadConfig()
	requireToken(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	client := raindrop.NewClient(cfg.Token)
	if err := client.Verify(ctx); err != nil {
		fatalAPI(err)
	}
	fmt.Println("Raindrop connection OK.")
}
