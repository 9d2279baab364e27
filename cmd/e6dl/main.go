package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"e6dl/internal/api"
	"e6dl/internal/config"
	"e6dl/internal/download"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// groupFlags collects repeated -group flags in order.
type groupFlags []string

func (g *groupFlags) String() string {
	return strings.Join(*g, ",")
}

func (g *groupFlags) Set(value string) error {
	*g = append(*g, value)
	return nil
}

func main() {
	// Honor an optional .env for E6DL_LOG before anything logs.
	_ = godotenv.Load()

	log := newLogger()

	// Command line flags
	var groups groupFlags
	var (
		limitFlag       = flag.Uint("limit", 10, "Maximum number of posts to retrieve per page (hard service limit of 320)")
		pageFlag        = flag.String("page", "1", "Page to retrieve; also accepts before/after syntax like \"b12345\" or \"a12345\"")
		pagesFlag       = flag.Uint("pages", 1, "Maximum number of pages to download")
		outFlag         = flag.String("out", "./out", "Directory to write the downloaded posts to")
		sfwFlag         = flag.Bool("sfw", false, "Download from the content-filtered domain (e926) instead of e621")
		concurrencyFlag = flag.Uint("concurrency", 5, "Maximum number of concurrent downloads")
		configFlag      = flag.String("config", "", "Path to config file")
		verboseFlag     = flag.Bool("verbose", false, "Show verbose output")
		dryRunFlag      = flag.Bool("dry-run", false, "Collect and classify posts without downloading")
	)
	flag.Var(&groups, "group", "Group downloads into subdirectories: pool|rating|artist|filetype|tag:<value> (repeatable, first match wins)")

	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("e6dl - Download posts from e621/e926")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  e6dl [options] <tags>")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}
	tags := strings.Join(flag.Args(), " ")

	// Load config, then let explicitly set flags win over it.
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			log.Errorf("Error loading config: %v", err)
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "limit":
			settings.Limit = int(*limitFlag)
		case "page":
			settings.Page = *pageFlag
		case "pages":
			settings.Pages = int(*pagesFlag)
		case "out":
			settings.OutDir = *outFlag
		case "sfw":
			settings.SFW = *sfwFlag
		case "concurrency":
			settings.Concurrency = int(*concurrencyFlag)
		case "group":
			settings.Groups = groups
		}
	})

	if *verboseFlag {
		log.SetLevel(logrus.DebugLevel)
	}

	// Pre-flight: a multi-page run needs a numeric starting page.
	// Fail here, before any network activity.
	if err := download.ValidatePageArgs(settings.Page, settings.Pages); err != nil {
		log.Error(err)
		os.Exit(1)
	}

	// Handle interrupts
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Interrupted, cancelling...")
		cancel()
	}()

	client := api.DefaultClient(settings.UserAgent, settings.RequestTimeoutSeconds)

	manager, err := download.NewManager(settings, client, client, func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelError:
			log.Error(event.Message)
		case download.LevelWarning:
			log.Warn(event.Message)
		case download.LevelVerbose:
			log.Debug(event.Message)
		default:
			log.Info(event.Message)
		}
	})
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}

	log.Infof("Searching for %q...", tags)

	posts, err := manager.CollectPages(ctx, tags)
	if err != nil {
		log.Errorf("Could not search for posts: %v", err)
		return
	}

	if len(posts) == 0 {
		log.Warn("No posts to download!")
		return
	}

	log.Infof("Found %d posts matching criteria, downloading to %q...", len(posts), settings.OutDir)

	if *dryRunFlag {
		for i := range posts {
			log.Infof("[dry run] post %d -> %s", posts[i].ID, manager.PlannedPath(&posts[i]))
		}
		return
	}

	if err := manager.StartDownloads(ctx, posts); err != nil {
		log.Errorf("Error during download: %v", err)
		os.Exit(1)
	}

	_, _, filesDone, filesTotal := manager.GetProgress()
	log.Infof("Complete! Downloaded %d/%d posts", filesDone, filesTotal)
}

// newLogger builds the CLI logger, with the level taken from E6DL_LOG
// (default info).
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if raw := os.Getenv("E6DL_LOG"); raw != "" {
		if level, err := logrus.ParseLevel(raw); err == nil {
			log.SetLevel(level)
		}
	}

	return log
}
