// Copyright 2025 The GallerySearch Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the commission gallery search server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

GallerySearch answers two questions about a catalogue of commissions: which
entries match a free-text query, and what the token being typed could become.
Queries are whole-word boolean expressions (space for AND, '|' for OR, '!'
for NOT, quotes for phrases) with a fuzzy fallback when the strict pass finds
nothing. Dates like 2025, 2025-09 or 09/2025 are matched by value.

# Usage

Start the server with default settings:

	gallerysearch

Use a specific database, enable debug mode and rebuild on change:

	gallerysearch -db ./commissions.db -d -watch

Seed the database from a TOML file, then query it interactively:

	gallerysearch -db ./commissions.db -import seed.toml -c

# Configuration

Runtime configuration lives in a TOML file, created with defaults if missing:

	[server]
	max_limit = 64
	max_query_len = 512
	default_limit = 8

	[search]
	cache_size = 256
	fuzzy_threshold = 0.33

	[catalog]
	db_path = "commissions.db"
	watch = false
	debounce_ms = 500

A relative db_path is resolved against the working directory, the executable
directory and the config directory, in that order.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Logs go to stderr.

	{"id": "q1", "op": "search", "q": "azki 2025 !sketch"}
	{"id": "q1", "ids": [3, 7], "c": 2, "t": 41}

	{"id": "q2", "op": "suggest", "q": "azki bl", "l": 5}
	{"id": "q2", "s": [{"w": "blue hair", "src": ["Keyword"], "n": 2, "g": 9, "r": 1}], "c": 1, "t": 18}

Other ops are stats, rebuild and config.

# CLI Mode

CLI mode reads one raw query per line and prints the matched IDs and the
ranked suggestions. :stats and :rebuild are available as commands.

# Command Line Flags

	-version  Show current version
	-d        Enable debug mode with detailed logging
	-c        Run in CLI mode instead of server mode
	-db       Path to the commission database (default from config)
	-config   Path to a custom config file
	-limit    Number of suggestions to show in CLI mode
	-watch    Rebuild the index when the database changes
	-import   TOML file of [[commission]] tables to load before starting
	-reproject
	          Recompute stored search text after changing projection rules
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bastiangx/gallerysearch/internal/cli"
	"github.com/bastiangx/gallerysearch/internal/logger"
	"github.com/bastiangx/gallerysearch/internal/utils"
	"github.com/bastiangx/gallerysearch/pkg/catalog"
	"github.com/bastiangx/gallerysearch/pkg/config"
	"github.com/bastiangx/gallerysearch/pkg/search"
	"github.com/bastiangx/gallerysearch/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "gallerysearch"
	gh      = "https://github.com/bastiangx/gallerysearch"
)

// sigHandler cancels the returned context on SIGINT/SIGTERM and exits if the
// process does not wind down on its own.
func sigHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cancel()
		// stdin reads do not observe ctx
		time.Sleep(200 * time.Millisecond)
		os.Exit(0)
	}()
	return ctx
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	ctx := sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	dbPath := flag.String("db", "", "Path to the commission database (default from config)")
	configFile := flag.String("config", "", "Path to a custom config file")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to show in CLI mode")
	watch := flag.Bool("watch", false, "Rebuild the index when the database changes")
	importFile := flag.String("import", "", "TOML file of commissions to load into the database")
	reproject := flag.Bool("reproject", false, "Recompute stored search text and suggestion rows")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	log.Debug("Runtime", "info", pathResolver.GetRuntimeInfo())

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	resolvedDB := resolveDatabase(pathResolver, appConfig, configPath, *dbPath)
	log.Debugf("Using database at: %s", resolvedDB)

	store, err := catalog.Open(ctx, resolvedDB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if *importFile != "" {
		if err := importCommissions(ctx, store, *importFile); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	}
	if *reproject {
		n, err := store.Reproject(ctx)
		if err != nil {
			log.Fatalf("Reprojection failed: %v", err)
		}
		log.Infof("Reprojected %s commissions", utils.FormatWithCommas(n))
	}

	holder := catalog.NewHolder(store, search.Options{
		CacheSize:      appConfig.Search.CacheSize,
		FuzzyThreshold: appConfig.Search.FuzzyThreshold,
		SuggestLimit:   appConfig.Search.SuggestLimit,
	})
	if err := holder.Rebuild(ctx); err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}
	log.Debugf("Index ready: %d entries", holder.Len())

	if *watch || appConfig.Catalog.Watch {
		debounce := time.Duration(appConfig.Catalog.DebounceMS) * time.Millisecond
		watcher := catalog.NewWatcher(resolvedDB, debounce, func() {
			if err := holder.Rebuild(ctx); err != nil {
				log.Errorf("Rebuild after change failed: %v", err)
			}
		})
		if err := watcher.Start(); err != nil {
			log.Warnf("Not watching database: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "limit", *limit, "showIDs", appConfig.CLI.ShowIDs)

		inputHandler := cli.NewInputHandler(holder, *limit, appConfig.CLI.ShowIDs, os.Stdout)
		if err := inputHandler.Start(ctx, os.Stdin); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(holder, appConfig, configPath)

	showStartupInfo(resolvedDB, holder.Len())

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// resolveDatabase prefers the -db flag, then the config's db_path.
func resolveDatabase(pr *utils.PathResolver, cfg *config.Config, configPath, flagPath string) string {
	path := cfg.Catalog.DBPath
	if flagPath != "" {
		path = flagPath
	}
	if path == catalog.MemoryPath {
		return path
	}
	baseDir := ""
	if configPath != "" {
		baseDir = filepath.Dir(configPath)
	}
	return pr.ResolveDatabase(path, baseDir)
}

func importCommissions(ctx context.Context, store *catalog.Store, path string) error {
	list, err := catalog.LoadCommissionsTOML(path)
	if err != nil {
		return err
	}
	if err := store.InsertAll(ctx, list); err != nil {
		return err
	}
	log.Infof("Imported %s commissions from %s", utils.FormatWithCommas(len(list)), path)
	return nil
}

func printVersion() {
	banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ GallerySearch ] Boolean search and suggestions for commission galleries")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process.
// Everything goes to stderr, stdout carries the IPC stream.
func showStartupInfo(dbPath string, entries int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "===============")
	fmt.Fprintln(os.Stderr, " GallerySearch ")
	fmt.Fprintln(os.Stderr, "===============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("database: ( %s )", dbPath)
	log.Infof("entries: %s", utils.FormatWithCommas(entries))
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===============")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
