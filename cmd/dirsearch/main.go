package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dnswlt/dirsearch/internal/cli"
	"github.com/dnswlt/dirsearch/internal/config"
	"github.com/dnswlt/dirsearch/internal/directory"
	"github.com/dnswlt/dirsearch/internal/gitclient"
	"github.com/dnswlt/dirsearch/internal/merge"
	"github.com/dnswlt/dirsearch/internal/store"
	"github.com/peterbourgon/ff/v3"
)

var (
	// Version is the application version.
	// It is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
)

const usage = `Usage: dirsearch <command> [flags] <term>

Commands:
  search   List matching add-ons and whether the pom declares them
  add      Like search, and add the first matching add-on to the pom
  version  Print the version

Run "dirsearch <command> -h" for the flags of a command.
`

func gitClientAuthFromEnv() *gitclient.Auth {
	user := os.Getenv("DIRSEARCH_GIT_USER")
	if user == "" {
		return nil
	}
	pass := os.Getenv("DIRSEARCH_GIT_PASSWORD")
	return &gitclient.Auth{
		Username: user,
		Password: pass,
	}
}

// Options contains program options that can be set via command-line flags or environment variables.
type Options struct {
	Term             string
	Full             bool
	Where            string
	FrameworkVersion string
	Descriptor       string
	Container        string
	RootDir          string
	GitURL           string
	GitRef           string
	ConfigFile       string
	CatalogURL       string
	Timeout          time.Duration
	CacheDir         string
	CacheTTL         time.Duration
	CacheSize        int
	Format           string
	NoColor          bool
	LogLevel         string

	// add only
	All          bool
	DryRun       bool
	RequireClean bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "search":
		run("search", os.Args[2:])
	case "add":
		run("add", os.Args[2:])
	case "version":
		fmt.Println(Version)
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Available commands: search, add, version\n", os.Args[1])
		os.Exit(1)
	}
}

func newFlagSet(cmd string, opts *Options) *flag.FlagSet {
	fs := flag.NewFlagSet("dirsearch "+cmd, flag.ExitOnError)
	fs.StringVar(&opts.Term, "addon", "", "Search term. May also be given as positional argument.")
	fs.BoolVar(&opts.Full, "full", false, "Also match the search term against add-on summaries")
	fs.StringVar(&opts.Where, "where", "", "CEL expression to filter matches, e.g. 'rating >= 4.0'")
	fs.StringVar(&opts.FrameworkVersion, "vaadin", "7", "Framework major version to list add-ons for")
	fs.StringVar(&opts.Descriptor, "pom", cli.DefaultDescriptor, "Path of the pom (relative to git root or local -root-dir)")
	fs.StringVar(&opts.Container, "container", merge.DefaultLocator.String(), "Element path of the dependencies container in the pom")
	fs.StringVar(&opts.RootDir, "root-dir", ".", "Root directory of the local project")
	fs.StringVar(&opts.GitURL, "git-url", "", "URL of a git repository to read the pom from (read-only)")
	fs.StringVar(&opts.GitRef, "git-ref", "", "Git ref (branch or tag) to read the pom from")
	fs.StringVar(&opts.ConfigFile, "config", config.DefaultPath, "Path to the configuration YAML file (relative to git root or local -root-dir)")
	fs.StringVar(&opts.CatalogURL, "catalog-url", directory.DefaultURL, "URL of the add-on directory listing")
	fs.DurationVar(&opts.Timeout, "timeout", directory.DefaultTimeout, "Maximum time to wait for the add-on directory")
	fs.StringVar(&opts.CacheDir, "cache-dir", defaultCacheDir(), "Directory for cached add-on listings. Empty disables caching.")
	fs.DurationVar(&opts.CacheTTL, "cache-ttl", directory.DefaultCacheTTL, "Maximum age of a cached add-on listing")
	fs.IntVar(&opts.CacheSize, "cache-size", directory.DefaultCacheSize, "Max. number of listings to keep in the cache directory")
	fs.StringVar(&opts.Format, "format", cli.FormatText, "Output format: text or cyclonedx")
	fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	if cmd == "add" {
		fs.BoolVar(&opts.All, "all", false, "Add all matching add-ons, not only the first one")
		fs.BoolVar(&opts.DryRun, "dry-run", false, "Print a diff of the pom instead of writing it")
		fs.BoolVar(&opts.RequireClean, "require-clean", false, "Refuse to modify a pom with uncommitted git changes")
	}
	return fs
}

// applyConfig sets options from b for all flags that were not set
// explicitly on the command line or via environment variables.
func applyConfig(fs *flag.FlagSet, opts *Options, b *config.Bundle) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	str := func(name string, dst *string, v string) {
		if !set[name] && v != "" {
			*dst = v
		}
	}
	str("catalog-url", &opts.CatalogURL, b.Catalog.URL)
	str("vaadin", &opts.FrameworkVersion, b.Catalog.FrameworkVersion)
	str("pom", &opts.Descriptor, b.Descriptor.Path)
	str("container", &opts.Container, b.Descriptor.Container)
	str("format", &opts.Format, b.Output.Format)
	str("cache-dir", &opts.CacheDir, b.Catalog.CacheDir)
	if !set["timeout"] && b.Catalog.Timeout > 0 {
		opts.Timeout = time.Duration(b.Catalog.Timeout)
	}
	if !set["cache-ttl"] && b.Catalog.CacheTTL > 0 {
		opts.CacheTTL = time.Duration(b.Catalog.CacheTTL)
	}
	if !set["cache-size"] && b.Catalog.CacheSize > 0 {
		opts.CacheSize = b.Catalog.CacheSize
	}
	if !set["no-color"] && b.Output.Color != nil {
		opts.NoColor = !*b.Output.Color
	}
}

// defaultCacheDir returns the per-user cache directory of dirsearch,
// or "" if the platform has none.
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dirsearch")
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "dirsearch",
		Level:  lvl,
	}))
	return nil
}

func run(cmd string, args []string) {
	var opts Options
	fs := newFlagSet(cmd, &opts)
	err := ff.Parse(fs, args, ff.WithEnvVarPrefix("DIRSEARCH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		os.Exit(1)
	}
	if opts.Term == "" {
		opts.Term = strings.Join(fs.Args(), " ")
	}
	if err := setupLogging(opts.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(opts.Term) == "" {
		log.Fatalf("%v: use -addon or pass the term as argument", cli.ErrMissingSearchTerm)
	}

	if opts.GitRef != "" && opts.GitURL == "" {
		log.Fatalf("-git-ref requires -git-url")
	}
	src := createSource(opts)
	st, err := src.Store(opts.GitRef)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	bundle, err := config.LoadOptional(st, opts.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyConfig(fs, &opts, bundle)
	log.Debugf("Using config from flags/env vars/config file: %+v", opts)

	client, err := directory.NewClient(opts.CatalogURL,
		directory.WithTimeout(opts.Timeout),
		directory.WithCacheDir(opts.CacheDir, opts.CacheTTL),
		directory.WithCacheSize(opts.CacheSize))
	if err != nil {
		log.Fatalf("Could not create catalog client: %v", err)
	}
	log.Debugf("Listing add-ons from %s", client.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &cli.Runner{
		Catalog: client,
		Store:   st,
		Out:     os.Stdout,
		Format:  opts.Format,
		Color:   !opts.NoColor,
	}
	if opts.Format == cli.FormatCycloneDX {
		// Keep stdout a valid BOM.
		runner.Diff = os.Stderr
	}
	cliOpts := cli.Options{
		Term:             opts.Term,
		Full:             opts.Full,
		Where:            opts.Where,
		FrameworkVersion: opts.FrameworkVersion,
		Descriptor:       opts.Descriptor,
		Container:        opts.Container,
		All:              opts.All,
		DryRun:           opts.DryRun,
		RequireClean:     opts.RequireClean,
	}

	var rep *cli.Report
	if cmd == "add" {
		rep, err = runner.Add(ctx, cliOpts)
	} else {
		rep, err = runner.Search(ctx, cliOpts)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Fatal("Interrupted")
		}
		log.Fatalf("%s failed: %v", cmd, err)
	}
	if len(rep.Results) == 0 {
		log.Infof("No add-ons match %q", opts.Term)
	}
}

// createSource returns the git repository given by -git-url, or else the
// local directory -root-dir.
func createSource(opts Options) store.Source {
	if opts.GitURL != "" {
		auth := gitClientAuthFromEnv()
		log.Infof("Reading %s from git URL %s", opts.Descriptor, opts.GitURL)
		loader, err := gitclient.New(opts.GitURL, auth)
		if err != nil {
			log.Fatalf("Failed to retrieve git repo: %v", err)
		}
		defaultRef, err := loader.DefaultBranch()
		if err != nil && opts.GitRef == "" {
			log.Fatalf("No git-ref specified and no default branch found: %v", err)
		}
		log.Debugf("Using git ref %q (default %q)", opts.GitRef, defaultRef)
		return store.NewGitSource(loader, defaultRef)
	} else if opts.RootDir != "" {
		log.Debugf("Using local store at %s", opts.RootDir)
		return store.NewDiskStore(opts.RootDir)
	} else {
		log.Fatalf("Neither -root-dir nor -git-url specified")
		return nil
	}
}
