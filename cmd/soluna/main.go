// Package main is the soluna command line client. Each subcommand prints the
// JSON form of one source operation to stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"github.com/ngodn/soluna/internal/app"
	"github.com/ngodn/soluna/pkg/config"
	"github.com/ngodn/soluna/pkg/httpclient"
	"github.com/ngodn/soluna/pkg/interfaces"
	"github.com/ngodn/soluna/pkg/logging"
)

type SearchCmd struct {
	Keyword []string `arg:"positional,required" help:"tag name or one of trending, recent, latest, random"`
}

type TrendingCmd struct{}

type PageCmd struct {
	URL string `arg:"positional,required" help:"video page URL"`
}

type Args struct {
	Search   *SearchCmd   `arg:"subcommand:search" help:"browse a tag or listing"`
	Trending *TrendingCmd `arg:"subcommand:trending" help:"list trending videos"`
	Details  *PageCmd     `arg:"subcommand:details" help:"show the details of a video page"`
	Episodes *PageCmd     `arg:"subcommand:episodes" help:"list the episodes of a video page"`
	Stream   *PageCmd     `arg:"subcommand:stream" help:"print the stream URLs of a video page"`

	Site     string        `arg:"--site" help:"site base URL, overrides SITE_BASE_URL"`
	Timeout  time.Duration `arg:"--timeout" help:"per-request timeout, overrides REQUEST_TIMEOUT"`
	Probe    bool          `arg:"--probe" help:"probe HLS playlists for streams without a height"`
	LogLevel string        `arg:"--log-level,env:LOG_LEVEL" default:"warn" help:"debug, info, warn or error"`
}

func (Args) Description() string {
	return "soluna browses hanime.tv and prints the results as JSON.\n"
}

func (Args) Version() string {
	return "soluna 1.0.0"
}

var errNoCommand = errors.New("no subcommand given")

func main() {
	var args Args
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	cfg := config.Load()
	applyOverrides(cfg, &args)

	log := logging.New(args.LogLevel, cfg.LogJSON, nil)
	src := app.NewSource(cfg, httpclient.New(cfg, log), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, src, &args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "soluna: %v\n", err)
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, args *Args) {
	if args.Site != "" {
		cfg.SiteBaseURL = strings.TrimSuffix(args.Site, "/")
	}
	if args.Timeout > 0 {
		cfg.RequestTimeout = args.Timeout
	}
	if args.Probe {
		cfg.ProbeStreamQuality = true
	}
}

// run executes the selected subcommand and writes its JSON to w.
func run(ctx context.Context, src interfaces.Source, args *Args, w io.Writer) error {
	var out string
	switch {
	case args.Search != nil:
		out = src.SearchJSON(ctx, strings.Join(args.Search.Keyword, " "))
	case args.Trending != nil:
		out = src.TrendingJSON(ctx)
	case args.Details != nil:
		out = src.DetailsJSON(ctx, args.Details.URL)
	case args.Episodes != nil:
		out = src.EpisodesJSON(ctx, args.Episodes.URL)
	case args.Stream != nil:
		out = src.StreamJSON(ctx, args.Stream.URL)
	default:
		return errNoCommand
	}

	_, err := fmt.Fprintln(w, out)
	return err
}
