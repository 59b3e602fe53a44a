package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/akashgurava/deckterra/internal/config"
	"github.com/akashgurava/deckterra/pkg/cache"
	"github.com/akashgurava/deckterra/pkg/client"
	"github.com/akashgurava/deckterra/pkg/decks"
	"github.com/akashgurava/deckterra/pkg/logging"
	"github.com/akashgurava/deckterra/pkg/storage"
)

const longHelp = `Download the public Legends of Runeterra deck library.

deckterra plans the library into fixed-size pages, fetches them with paced,
bounded-concurrency requests and bounded retry, then merges the pages into
one deduplicated, sorted deck collection.

Configuration is read from $HOME/.deckterra/config.toml, then DECKTERRA_*
environment variables, then flags.`

var exampleUsage = strings.TrimSpace(`
  deckterra fetch --total 10000 --sort hot --output-dir ./data
  deckterra fetch --sink redis --redis-addr localhost:6379 --cache
  deckterra plan --total 10000 --page-size 4000
`)

// cardDecoder expands deck codes for --cards. No deck code decoder is
// linked into the binary yet, so it stays nil outside tests.
var cardDecoder decks.CardDecoder

var errNoCardDecoder = errors.New("--cards needs a deck code decoder, and none is available in this build")

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "deckterra",
		Short:        "Download the Legends of Runeterra deck library",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
	}

	bindFlags(root.PersistentFlags(), &cfg, &cfgPath)

	root.AddCommand(
		&cobra.Command{
			Use:   "fetch",
			Short: "Fetch the library and save decks.json (and cards.json with --cards)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
					return err
				}
				return runFetch(cmd, cfg)
			},
		},
		&cobra.Command{
			Use:   "plan",
			Short: "Print the page requests a fetch would make, without sending them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
					return err
				}
				return runPlan(cmd, cfg)
			},
		},
	)

	return root
}

func bindFlags(fs *pflag.FlagSet, cfg *config.Config, cfgPath *string) {
	fs.StringVar(cfgPath, "config", "", "Path to TOML config file (default $HOME/.deckterra/config.toml)")

	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API root the library endpoint is resolved against")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header sent with every request")

	fs.Uint32Var(&cfg.Total, "total", cfg.Total, "Number of decks wanted")
	fs.Uint32Var(&cfg.PageSize, "page-size", cfg.PageSize, "Decks requested per page")
	fs.Float64Var(&cfg.OverfetchRatio, "overfetch-ratio", cfg.OverfetchRatio, "Factor applied to the total to absorb duplicates across pages")
	fs.StringVar(&cfg.Sort, "sort", cfg.Sort, "Library order: recently_updated, hot or popularity")
	fs.StringVar(&cfg.Category, "category", cfg.Category, "Library section: COMMUNITY, BUDGET or FEATURED")

	fs.DurationVar(&cfg.MinSpacing, "min-spacing", cfg.MinSpacing, "Minimum time between two request starts (0 disables pacing)")
	fs.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "Maximum requests in flight")
	fs.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Attempts per page including the first")
	fs.DurationSliceVar(&cfg.Backoff, "backoff", cfg.Backoff, "Wait after each failed attempt; the last entry repeats")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "Timeout for one request")

	fs.StringVar(&cfg.Sink, "sink", cfg.Sink, "Where to save results: file or redis")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for the file sink")
	fs.StringVar(&cfg.DecksFile, "decks-file", cfg.DecksFile, "Name of the decks collection")
	fs.StringVar(&cfg.CardsFile, "cards-file", cfg.CardsFile, "Name of the cards collection")
	fs.BoolVar(&cfg.Cards, "cards", cfg.Cards, "Also expand deck codes into the cards collection")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the redis sink and page cache")
	fs.DurationVar(&cfg.RedisTTL, "redis-ttl", cfg.RedisTTL, "Expiry of collections saved to Redis (0 keeps them)")
	fs.BoolVar(&cfg.Cache, "cache", cfg.Cache, "Cache pages in Redis and revalidate them with ETags")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve /metrics and /health on this address while running")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "Human-readable console logs instead of JSON")
}

// loadConfig layers file and environment values under the flags the user set.
func loadConfig(cmd *cobra.Command, cfg *config.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := config.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Setup(cfg.LoggingConfig())
	log.Debug().Interface("config", cfg).Msg("configuration")
	return nil
}

func runFetch(cmd *cobra.Command, cfg config.Config) error {
	var decoder decks.CardDecoder
	if cfg.Cards {
		if cardDecoder == nil {
			return errNoCardDecoder
		}
		decoder = cardDecoder
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Sink == config.SinkRedis || cfg.Cache {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	clientCfg := cfg.ClientConfig()
	if cfg.Cache {
		clientCfg.Cache = cache.NewManager(rdb)
	}
	transport, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	library, err := decks.NewLibrary(transport, cfg.LibraryConfig())
	if err != nil {
		return fmt.Errorf("create library: %w", err)
	}

	var sink storage.Sink
	switch cfg.Sink {
	case config.SinkRedis:
		sink = storage.NewRedisSink(rdb, cfg.RedisTTL)
	default:
		sink = storage.NewFileSink(cfg.OutputDir)
	}

	if cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(cfg.MetricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Metrics server shutdown failed")
			}
		}()
	}

	report, err := library.Save(ctx, sink, cfg.Options(), decoder)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"fetched %d of %d decks from %d pages (%d missing, %d retries) in %s\n",
		report.Received, report.Desired, report.Pages, report.MissingPages, report.Retries,
		report.Duration.Round(time.Millisecond))

	if ctx.Err() != nil {
		return fmt.Errorf("fetch interrupted: %w", ctx.Err())
	}
	return nil
}

func runPlan(cmd *cobra.Command, cfg config.Config) error {
	transport, err := client.New(cfg.ClientConfig())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	library, err := decks.NewLibrary(transport, cfg.LibraryConfig())
	if err != nil {
		return fmt.Errorf("create library: %w", err)
	}

	pages, descriptors := library.Plan(cfg.Options())

	out := cmd.OutOrStdout()
	var requested uint64
	for i, d := range descriptors {
		requested += uint64(pages[i].Count)
		fmt.Fprintln(out, d.String())
	}
	fmt.Fprintf(out, "%d pages, %d decks requested for %d wanted\n", len(pages), requested, cfg.Total)
	return nil
}
