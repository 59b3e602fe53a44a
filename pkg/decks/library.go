package decks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/akashgurava/deckterra/pkg/client"
	"github.com/akashgurava/deckterra/pkg/logging"
	"github.com/akashgurava/deckterra/pkg/pagination"
	"github.com/akashgurava/deckterra/pkg/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the root of the remote API.
	DefaultBaseURL = "https://lor.mobalytics.gg/api/v2/"

	// LibraryEndpoint is the deck library path relative to the base URL.
	LibraryEndpoint = "decks/library"

	// DefaultTotalDecks is how many decks are requested when no total is given.
	DefaultTotalDecks uint32 = 100_000

	// DefaultPageSize is the page capacity requested per call.
	DefaultPageSize uint32 = 4000

	// DefaultDecksFile and DefaultCardsFile are the collection names passed
	// to the sink.
	DefaultDecksFile = "decks.json"
	DefaultCardsFile = "cards.json"
)

// Config holds library fetch tuning.
type Config struct {
	BaseURL        string
	PageSize       uint32
	OverfetchRatio float64
	Batch          pagination.Config
	Retry          client.RetryConfig
	DecksFile      string
	CardsFile      string
}

// DefaultConfig returns the compiled-in defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		PageSize:       DefaultPageSize,
		OverfetchRatio: pagination.DefaultOverfetchRatio,
		Batch:          pagination.DefaultConfig(),
		Retry:          client.DefaultRetryConfig(),
		DecksFile:      DefaultDecksFile,
		CardsFile:      DefaultCardsFile,
	}
}

// Options select what to fetch. Zero values mean defaults.
type Options struct {
	// Total is the desired number of decks; nil means DefaultTotalDecks.
	Total    *uint32
	Sort     Sort
	Category Category
}

// Desired returns the requested total after applying the default.
func (o Options) Desired() uint32 {
	if o.Total == nil {
		return DefaultTotalDecks
	}
	return *o.Total
}

// Report summarizes one library fetch. Under-delivery shows up here rather
// than as an error.
type Report struct {
	Desired      uint32
	Requested    uint64
	Pages        int
	MissingPages int
	Attempts     int64
	Retries      int64
	Received     int
	Duration     time.Duration
}

// Shortfall returns how many decks short of the desired total the fetch came.
func (r Report) Shortfall() int {
	if short := int(r.Desired) - r.Received; short > 0 {
		return short
	}
	return 0
}

// Library fetches the deck library through a shared transport.
type Library struct {
	transport client.Transport
	config    Config
	endpoint  string
	logger    zerolog.Logger
}

// NewLibrary creates a library client.
func NewLibrary(transport client.Transport, config Config) (*Library, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if config.PageSize == 0 {
		return nil, fmt.Errorf("page size must be positive")
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base url %q must be absolute", config.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	endpoint := base.ResolveReference(&url.URL{Path: LibraryEndpoint})

	if config.DecksFile == "" {
		config.DecksFile = DefaultDecksFile
	}
	if config.CardsFile == "" {
		config.CardsFile = DefaultCardsFile
	}

	return &Library{
		transport: transport,
		config:    config,
		endpoint:  endpoint.String(),
		logger:    logging.NewLogger("library"),
	}, nil
}

// Endpoint returns the resolved library URL.
func (l *Library) Endpoint() string {
	return l.endpoint
}

// Plan returns the page descriptors for opts, in page order.
func (l *Library) Plan(opts Options) ([]pagination.Page, []client.Descriptor) {
	pages := pagination.Plan(opts.Desired(), l.config.PageSize, l.config.OverfetchRatio)
	descriptors := pagination.Descriptors(pages, func(p pagination.Page) client.Descriptor {
		q := Query{
			SortBy:   opts.Sort.OrDefault(),
			From:     p.Offset,
			Count:    p.Count,
			Category: opts.Category.OrDefault(),
		}
		return client.Get(l.endpoint, q.Values())
	})
	return pages, descriptors
}

// Fetch plans, fetches and merges the library. It always returns the decks
// it managed to get; compare Report.Received with Report.Desired to judge
// completeness.
func (l *Library) Fetch(ctx context.Context, opts Options, observers ...client.Observer) ([]Deck, Report) {
	start := time.Now()
	pages, descriptors := l.Plan(opts)

	var attempts, retries atomic.Int64
	count := func(ev client.AttemptEvent) {
		attempts.Add(1)
		if ev.Attempt > 1 {
			retries.Add(1)
		}
	}

	l.logger.Info().
		Int("pages", len(descriptors)).
		Uint32("desired", opts.Desired()).
		Uint64("requested", pagination.Total(pages)).
		Str("sort", string(opts.Sort.OrDefault())).
		Str("category", string(opts.Category.OrDefault())).
		Msg("Fetching deck library")

	result := pagination.RunBatch(
		ctx,
		l.transport,
		pageDecoder(),
		descriptors,
		l.config.Batch,
		l.config.Retry,
		append([]client.Observer{count}, observers...)...,
	)
	decks := pagination.Merge(result)

	report := Report{
		Desired:      opts.Desired(),
		Requested:    pagination.Total(pages),
		Pages:        len(descriptors),
		MissingPages: result.Missing(),
		Attempts:     attempts.Load(),
		Retries:      retries.Load(),
		Received:     len(decks),
		Duration:     time.Since(start),
	}

	event := l.logger.Info()
	if report.MissingPages > 0 || report.Shortfall() > 0 {
		event = l.logger.Warn()
	}
	event.
		Int("received", report.Received).
		Int("missing_pages", report.MissingPages).
		Int("shortfall", report.Shortfall()).
		Int64("retries", report.Retries).
		Dur("duration", report.Duration).
		Msg("Deck library fetched")

	return decks, report
}

// Save fetches the library and writes the decks collection, plus the cards
// collection when a card decoder is given.
func (l *Library) Save(ctx context.Context, sink storage.Sink, opts Options, decoder CardDecoder) (Report, error) {
	decks, report := l.Fetch(ctx, opts)

	if err := sink.Put(ctx, l.config.DecksFile, decks); err != nil {
		return report, fmt.Errorf("save decks: %w", err)
	}

	if decoder == nil {
		l.logger.Info().Msg("No card decoder configured, skipping cards")
		return report, nil
	}

	cards := CardsFromDecks(decks, decoder)
	if err := sink.Put(ctx, l.config.CardsFile, cards); err != nil {
		return report, fmt.Errorf("save cards: %w", err)
	}
	l.logger.Info().Int("cards", len(cards)).Msg("Saved card data")

	return report, nil
}

// pageDecoder decodes a page payload down to its deck list.
func pageDecoder() client.Decoder[[]Deck] {
	decode := client.JSONDecoder[DeckData]()
	return func(body []byte) ([]Deck, error) {
		data, err := decode(body)
		if err != nil {
			return nil, err
		}
		return data.Decks, nil
	}
}
