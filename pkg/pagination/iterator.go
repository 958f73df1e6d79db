package pagination

import (
	"context"
	"iter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPageSize is used when no page size is configured.
	DefaultPageSize = 50

	// MaxPages is the hard ceiling on list requests per iteration.
	MaxPages = 1000
)

// Config holds iterator configuration.
type Config struct {
	// PageSize is the number of items requested per page.
	PageSize int
	// Limit stops iteration after this many items (0 = no limit).
	Limit int
	// MaxPages caps the number of list requests. Values <= 0 or above
	// MaxPages fall back to MaxPages.
	MaxPages int
	// Logger receives debug events about page fetches.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default iterator configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		MaxPages: MaxPages,
	}
}

// Option modifies an iterator Config.
type Option func(*Config)

// WithPageSize sets the page size.
func WithPageSize(size int) Option {
	return func(c *Config) { c.PageSize = size }
}

// WithLimit stops iteration after n items.
func WithLimit(n int) Option {
	return func(c *Config) { c.Limit = n }
}

// WithMaxPages lowers the page ceiling.
func WithMaxPages(n int) Option {
	return func(c *Config) { c.MaxPages = n }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) { c.Logger = &logger }
}

// State is the iterator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateFetchingPage
	StateYielding
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingPage:
		return "fetching_page"
	case StateYielding:
		return "yielding"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Iterator lazily walks consecutive pages of a PageFetcher.
//
// Use it either with Next/Item/Err:
//
//	for it.Next() {
//		use(it.Item())
//	}
//	if err := it.Err(); err != nil { ... }
//
// or with range over All. An Iterator is not safe for concurrent use.
type Iterator[T any] struct {
	ctx     context.Context
	fetcher PageFetcher[T]
	config  Config
	logger  zerolog.Logger

	state    State
	page     int // last requested page
	buffer   []T
	index    int
	yielded  int
	total    int64
	hasTotal bool
	lastPage bool

	item T
	err  error
}

// New creates an iterator. No request is made until the first call to Next.
func New[T any](ctx context.Context, fetcher PageFetcher[T], opts ...Option) *Iterator[T] {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.MaxPages <= 0 || config.MaxPages > MaxPages {
		config.MaxPages = MaxPages
	}

	logger := log.With().Str("component", "pagination").Logger()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Iterator[T]{
		ctx:     ctx,
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// Next advances to the next item, fetching the next page when the buffered
// one is exhausted. It returns false when iteration is finished or a fetch
// failed; check Err to tell the two apart.
func (it *Iterator[T]) Next() bool {
	for {
		if it.state == StateFinished {
			return false
		}

		if it.config.Limit > 0 && it.yielded >= it.config.Limit {
			it.finish("limit_reached")
			return false
		}
		if it.hasTotal && int64(it.yielded) >= it.total {
			it.finish("total_reached")
			return false
		}

		if it.index < len(it.buffer) {
			var zero T
			it.item = it.buffer[it.index]
			it.buffer[it.index] = zero
			it.index++
			it.yielded++
			it.state = StateYielding
			return true
		}

		if it.lastPage {
			it.finish("short_page")
			return false
		}
		if it.page >= it.config.MaxPages {
			it.logger.Debug().Int("max_pages", it.config.MaxPages).Msg("Reached page safety limit")
			it.finish("max_pages")
			return false
		}

		if !it.fetchNextPage() {
			return false
		}
	}
}

// fetchNextPage replaces the buffer with the next page.
func (it *Iterator[T]) fetchNextPage() bool {
	it.page++
	it.state = StateFetchingPage
	it.buffer = nil
	it.index = 0

	it.logger.Debug().
		Int("page", it.page).
		Int("size", it.config.PageSize).
		Msg("Fetching page")

	page, err := it.fetcher.FetchPage(it.ctx, it.page, it.config.PageSize)
	if err != nil {
		it.logger.Debug().Err(err).Int("page", it.page).Msg("Page fetch failed")
		it.err = err
		it.finish("error")
		return false
	}
	PagesFetched.Inc()

	if page == nil {
		it.finish("short_page")
		return false
	}

	if it.page == 1 && page.Total != nil {
		it.total = *page.Total
		it.hasTotal = true
	}

	it.buffer = page.Items
	if len(page.Items) < it.config.PageSize {
		it.lastPage = true
	}

	it.logger.Debug().
		Int("page", it.page).
		Int("items", len(page.Items)).
		Bool("last_page", it.lastPage).
		Msg("Page fetched")

	return true
}

func (it *Iterator[T]) finish(reason string) {
	if it.state == StateFinished {
		return
	}
	it.state = StateFinished
	it.buffer = nil
	IterationsFinished.WithLabelValues(reason).Inc()
	it.logger.Debug().
		Str("reason", reason).
		Int("pages", it.page).
		Int("yielded", it.yielded).
		Msg("Iteration finished")
}

// Item returns the current item. Only valid after Next returned true.
func (it *Iterator[T]) Item() T { return it.item }

// Err returns the error that terminated iteration, if any.
func (it *Iterator[T]) Err() error { return it.err }

// State returns the current lifecycle state.
func (it *Iterator[T]) State() State { return it.state }

// PagesFetched returns the number of list requests issued so far.
func (it *Iterator[T]) PagesFetched() int { return it.page }

// Yielded returns the number of items produced so far.
func (it *Iterator[T]) Yielded() int { return it.yielded }

// Total returns the total reported by the first page, if any.
func (it *Iterator[T]) Total() (int64, bool) { return it.total, it.hasTotal }

// Stop finishes the iteration early and drops the buffered page.
func (it *Iterator[T]) Stop() { it.finish("stopped") }

// All returns the remaining items as a range-over-func sequence. A fetch
// error is delivered as the final element with a zero item. Breaking out of
// the loop issues no further requests.
func (it *Iterator[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for it.Next() {
			if !yield(it.item, nil) {
				return
			}
		}
		if it.err != nil {
			var zero T
			yield(zero, it.err)
		}
	}
}

// Collect drains the iterator into a slice. On error it returns the items
// gathered before the failing page together with the error.
func Collect[T any](it *Iterator[T]) ([]T, error) {
	var items []T
	for it.Next() {
		items = append(items, it.Item())
	}
	return items, it.Err()
}
