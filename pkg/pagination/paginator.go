package pagination

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/canvas-assignments/pkg/client"
	"github.com/Sternrassler/canvas-assignments/pkg/record"
)

var (
	canvasPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_pages_fetched_total",
		Help: "Total number of list pages fetched",
	})

	canvasRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_records_yielded_total",
		Help: "Total number of records yielded by the paginator",
	})
)

// Fetcher issues a single GET with retries. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, params url.Values) (*client.Response, error)
}

// Paginator follows rel="next" links and flattens pages into records.
type Paginator struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// New creates a paginator on top of fetcher.
func New(fetcher Fetcher) *Paginator {
	return &Paginator{
		fetcher: fetcher,
		logger:  log.With().Str("component", "paginator").Logger(),
	}
}

// All returns the records of every page starting at rawURL.
//
// params are sent with the first request only. A failed page yields a single
// (nil, err) pair and ends the sequence; err is an *client.HTTPError for
// non-2xx responses.
func (p *Paginator) All(ctx context.Context, rawURL string, params url.Values) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		next := rawURL
		query := params
		page := 0

		for next != "" {
			page++

			resp, err := p.fetcher.Fetch(ctx, next, query)
			if err != nil {
				yield(nil, fmt.Errorf("fetch page %d: %w", page, err))
				return
			}
			if err := resp.StatusError(); err != nil {
				yield(nil, err)
				return
			}
			canvasPagesTotal.Inc()

			records, err := p.decodePage(resp)
			if err != nil {
				yield(nil, fmt.Errorf("page %d: %w", page, err))
				return
			}

			next = NextLink(resp.Header)
			query = nil

			p.logger.Debug().
				Int("page", page).
				Int("records", len(records)).
				Bool("has_next", next != "").
				Msg("Fetched page")

			for _, r := range records {
				canvasRecordsTotal.Inc()
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// decodePage turns an array body into its object elements and an object body
// into a single record.
func (p *Paginator) decodePage(resp *client.Response) ([]record.Record, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}

	body, err := resp.Decode()
	if err != nil {
		return nil, err
	}

	switch v := body.(type) {
	case nil:
		return nil, nil
	case []any:
		records := make([]record.Record, 0, len(v))
		for i, item := range v {
			r, ok := record.FromValue(item)
			if !ok {
				p.logger.Warn().
					Int("index", i).
					Str("type", fmt.Sprintf("%T", item)).
					Msg("Skipping non-object list element")
				continue
			}
			records = append(records, r)
		}
		return records, nil
	case map[string]any:
		return []record.Record{record.Record(v)}, nil
	default:
		return nil, fmt.Errorf("unexpected response body type %T", body)
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[record.Record, error]) ([]record.Record, error) {
	var records []record.Record
	for r, err := range seq {
		if err != nil {
			return records, err
		}
		records = append(records, r)
	}
	return records, nil
}
