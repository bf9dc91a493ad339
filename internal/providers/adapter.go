package providers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/bet-analytics/internal/betting"
	"github.com/jstittsworth/bet-analytics/internal/events"
	"github.com/jstittsworth/bet-analytics/pkg/logger"
)

// Options are shared by every adapter constructor
type Options struct {
	BaseURL           string
	APIKey            string
	Sports            []betting.Sport
	CacheTTL          time.Duration
	Timeout           time.Duration
	RequestsPerSecond int
	MaxAttempts       int
	RetryBackoff      time.Duration
	Breaker           Breaker
	Bus               events.Publisher
	Logger            *logrus.Logger
	Now               func() time.Time
}

func (o Options) sports() []betting.Sport {
	if len(o.Sports) == 0 {
		return []betting.Sport{betting.SportNBA}
	}
	return o.Sports
}

func (o Options) clock() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

// UpdateSummary is the payload of data.updated events
type UpdateSummary struct {
	Source   string           `json:"source"`
	DataType betting.DataType `json:"data_type"`
	Records  int              `json:"records"`
}

// FetchFailure is the payload of data.error events
type FetchFailure struct {
	Source   string           `json:"source"`
	DataType betting.DataType `json:"data_type"`
	Error    string           `json:"error"`
}

// baseAdapter carries the cache and event plumbing common to all adapters
type baseAdapter struct {
	name     string
	dataType betting.DataType
	client   *Client
	cache    *payloadCache
	bus      events.Publisher
	logger   *logrus.Logger
	now      func() time.Time
	sports   []betting.Sport
}

func newBaseAdapter(name string, dataType betting.DataType, opts Options, headers map[string]string) *baseAdapter {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	client := NewClient(ClientConfig{
		Name:              name,
		BaseURL:           opts.BaseURL,
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		MaxAttempts:       opts.MaxAttempts,
		RetryBackoff:      opts.RetryBackoff,
		Headers:           headers,
	}, opts.Breaker, log)

	return &baseAdapter{
		name:     name,
		dataType: dataType,
		client:   client,
		cache:    newPayloadCache(opts.CacheTTL, opts.clock()),
		bus:      opts.Bus,
		logger:   log,
		now:      opts.clock(),
		sports:   opts.sports(),
	}
}

func (a *baseAdapter) Name() string {
	return a.name
}

func (a *baseAdapter) DataType() betting.DataType {
	return a.dataType
}

// Invalidate drops the cached payload so the next Fetch hits the provider
func (a *baseAdapter) Invalidate() {
	a.cache.invalidate()
}

// fetchCached serves from cache while fresh, otherwise calls load and
// publishes the outcome on the bus
func (a *baseAdapter) fetchCached(ctx context.Context, load func(ctx context.Context) (*betting.SourcePayload, error)) (*betting.SourcePayload, error) {
	if cached, ok := a.cache.get(); ok {
		return cached, nil
	}

	payload, err := load(ctx)
	if err != nil {
		logger.WithSource(a.logger, a.name).WithError(err).Warn("Adapter fetch failed")
		if a.bus != nil {
			a.bus.Publish(events.TopicDataError, a.name, FetchFailure{Source: a.name, DataType: a.dataType, Error: err.Error()})
		}
		return nil, err
	}

	payload.Source = a.name
	payload.FetchedAt = a.now()
	a.cache.set(payload)

	logger.WithSource(a.logger, a.name).WithFields(logrus.Fields{
		"records": payload.Len(),
	}).Debug("Adapter fetched fresh data")

	if a.bus != nil {
		a.bus.Publish(events.TopicDataUpdated, a.name, UpdateSummary{Source: a.name, DataType: a.dataType, Records: payload.Len()})
	}
	return payload, nil
}
