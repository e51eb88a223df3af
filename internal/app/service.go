// Package service builds the per-event feature page that the HTML and JSON
// handlers render.
package service

import (
	"context"
	"fmt"

	"github.com/okian/evfeat/internal/adapters/store"
	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
	"github.com/okian/evfeat/pkg/metrics"
)

// NoticeLevel classifies a page notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message shown above the feature sections.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Page is everything one render of the feature page needs.
type Page struct {
	EventID       int64             `json:"event_id"`
	Sections      []feature.Section `json:"sections"`
	Summary       feature.Summary   `json:"summary"`
	Notices       []Notice          `json:"notices"`
	DataAvailable bool              `json:"data_available"`
}

// Service turns remote feature rows into pages. It holds no per-request
// state; every Page call fetches and derives from scratch.
type Service struct {
	store        store.Store
	catalog      *feature.Catalog
	configureURL string
	logger       logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the feature store.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithCatalog sets the feature catalog.
func WithCatalog(c *feature.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithConfigureURL sets the external configuration tool address.
func WithConfigureURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.configureURL = u
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Without options it serves the built-in catalog
// from an empty in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		store:        store.NewMemoryStore(),
		catalog:      feature.DefaultCatalog(),
		configureURL: feature.DefaultConfigureURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	metrics.UpdateCatalogSize(s.catalog.Len())

	return s
}

// Catalog returns the feature catalog the service renders.
func (s *Service) Catalog() *feature.Catalog { return s.catalog }

// Page fetches the rows of eventID and builds the page. A store failure is
// reported as an error notice and the page renders every feature as not
// configured.
func (s *Service) Page(ctx context.Context, eventID int64) Page {
	p := Page{EventID: eventID, Notices: []Notice{}, DataAvailable: true}

	if eventID == feature.UnspecifiedEventID {
		p.Notices = append(p.Notices, Notice{
			Level:   NoticeWarning,
			Message: "Event ID belirtilmedi. Varsayılan olarak 0 kullanılıyor.",
		})
	}

	remote, err := s.store.FetchFeatures(ctx, eventID)
	if err != nil {
		s.logger.Error(ctx, "failed to load event features",
			logger.Int64("event_id", eventID),
			logger.String("driver", s.store.Driver()),
			logger.Error(err))
		p.DataAvailable = false
		p.Notices = append(p.Notices, Notice{
			Level:   NoticeError,
			Message: fmt.Sprintf("Özellikler yüklenirken hata oluştu: %s", err),
		})
		remote = map[string]feature.RemoteFeature{}
	}

	vms := feature.BuildViewModels(s.catalog, remote)
	p.Sections = feature.GroupByCategory(s.catalog, vms)
	p.Summary = feature.Summarize(s.catalog, vms)

	s.logger.Debug(ctx, "built feature page",
		logger.Int64("event_id", eventID),
		logger.Int("remote_rows", len(remote)),
		logger.Int("enabled", p.Summary.EnabledCount))
	metrics.RecordPageRender(p.DataAvailable, p.Summary.EnabledCount)

	return p
}

// ConfigureURL returns the external configuration link of one feature.
func (s *Service) ConfigureURL(eventID int64, key string) (string, feature.Definition, error) {
	d, ok := s.catalog.Lookup(key)
	if !ok {
		return "", feature.Definition{}, fmt.Errorf("%w: %q", feature.ErrUnknownFeature, key)
	}
	u, err := feature.ConfigureURL(s.configureURL, eventID, key)
	if err != nil {
		return "", feature.Definition{}, err
	}
	return u, d, nil
}
