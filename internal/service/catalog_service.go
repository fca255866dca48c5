package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"storefront/internal/cache"
	"storefront/internal/domain"

	"go.uber.org/zap"
)

// Page is the outcome of one catalog fetch. Products carries the page after
// the client-side rating filter; Unfiltered is the raw page length as the
// server returned it, so callers can tell a filter-shortened page from an
// exhausted catalog.
type Page struct {
	Products   []domain.Product
	Unfiltered int
	Total      int
}

// CatalogService builds filtered, paginated catalog queries and accumulates
// their results.
type CatalogService interface {
	Fetch(ctx context.Context, q domain.Query) (*Page, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	List() []domain.Product
	Query() domain.Query
	ClearFilters()
}

type catalogService struct {
	gw       Doer
	pages    *cache.Cache
	pageSize int
	logger   *zap.Logger

	mu          sync.Mutex
	query       domain.Query
	accumulated []domain.Product
	generation  uint64 // bumped per fetch; stale responses are discarded
	applied     uint64 // newest generation merged into accumulated state
}

// NewCatalogService creates a catalog service whose successful query results
// stay fresh for ttl (identical queries within that window skip the network).
func NewCatalogService(gw Doer, pages *cache.Cache, pageSize int, logger *zap.Logger) CatalogService {
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	return &catalogService{
		gw:       gw,
		pages:    pages,
		pageSize: pageSize,
		logger:   logger,
		query:    domain.Query{Page: 1, Limit: pageSize},
	}
}

// productsResponse is the wire shape of GET /products.
type productsResponse struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

// Fetch runs the query. Page 1 replaces the accumulated list; later pages
// append; either way the list is de-duplicated by product id afterwards.
// The rating filter is re-applied client-side to whatever the server
// returned; a page can therefore come back shorter than requested.
func (s *catalogService) Fetch(ctx context.Context, q domain.Query) (*Page, error) {
	if q.Limit < 1 {
		q.Limit = s.pageSize
	}
	q = q.Normalize()
	key := q.Key()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.query = q
	s.mu.Unlock()

	if cached, ok := s.pages.Get(key); ok {
		resp := cached.(productsResponse)
		s.logger.Debug("Catalog query served from cache", zap.String("key", key))
		return s.apply(resp, q, gen), nil
	}

	var resp productsResponse
	if err := s.gw.Do(ctx, http.MethodGet, "/products?"+key, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	s.pages.Set(key, resp)

	return s.apply(resp, q, gen), nil
}

// Get fetches a single product by id.
func (s *catalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	if err := s.gw.Do(ctx, http.MethodGet, "/products/"+id, nil, &product); err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return &product, nil
}

// List returns a copy of the accumulated product list.
func (s *catalogService) List() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.accumulated))
	copy(out, s.accumulated)
	return out
}

// Query returns the current query parameters.
func (s *catalogService) Query() domain.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// ClearFilters resets every filter and the page to 1, and drops cached pages
// so the next fetch hits the network.
func (s *catalogService) ClearFilters() {
	s.mu.Lock()
	s.query = domain.Query{Page: 1, Limit: s.pageSize}
	s.accumulated = nil
	s.mu.Unlock()
	s.pages.Purge()
}

// apply merges one response into accumulated state unless a newer fetch has
// already landed, and returns the filtered page either way.
func (s *catalogService) apply(resp productsResponse, q domain.Query, gen uint64) *Page {
	filtered := filterByRating(resp.Products, q.Rating)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.applied {
		// An older in-flight response resolved after a newer one; do not
		// let it overwrite fresher accumulated state.
		s.logger.Debug("Discarding stale catalog response",
			zap.Uint64("generation", gen),
			zap.Uint64("applied", s.applied),
		)
		return &Page{Products: filtered, Unfiltered: len(resp.Products), Total: resp.Total}
	}
	s.applied = gen

	if q.Page <= 1 {
		s.accumulated = filtered
	} else {
		s.accumulated = append(s.accumulated, filtered...)
	}
	s.accumulated = dedupeByID(s.accumulated)

	return &Page{Products: filtered, Unfiltered: len(resp.Products), Total: resp.Total}
}

// filterByRating applies the rating filter to a server page.
func filterByRating(products []domain.Product, f domain.RatingFilter) []domain.Product {
	if f.IsZero() {
		return products
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p.Rating) {
			out = append(out, p)
		}
	}
	return out
}

// dedupeByID collapses repeated product ids to a single entry carrying the
// latest occurrence's data. A product straddling two fetched pages (say the
// catalog shifted between fetches) must not render twice.
func dedupeByID(products []domain.Product) []domain.Product {
	latest := make(map[string]domain.Product, len(products))
	order := make([]string, 0, len(products))
	for _, p := range products {
		if _, seen := latest[p.ID]; !seen {
			order = append(order, p.ID)
		}
		latest[p.ID] = p
	}
	out := make([]domain.Product, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out
}
