package transit

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"busboard.hk/internal/logging"
	"busboard.hk/internal/models"
)

// LoadCatalog returns the full route list in upstream order. Successful
// loads are cached for the configured TTL; callers get their own copy.
func (s *Service) LoadCatalog(ctx context.Context) ([]models.Route, error) {
	if cached, ok := cacheGet[[]models.Route](s, catalogCacheKey); ok {
		return slices.Clone(cached), nil
	}

	routes, err := call(ctx, s, "catalog", s.policies.Catalog, s.upstream.Routes)
	if err != nil {
		logging.LogError(s.logger, "failed to load route catalog", err)
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	cachePut(s, catalogCacheKey, routes, s.catalogTTL)
	s.metrics.SetCatalogRoutes(len(routes))
	logging.LogOperation(s.logger, "catalog_loaded", slog.Int("routes", len(routes)))
	return slices.Clone(routes), nil
}

// Filter returns the routes whose code contains term, ignoring case, in
// catalog order. An empty term returns the whole catalog.
func Filter(catalog []models.Route, term string) []models.Route {
	term = strings.ToUpper(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(catalog)
	}
	out := make([]models.Route, 0, len(catalog))
	for _, r := range catalog {
		if strings.Contains(strings.ToUpper(r.Route), term) {
			out = append(out, r)
		}
	}
	return out
}

// RouteSearchAlphabet lists the characters that occur in route codes.
const RouteSearchAlphabet = "0123456789ABCDEHIKMNPRSTWX"

// ValidSearchTerm reports whether every character of term can appear in a
// route code. The board uses it to explain an empty result.
func ValidSearchTerm(term string) bool {
	for _, r := range strings.ToUpper(strings.TrimSpace(term)) {
		if !strings.ContainsRune(RouteSearchAlphabet, r) {
			return false
		}
	}
	return true
}
