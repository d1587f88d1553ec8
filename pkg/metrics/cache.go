package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics counts user cache lookups by outcome.
type CacheMetrics struct {
	lookups *prometheus.CounterVec
}

// Cache lookup outcomes
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// NewCacheMetrics registers the cache metrics on the provided registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "user_cache_lookups_total",
		Help: "User cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(lookups)
	return &CacheMetrics{lookups: lookups}
}

// Inc records one lookup with the given result.
func (c *CacheMetrics) Inc(result string) {
	if c == nil || c.lookups == nil {
		return
	}
	c.lookups.WithLabelValues(normalizeLabel(result)).Inc()
}
