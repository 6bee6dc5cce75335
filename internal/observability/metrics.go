package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PostsCreated counts successfully stored posts, labelled by the surface that created them.
var PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: ServiceName,
	Name:      "posts_created_total",
	Help:      "Number of posts stored, by origin (api or form).",
}, []string{"origin"})
