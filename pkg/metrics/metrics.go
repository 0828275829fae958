package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FeedItemsArchived = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "projecto", Name: "feed_items_archived_total", Help: "Number of feed items moved out of the live window by the archive sweep."},
	)
	CommentsCascadeDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "projecto", Name: "comments_cascade_deleted_total", Help: "Number of comments deleted by parent cascades."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "projecto", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "projecto", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(FeedItemsArchived)
	reg.MustRegister(CommentsCascadeDeleted)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
