package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupsTotal counts successful account creations.
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_signups_total",
		Help: "Total number of accounts created",
	})

	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_logins_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	// ArticlesCreatedTotal counts created articles.
	ArticlesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_articles_created_total",
		Help: "Total number of articles created",
	})

	// UploadRejectionsTotal counts rejected image uploads by reason.
	UploadRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_upload_rejections_total",
		Help: "Total number of rejected image uploads by reason",
	}, []string{"reason"})
)
