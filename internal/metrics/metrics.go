package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsync_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	NotificationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsync_push_notifications_total",
			Help: "Total number of mailbox push notifications received.",
		},
	)
	StaleNotificationsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsync_push_notifications_stale_total",
			Help: "Total number of stale or duplicate push notifications skipped.",
		},
	)
	FetchedMessagesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsync_messages_fetched_total",
			Help: "Total number of new message summaries fetched from history diffs.",
		},
	)
	ClassifiedMessagesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsync_messages_classified_total",
			Help: "Total number of messages classified by AI.",
		},
	)
	QuotaRejectionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsync_ai_quota_rejections_total",
			Help: "Total number of AI calls rejected by the sliding-window quota.",
		},
		[]string{"window"},
	)
	RenewalsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsync_subscription_renewals_total",
			Help: "Total number of watch subscription renewal attempts.",
		},
		[]string{"result"},
	)
	PipelineStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "mailsync_pipeline_step_duration_seconds",
			Help:       "Duration of each step in the mailbox reconciliation pipeline.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
)

func Handler() http.Handler {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(NotificationsCounter)
	prometheus.MustRegister(StaleNotificationsCounter)
	prometheus.MustRegister(FetchedMessagesCounter)
	prometheus.MustRegister(ClassifiedMessagesCounter)
	prometheus.MustRegister(QuotaRejectionsCounter)
	prometheus.MustRegister(RenewalsCounter)
	prometheus.MustRegister(PipelineStepDuration)

	return promhttp.Handler()
}
