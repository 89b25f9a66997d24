package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smsglue"

var (
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_deliveries_total",
			Help:      "Push notifications attempted, by result.",
		},
		[]string{"result"}, // delivered, failed
	)

	DevicesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_pruned_total",
			Help:      "Device registrations removed after a failed push.",
		},
	)

	LiveFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_fetches_total",
			Help:      "Message history fetches that went to the telephony API, by result.",
		},
		[]string{"result"}, // success, error, empty
	)

	MessageCacheReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_cache_reads_total",
			Help:      "Message cache lookups, by outcome.",
		},
		[]string{"outcome"}, // hit, miss
	)

	SegmentsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_sent_total",
			Help:      "Outbound SMS segments, by result.",
		},
		[]string{"result"},
	)

	ProvisionResets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_resets_total",
			Help:      "Provisioning payload resets to the empty account, by reason.",
		},
		[]string{"reason"}, // read, expired
	)

	TelephonyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telephony_request_duration_seconds",
			Help:      "Duration of telephony API calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
