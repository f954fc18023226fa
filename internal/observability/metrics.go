// Package observability wires tracing and pipeline metrics. This file
// declares the Prometheus collectors specific to the message pipeline; HTTP
// traffic metrics live in the middleware package. Label sets are kept small
// and bounded (outcome and intent kind only) so cardinality stays flat no
// matter how many senders talk to the coach.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// MessagesProcessed counts webhook deliveries by pipeline outcome:
	// received, duplicate, no_message_id, no_valid_input, error.
	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_messages_total",
			Help: "Webhook deliveries handled by the message pipeline, by outcome.",
		},
		[]string{"outcome"},
	)

	// TranscriptionsDegraded counts voice notes that fell back to a
	// placeholder transcript (missing credential or service failure).
	TranscriptionsDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_transcriptions_degraded_total",
			Help: "Voice-note transcriptions that degraded to a placeholder.",
		},
	)

	// FallbackReplies counts replies drawn from the canned pool because the
	// chat completion failed.
	FallbackReplies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_fallback_replies_total",
			Help: "Replies served from the canned fallback pool.",
		},
	)

	// IntentsDetected counts classified reminder/goal intents. Detected
	// intents are logged only; nothing is persisted downstream yet.
	IntentsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_intents_detected_total",
			Help: "Actionable intents detected in conversation transcripts, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(MessagesProcessed, TranscriptionsDegraded, FallbackReplies, IntentsDetected)
}
