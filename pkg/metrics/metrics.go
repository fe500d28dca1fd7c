package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "phishbowl", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "phishbowl", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	GmailTokenRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "phishbowl", Name: "gmail_token_refreshes_total", Help: "Number of gmail access-token refreshes performed against the provider."},
	)
	GmailInvalidGrants = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "phishbowl", Name: "gmail_invalid_grants_total", Help: "Number of gmail credentials cleared because the provider rejected the grant."},
	)
	GmailMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "phishbowl", Name: "gmail_identity_mismatches_total", Help: "Number of gmail connections torn down because the mailbox did not match the account."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(GmailTokenRefreshes)
	reg.MustRegister(GmailInvalidGrants)
	reg.MustRegister(GmailMismatches)
}
