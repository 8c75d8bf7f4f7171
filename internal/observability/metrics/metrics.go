package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	RequestSignatureChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_signature_checks_total",
			Help: "Signed-request validations by result.",
		},
		[]string{"service", "result"},
	)

	RateLimitDropsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_drops_total",
			Help: "Requests rejected by the per-client sliding window.",
		},
		[]string{"service"},
	)

	AuthRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"service", "result"},
	)

	AuthLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"service", "result"},
	)

	LockoutRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_lockout_rejections_total",
			Help: "Logins rejected while a client key is locked out.",
		},
		[]string{"service"},
	)

	CaptchaValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captcha_validations_total",
			Help: "CAPTCHA validations by result.",
		},
		[]string{"service", "result"},
	)

	AccountWipesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_wipes_total",
			Help: "Completed account wipe requests.",
		},
		[]string{"service"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)
	RequestSignatureChecksTotal = RequestSignatureChecksTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	RateLimitDropsTotal = RateLimitDropsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	AuthRegistrationsTotal = AuthRegistrationsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	AuthLoginsTotal = AuthLoginsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	LockoutRejectionsTotal = LockoutRejectionsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	CaptchaValidationsTotal = CaptchaValidationsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	AccountWipesTotal = AccountWipesTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		RequestSignatureChecksTotal,
		RateLimitDropsTotal,
		AuthRegistrationsTotal,
		AuthLoginsTotal,
		LockoutRejectionsTotal,
		CaptchaValidationsTotal,
		AccountWipesTotal,
	)
}
