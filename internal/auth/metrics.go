package auth

import "github.com/prometheus/client_golang/prometheus"

var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Authorization code exchanges by result",
		},
		[]string{"result"},
	)

	refreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refresh_total",
			Help: "Token refresh attempts by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(loginsTotal)
	prometheus.MustRegister(refreshesTotal)
}
