package songs

import "github.com/prometheus/client_golang/prometheus"

var (
	generatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songs_generated_total",
			Help: "Songs persisted by genre",
		},
		[]string{"genre"},
	)

	failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songs_generation_failures_total",
			Help: "Genre pipelines that ended in a terminal failure, by stage",
		},
		[]string{"stage"},
	)

	duplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "songs_candidate_duplicates_total",
			Help: "Recommended candidates rejected as already generated",
		},
	)
)

func init() {
	prometheus.MustRegister(generatedTotal)
	prometheus.MustRegister(failuresTotal)
	prometheus.MustRegister(duplicatesTotal)
}
