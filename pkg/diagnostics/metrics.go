package diagnostics

import "github.com/prometheus/client_golang/prometheus"

// IssuesTotal counts diagnostics pushed across the process, labeled by
// severity and stable code, so operators can alert on a rising rate of
// e.g. IncompatibleLowerEqualConstraint without scraping logs.
var IssuesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "graphd",
		Subsystem: "diagnostics",
		Name:      "issues_total",
		Help:      "Diagnostics pushed, by severity and code.",
	},
	[]string{"severity", "code"},
)

func init() {
	prometheus.MustRegister(IssuesTotal)
}

// Observe records an issue in IssuesTotal. Call sites typically do this
// from Push/PushIssue wrappers at component boundaries rather than
// inside this package, to keep diagnostics free of a hard Prometheus
// dependency on the hot path of pure functions like Map/Branch.
func Observe(i Issue) {
	IssuesTotal.WithLabelValues(i.Severity.String(), i.Code).Inc()
}

// ObserveBag records every issue in a bag.
func ObserveBag(b *Bag) {
	for _, i := range b.Issues() {
		Observe(i)
	}
}
