package wheel

import "expvar"

var (
	metricJoinTotal  = expvar.NewInt("join_total")
	metricJoinErrors = expvar.NewInt("join_errors_total")

	metricDrawsTotal = expvar.NewInt("draws_total")

	metricSSEConnectionsTotal  = expvar.NewInt("sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("sse_connections_active")
)
