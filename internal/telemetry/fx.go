package telemetry

import "go.uber.org/fx"

// Module wires the Prometheus metrics registry.
var Module = fx.Module("telemetry",
	fx.Provide(NewMetrics),
)
