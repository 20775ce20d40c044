package sequencer

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/robolab-sim/engine/internal/sequencer"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
