package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for every span the core
// emits: one per turn, one per tool hop (§4.D).
const TracerName = "github.com/nitroxinteligence/sdr-ia-solarprime-sub004"

// Tracer returns the global tracer for TracerName. Callers get a no-op
// tracer until the process wires a real TracerProvider (exporters are an
// operator concern, out of scope per spec.md §1).
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
