package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grip/internal/adapters/telemetry/progrock"
	"go.trai.ch/grip/internal/core/ports"
)

const NodeID graft.ID = "adapter.tracer"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			// Fetch progress by default; settings or --telemetry swap in
			// the otel or no-op tracer after wiring.
			return progrock.New(), nil
		},
	})
}
