package filelock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grip/internal/core/ports"
)

const NodeID graft.ID = "adapter.lock_provider"

func init() {
	graft.Register(graft.Node[ports.LockProvider]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.LockProvider, error) {
			return New(), nil
		},
	})
}
