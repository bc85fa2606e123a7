package lockfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grip/internal/adapters/logger"
	"go.trai.ch/grip/internal/core/ports"
)

const NodeID graft.ID = "adapter.lockfile_manager"

func init() {
	graft.Register(graft.Node[*Manager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Manager, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewManager(log), nil
		},
	})
}
