package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/grip/internal/adapters/filelock"  //nolint:depguard // Wired in app layer
	"go.trai.ch/grip/internal/adapters/lockfile"  //nolint:depguard // Wired in app layer
	"go.trai.ch/grip/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/grip/internal/adapters/manifest"  //nolint:depguard // Wired in app layer
	"go.trai.ch/grip/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/grip/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components bundles the app with the adapters the CLI layer needs
// directly.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			manifest.NodeID,
			lockfile.NodeID,
			filelock.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			manifests, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			lockfiles, err := graft.Dep[*lockfile.Manager](ctx)
			if err != nil {
				return nil, err
			}
			locks, err := graft.Dep[ports.LockProvider](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			return New(manifests, lockfiles, locks, log, tracer), nil
		},
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{AppNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log}, nil
		},
	})
}
