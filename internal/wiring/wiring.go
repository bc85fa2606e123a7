// Package wiring registers all graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/grip/internal/adapters/filelock"
	_ "go.trai.ch/grip/internal/adapters/lockfile"
	_ "go.trai.ch/grip/internal/adapters/logger"
	_ "go.trai.ch/grip/internal/adapters/manifest"
	_ "go.trai.ch/grip/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/grip/internal/app"
)
