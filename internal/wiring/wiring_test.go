package wiring_test

import (
	"context"
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/require"
	"go.trai.ch/grip/internal/adapters/telemetry/progrock"
	"go.trai.ch/grip/internal/app"
	"go.trai.ch/grip/internal/core/ports"
	_ "go.trai.ch/grip/internal/wiring" // Register providers
)

func TestApplicationGraph(t *testing.T) {
	components, _, err := graft.ExecuteFor[*app.Components](context.Background())
	require.NoError(t, err)
	require.NotNil(t, components)
	require.NotNil(t, components.App)
	require.NotNil(t, components.Logger)
}

func TestTracerNodeRecordsProgress(t *testing.T) {
	tracer, _, err := graft.ExecuteFor[ports.Tracer](context.Background())
	require.NoError(t, err)

	_, ok := tracer.(*progrock.Recorder)
	require.True(t, ok, "expected the progress recorder, got %T", tracer)
}
