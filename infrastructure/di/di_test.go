package di_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands"
	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/services"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/config"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/di"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg, err := config.NewLoader(t.TempDir(), config.Development).Load()
	require.NoError(t, err)
	cfg.Snapshot.Backend = backend
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "mindmap.json")
	cfg.Icons.ProbeEnabled = false
	cfg.Tracing.Enabled = false
	cfg.Events.Enabled = false
	cfg.Autosave.Debounce = time.Hour
	return cfg
}

func TestInitializeContainer_CommandsReachTheGraph(t *testing.T) {
	c, cleanup, err := di.InitializeContainer(context.Background(), testConfig(t, config.BackendMemory))
	require.NoError(t, err)
	defer cleanup()

	require.NoError(t, c.Startup(context.Background()))
	assert.Nil(t, c.Forwarder)
	require.NotNil(t, c.Autosaver)

	out, err := c.CommandBus.Send(context.Background(), commands.CreateNodeCommand{
		Type:     valueobjects.NodeTypePerson,
		Position: valueobjects.Position{X: 10, Y: 20},
	})
	require.NoError(t, err)
	node := out.(*entities.Node)
	assert.Equal(t, "Person", node.Label)
	assert.Equal(t, 1, c.Graph.NodeCount())
	assert.True(t, c.Autosaver.Pending())
}

func TestInitializeContainer_CleanupFlushesAutosave(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	c, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)

	_, err = c.CommandBus.Send(context.Background(), commands.CreateNodeCommand{Type: valueobjects.NodeTypeNote})
	require.NoError(t, err)
	slot := c.Slot
	cleanup()

	data, err := slot.Load(context.Background(), ports.SlotKeyGraph)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"note"`)

	// a fresh container restores what was saved
	c2, cleanup2, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup2()
	require.NoError(t, c2.Startup(context.Background()))
	assert.Equal(t, 1, c2.Graph.NodeCount())
}

func TestInitializeContainer_UnknownBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Snapshot.Backend = "tape"
	_, _, err := di.InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestApplyRuntime(t *testing.T) {
	c, cleanup, err := di.InitializeContainer(context.Background(), testConfig(t, config.BackendMemory))
	require.NoError(t, err)
	defer cleanup()

	rules := []services.IconRule{{Host: "intel.example", Icon: "intel.svg"}}
	c.ApplyRuntime(config.Runtime{
		LogLevel:          "warn",
		EnrichmentEnabled: true,
		EnrichmentTimeout: 2 * time.Second,
		ExtraIconRules:    rules,
		AutosaveDebounce:  50 * time.Millisecond,
	})

	assert.Equal(t, zapcore.WarnLevel, c.LogLevel.Level())
	assert.True(t, c.Enrichment.Enabled())
	assert.Equal(t, 2*time.Second, c.EnrichmentClient.Timeout())
	assert.Contains(t, c.Resolver.Rules(), rules[0])

	c.ApplyRuntime(config.Runtime{LogLevel: "loud"})
	assert.Equal(t, zapcore.WarnLevel, c.LogLevel.Level())
}
