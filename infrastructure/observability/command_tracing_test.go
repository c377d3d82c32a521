package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/observability"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

type pingCommand struct {
	fail bool
}

func (pingCommand) Validate() error { return nil }

func TestCommandTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	b := bus.NewCommandBus(observability.CommandTracing(tp.Tracer("test")))
	b.MustRegister(pingCommand{}, bus.CommandHandlerFunc(func(_ context.Context, c bus.Command) (interface{}, error) {
		if c.(pingCommand).fail {
			return nil, pkgerrors.NewNotFoundError("node", "n9")
		}
		return "pong", nil
	}))

	out, err := b.Send(context.Background(), pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	_, err = b.Send(context.Background(), pingCommand{fail: true})
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "command.pingCommand", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	var errType string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "error.type" {
			errType = kv.Value.AsString()
		}
	}
	assert.Equal(t, string(pkgerrors.ErrorTypeNotFound), errType)
}
