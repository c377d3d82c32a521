package observability

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Steiynbrodt/Osint-Mindmap/application/commands/bus"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// CommandTracing opens a span around every command the bus executes
func CommandTracing(tracer trace.Tracer) bus.Middleware {
	return func(next bus.CommandHandler) bus.CommandHandler {
		return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			name := reflect.TypeOf(cmd).Name()
			ctx, span := tracer.Start(ctx, "command."+name,
				trace.WithAttributes(attribute.String("command.name", name)))
			defer span.End()

			result, err := next.Handle(ctx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				if appErr := pkgerrors.GetAppError(err); appErr != nil {
					span.SetAttributes(attribute.String("error.type", string(appErr.Type)))
				}
			}
			return result, err
		})
	}
}
