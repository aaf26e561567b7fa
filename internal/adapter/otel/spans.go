package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "actions-bridge"

// StartCommandSpan starts a span for a spawned process.
func StartCommandSpan(ctx context.Context, name string, argv []string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "command",
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("command.argv", strings.Join(argv, " ")),
		),
	)
}

// StartGitOpSpan starts a span for a git operation.
func StartGitOpSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "git."+op,
		trace.WithAttributes(attribute.String("git.op", op)),
	)
}

// StartFileSpan starts a span for a sandboxed read or write.
func StartFileSpan(ctx context.Context, action, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "file."+action,
		trace.WithAttributes(attribute.String("file.path", path)),
	)
}

// StartPullRequestSpan starts a span for opening a pull request.
func StartPullRequestSpan(ctx context.Context, head, base string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pull_request",
		trace.WithAttributes(
			attribute.String("pr.head", head),
			attribute.String("pr.base", base),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
