package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

type querySpanKey struct{}

// PGXTracer implements pgx.QueryTracer, opening a client span per statement.
type PGXTracer struct{}

// TraceQueryStart opens the span. sqlc prefixes each statement with "-- name: X :kind", which
// becomes the span name when present.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	name, op := statementName(data.SQL)
	ctx, span := otel.Tracer("storefront-checkout/pgx").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	)
	return context.WithValue(ctx, querySpanKey{}, span)
}

// TraceQueryEnd records the outcome and ends the span.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	span.End()
}

func statementName(sql string) (name, op string) {
	trimmed := strings.TrimSpace(sql)
	if rest, ok := strings.CutPrefix(trimmed, "-- name:"); ok {
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			name = "pgx " + fields[0]
		}
		if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
			trimmed = strings.TrimSpace(trimmed[i+1:])
		}
	}
	if fields := strings.Fields(trimmed); len(fields) > 0 {
		op = strings.ToUpper(fields[0])
	}
	switch {
	case name != "":
	case op != "":
		name = "pgx " + strings.ToLower(op)
	default:
		name = "pgx query"
	}
	return name, op
}

func truncateSQL(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > maxStatementLen {
		return trimmed[:maxStatementLen] + "..."
	}
	return trimmed
}
