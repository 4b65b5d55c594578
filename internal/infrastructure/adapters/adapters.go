// Package adapters implements the MarketplaceAdapter interface for each
// supported sales channel. Adapters only translate pushes into API calls and
// classify failures as retryable or permanent; retry policy lives in the
// dispatcher.
package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sellerhub/stocksync/internal/domain"
)

const defaultTimeout = 30 * time.Second

var tracer = otel.Tracer("stocksync/adapters")

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// startCall opens a span for one outbound marketplace call. The returned
// finish records the error, if any, and ends the span.
func startCall(ctx context.Context, marketplace domain.Marketplace, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs, attribute.String("marketplace", string(marketplace)))
	ctx, span := tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}

// classifyStatus maps an API status code onto the adapter error taxonomy.
// Rate limits and server errors are retryable; client errors are not.
func classifyStatus(ctx context.Context, marketplace domain.Marketplace, resp *http.Response) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	message := fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewRetryableError(marketplace, "RATE_LIMITED", message)
	case resp.StatusCode >= 500:
		return domain.NewRetryableError(marketplace, "SERVER_ERROR", message)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewPermanentError(marketplace, "AUTH_FAILED", message)
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewPermanentError(marketplace, "NOT_FOUND", message)
	default:
		return domain.NewPermanentError(marketplace, "REQUEST_REJECTED", message)
	}
}
