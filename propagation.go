package rxkafka

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/propagation"
)

// tracePropagator returns the composite propagator used for header-based
// context transport. TraceContext carries traceparent/tracestate per the W3C
// spec and Baggage carries cross-cutting key-value entries.
func tracePropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// InjectTraceContext serializes the active trace context from ctx into record
// headers and returns the resulting header list. Existing headers with the
// same names are replaced, everything else is preserved. Carrier keys are
// applied in sorted order so repeated injections of the same context produce
// identical header lists.
//
// Parameters:
//   - ctx: The context carrying the active span and baggage
//   - headers: The headers to extend; may be nil
//
// Returns:
//   - Headers: The header list including the serialized trace context
//
// When ctx carries no recording span the headers are returned unchanged.
//
// Example:
//
//	rec := rxkafka.NewOutgoing("orders", order)
//	rec.Headers = rxkafka.InjectTraceContext(ctx, rec.Headers)
func InjectTraceContext(ctx context.Context, headers Headers) Headers {
	carrier := propagation.MapCarrier{}
	tracePropagator().Inject(ctx, carrier)

	if len(carrier) == 0 {
		return headers
	}

	keys := make([]string, 0, len(carrier))
	for key := range carrier {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		headers.Set(key, []byte(carrier[key]))
	}
	return headers
}

// ExtractTraceContext deserializes trace context from record headers into a
// child of ctx. It is the inverse of InjectTraceContext and is what
// Incoming.TraceContext uses to continue a trace across the broker hop.
//
// Parameters:
//   - ctx: The parent context; context.Background() is substituted for nil
//   - headers: The consumed record's headers
//
// Returns:
//   - context.Context: A context carrying the remote span context and baggage
//
// Headers that do not belong to the propagation format are ignored; when no
// propagation headers are present the parent context is returned as-is.
func ExtractTraceContext(ctx context.Context, headers Headers) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(headers) == 0 {
		return ctx
	}

	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		// First occurrence wins, mirroring how carriers treat repeated keys.
		if _, exists := carrier[header.Key]; exists {
			continue
		}
		carrier[header.Key] = string(header.Value)
	}

	return tracePropagator().Extract(ctx, carrier)
}
