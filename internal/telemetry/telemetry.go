package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type Controller struct {
	traceProvider *sdktrace.TracerProvider
}

// Init installs a global tracer provider exporting to the Jaeger collector
// at endpoint. With no endpoint, spans are recorded nowhere.
func Init(serviceName, endpoint string) (*Controller, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if endpoint == "" {
		log.Println("[TELEMETRY] [INFO] JAEGER_ENDPOINT not set, tracing disabled")
		return &Controller{}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return &Controller{traceProvider: tp}, nil
}

func (c *Controller) Shutdown(ctx context.Context) error {
	if c == nil || c.traceProvider == nil {
		return nil
	}
	return c.traceProvider.Shutdown(ctx)
}
