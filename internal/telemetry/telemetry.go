// Package telemetry sets up OpenTelemetry tracing for flowdeck.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/chazuruo/flowdeck/internal/log"
)

// Exporter names accepted by Setup.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TracerName is the instrumentation scope of flowdeck spans.
const TracerName = "github.com/chazuruo/flowdeck"

// Options configures Setup.
type Options struct {
	Exporter    string
	Endpoint    string
	ServiceName string

	// Writer receives stdout spans. Defaults to os.Stderr.
	Writer io.Writer
}

// Provider owns the tracer provider and its shutdown.
type Provider struct {
	tp     trace.TracerProvider
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Setup builds the tracer provider for opts and installs it globally.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	var exporter sdktrace.SpanExporter
	switch opts.Exporter {
	case "", ExporterNone:
		tp := noop.NewTracerProvider()
		return &Provider{tp: tp, tracer: tp.Tracer(TracerName)}, nil
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	case ExporterOTLP:
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if opts.Endpoint != "" {
			clientOpts = append(clientOpts, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}
		exp, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}

	name := opts.ServiceName
	if name == "" {
		name = "flowdeck"
	}
	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(sdk)
	log.Debug(log.CatConfig, "tracing enabled", "exporter", opts.Exporter, "service", name)
	return &Provider{tp: sdk, sdk: sdk, tracer: sdk.Tracer(TracerName)}, nil
}

// Tracer returns the flowdeck tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
