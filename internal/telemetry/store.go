package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chazuruo/flowdeck/internal/docstore"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// TracedStore records a span for every document store call.
type TracedStore struct {
	next   docstore.Store
	tracer trace.Tracer
}

var _ docstore.Store = (*TracedStore)(nil)

// NewTracedStore wraps next.
func NewTracedStore(next docstore.Store, tracer trace.Tracer) *TracedStore {
	return &TracedStore{next: next, tracer: tracer}
}

func (s *TracedStore) List(ctx context.Context, prefix string, opts docstore.ListOptions) ([]docstore.Entry, error) {
	ctx, span := s.start(ctx, "list", prefix, attribute.Bool("docstore.recursive", opts.Recursive))
	entries, err := s.next.List(ctx, prefix, opts)
	span.SetAttributes(attribute.Int("docstore.entries", len(entries)))
	end(span, err)
	return entries, err
}

func (s *TracedStore) Read(ctx context.Context, path string) ([]byte, error) {
	ctx, span := s.start(ctx, "read", path)
	data, err := s.next.Read(ctx, path)
	span.SetAttributes(attribute.Int("docstore.bytes", len(data)))
	end(span, err)
	return data, err
}

func (s *TracedStore) Write(ctx context.Context, path string, content []byte, opts docstore.WriteOptions) error {
	ctx, span := s.start(ctx, "write", path,
		attribute.Bool("docstore.overwrite", opts.Overwrite),
		attribute.Int("docstore.bytes", len(content)))
	err := s.next.Write(ctx, path, content, opts)
	end(span, err)
	return err
}

func (s *TracedStore) Move(ctx context.Context, oldPath, newPath string, opts docstore.WriteOptions) error {
	ctx, span := s.start(ctx, "move", oldPath,
		attribute.String("docstore.target", newPath),
		attribute.Bool("docstore.overwrite", opts.Overwrite))
	err := s.next.Move(ctx, oldPath, newPath, opts)
	end(span, err)
	return err
}

func (s *TracedStore) Delete(ctx context.Context, path string) error {
	ctx, span := s.start(ctx, "delete", path)
	err := s.next.Delete(ctx, path)
	end(span, err)
	return err
}

func (s *TracedStore) start(ctx context.Context, op, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("docstore.path", path))
	return s.tracer.Start(ctx, "docstore."+op, trace.WithAttributes(attrs...))
}

// end records the store status on the span. Expected answers such as 404 and
// 409 are not span errors.
func end(span trace.Span, err error) {
	status := fderrors.StatusOf(err)
	span.SetAttributes(attribute.Int("docstore.status", status))
	if status >= fderrors.StatusError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
