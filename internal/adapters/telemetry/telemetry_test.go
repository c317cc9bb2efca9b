package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/sift/internal/adapters/telemetry"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newTracer(t *testing.T, renderer ports.Renderer) (*telemetry.OTelTracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)),
		sdktrace.WithSpanProcessor(recorder),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return telemetry.NewOTelTracerWithProvider(tp, "test").WithRenderer(renderer), recorder
}

func TestTracer_SpanLifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tracer, recorder := newTracer(t, renderer)

	var spanID string
	gomock.InOrder(
		renderer.EXPECT().OnToolStart(gomock.Any(), "", "imports", gomock.Any()).
			Do(func(id, _, _ string, _ time.Time) { spanID = id }),
		renderer.EXPECT().OnToolLog(gomock.Any(), []byte("2 unused imports\n")).
			Do(func(id string, _ []byte) { assert.Equal(t, spanID, id) }),
		renderer.EXPECT().OnToolComplete(gomock.Any(), gomock.Any(), gomock.Any()).
			Do(func(id string, _ time.Time, err error) {
				assert.Equal(t, spanID, id)
				require.Error(t, err)
				assert.Equal(t, "tool reported failures", err.Error())
			}),
	)

	_, span := tracer.Start(context.Background(), "imports")
	n, err := span.Write([]byte("2 unused imports\n"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	span.SetAttribute("sift.tier", 1)
	span.SetAttribute("sift.cached", false)
	span.SetAttribute("sift.domains", []string{"core", "ui"})
	span.RecordError(domain.ErrToolFailure)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := map[string]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "1", attrs["sift.tier"])
	assert.Equal(t, "false", attrs["sift.cached"])
	assert.Equal(t, `["core","ui"]`, attrs["sift.domains"])
}

func TestTracer_ChildSpanCarriesParent(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tracer, _ := newTracer(t, renderer)

	var parentID string
	renderer.EXPECT().OnToolStart(gomock.Any(), "", "tier 1", gomock.Any()).
		Do(func(id, _, _ string, _ time.Time) { parentID = id })
	renderer.EXPECT().OnToolStart(gomock.Any(), gomock.Any(), "docs", gomock.Any()).
		Do(func(_, parent, _ string, _ time.Time) { assert.Equal(t, parentID, parent) })
	renderer.EXPECT().OnToolComplete(gomock.Any(), gomock.Any(), nil).Times(2)

	ctx, root := tracer.Start(context.Background(), "tier 1")
	_, child := tracer.Start(ctx, "docs")
	child.End()
	root.End()
}

func TestTracer_QuietSpansAreHidden(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tracer, recorder := newTracer(t, renderer)

	// No renderer call is expected.
	_, span := tracer.Start(context.Background(), "fingerprint", ports.WithQuiet())
	_, _ = span.Write([]byte("noise"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "log", ended[0].Events()[0].Name)
}

func TestTracer_EmitPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	renderer := mocks.NewMockRenderer(ctrl)
	tracer, _ := newTracer(t, renderer)

	deps := map[string][]string{"report": {"imports"}}
	renderer.EXPECT().OnPlanEmit(domain.TierStandard, []string{"imports", "report"}, deps)

	tracer.EmitPlan(context.Background(), domain.TierStandard, []string{"imports", "report"}, deps)
}

func TestTracer_WithoutRenderer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := telemetry.NewOTelTracerWithProvider(tp, "test")

	_, span := tracer.Start(context.Background(), "docs")
	_, _ = span.Write([]byte("hello"))
	span.RecordError(nil)
	span.SetAttribute("other", struct{ A int }{1})
	span.End()
	tracer.EmitPlan(context.Background(), domain.TierQuick, []string{"docs"}, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "hello", ended[0].Events()[0].Attributes[0].Value.AsString())
	assert.Equal(t, "{1}", ended[0].Attributes()[0].Value.AsString())
}

func TestBridge_NilRenderer(t *testing.T) {
	bridge := telemetry.NewBridge(nil)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))

	_, span := tp.Tracer("test").Start(context.Background(), "span")
	span.End()

	require.NoError(t, bridge.ForceFlush(context.Background()))
	require.NoError(t, bridge.Shutdown(context.Background()))
}

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()

	got, span := tracer.Start(ctx, "x", ports.WithQuiet())
	assert.Equal(t, ctx, got)
	n, err := span.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	span.SetAttribute("k", "v")
	span.RecordError(errors.New("boom"))
	span.End()
	tracer.EmitPlan(ctx, domain.TierQuick, nil, nil)
}
