package linear_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/linear"
	"go.trai.ch/sift/internal/core/domain"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// play drives one passing and one failing tool through the renderer.
func play(t *testing.T, r *linear.Renderer) {
	t.Helper()
	require.NoError(t, r.Start(context.Background()))

	r.OnPlanEmit(domain.TierQuick, []string{"docs", "imports"}, map[string][]string{"imports": {"docs"}})

	r.OnToolStart("s1", "", "docs", start)
	r.OnToolLog("s1", []byte("checked 12 files\n"))
	r.OnToolComplete("s1", start.Add(1500*time.Millisecond), nil)

	r.OnToolStart("s2", "", "imports", start)
	r.OnToolLog("s2", []byte("internal/ui/view.go: unused \"fmt\"\ninternal/ui/"))
	r.OnToolLog("s2", []byte("model.go: unused \"os\""))
	r.OnToolComplete("s2", start.Add(250*time.Millisecond), domain.ErrToolFailure)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Wait())
}

func TestRenderer_Golden(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name string
		opts []linear.Option
	}{
		{name: "linear"},
		{name: "quiet", opts: []linear.Option{linear.WithQuiet()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			play(t, linear.NewRenderer(&stdout, &stderr, tt.opts...))

			g := goldie.New(t)
			g.Assert(t, tt.name+"_stdout", stdout.Bytes())
			g.Assert(t, tt.name+"_stderr", stderr.Bytes())
		})
	}
}

func TestRenderer_PartialLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnToolStart("s1", "", "docs", start)
	r.OnToolLog("s1", []byte("partial"))
	assert.NotContains(t, stdout.String(), "partial")

	r.OnToolLog("s1", []byte(" line\r\n"))
	assert.Equal(t, "[docs] partial line\n", stdout.String())

	r.OnToolLog("s1", []byte("tail"))
	require.NoError(t, r.Stop())
	assert.Equal(t, "[docs] partial line\n[docs] tail\n", stdout.String())
}

func TestRenderer_UnknownSpan(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnToolLog("ghost", []byte("line\n"))
	r.OnToolComplete("ghost", start, nil)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRenderer_ConcurrentTools(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnToolStart("a", "", "alpha", start)
	r.OnToolStart("b", "", "beta", start)
	r.OnToolLog("a", []byte("one "))
	r.OnToolLog("b", []byte("two\n"))
	r.OnToolLog("a", []byte("three\n"))

	assert.Equal(t, "[beta] two\n[alpha] one three\n", stdout.String())
}
