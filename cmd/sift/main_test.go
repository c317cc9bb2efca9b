package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sift/internal/adapters/detector"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newProvider(loader *mocks.MockConfigLoader, logger *mocks.MockLogger) ComponentProvider {
	application := app.New(loader, nil, nil, nil, nil, nil, nil, nil, logger, detector.Environment{})
	return func(_ context.Context) (*app.Components, func(), error) {
		return app.NewComponents(application, logger), func() {}, nil
	}
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := newProvider(mocks.NewMockConfigLoader(ctrl), mocks.NewMockLogger(ctrl))

	stdout := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stdout, new(bytes.Buffer), provider)
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "sift version")
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ConfigError verifies that configuration errors are logged and exit 1.
func TestRun_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	logger := mocks.NewMockLogger(ctrl)

	configErr := zerr.Wrap(domain.ErrConfigInvalid, "tier must be 1, 2 or 3")
	loader.EXPECT().Load(gomock.Any()).Return(nil, configErr)
	logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrConfigInvalid)
	})

	exitCode := run(context.Background(), []string{"audit", "--quick"}, new(bytes.Buffer), new(bytes.Buffer), newProvider(loader, logger))
	assert.Equal(t, 1, exitCode)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   int
		expect func(*mocks.MockLogger)
	}{
		{
			name: "strict failures are not logged again",
			err:  zerr.Wrap(domain.ErrStrictFailures, "2 tools crashed"),
			want: 1,
		},
		{
			name: "incomplete coverage",
			err:  errors.Join(domain.ErrToolFailure, errors.New("ui: tests failed")),
			want: 1,
		},
		{
			name: "interrupt",
			err:  errors.Join(domain.ErrAuditAborted, context.Canceled),
			want: exitInterrupted,
			expect: func(l *mocks.MockLogger) {
				l.EXPECT().Warn("audit interrupted")
			},
		},
		{
			name: "anything else",
			err:  errors.New("disk full"),
			want: 1,
			expect: func(l *mocks.MockLogger) {
				l.EXPECT().Error(gomock.Any())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			logger := mocks.NewMockLogger(ctrl)
			if tt.expect != nil {
				tt.expect(logger)
			}
			assert.Equal(t, tt.want, exitCode(tt.err, app.NewComponents(nil, logger)))
		})
	}
}
