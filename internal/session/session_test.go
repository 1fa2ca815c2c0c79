package session

import (
	"bytes"
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/testutil/fakemodbus"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionStartsHealthy(t *testing.T) {
	dialer := fakemodbus.NewDialer()

	s, err := New(context.Background(), dialer, "plc:502", time.Second, logging.NewNop())
	require.NoError(t, err)

	assert.True(t, s.Healthy())
	assert.True(t, s.Connected())
	assert.Equal(t, KeepAlivePeriod, dialer.Handles()[0].KeepAlive())
	assert.Contains(t, s.String(), "|plc:502")

	info := s.Info()
	assert.Equal(t, s.ID().String(), info.ID)
	assert.True(t, info.IsHealthy)
}

func TestKeepAliveFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.Config{Enabled: true, Level: "warn", Output: &buf}, "")
	dialer := fakemodbus.NewDialer()
	dialer.KeepAliveErr = errors.New("not permitted")

	s, err := New(context.Background(), dialer, "plc:502", time.Second, logger)
	require.NoError(t, err)
	assert.True(t, s.Healthy())
	assert.Contains(t, buf.String(), "Failed to tune keep-alive")
}

func TestCloseIsIdempotent(t *testing.T) {
	dialer := fakemodbus.NewDialer()
	s, err := New(context.Background(), dialer, "plc:502", time.Second, logging.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, int64(1), dialer.Closes())
	assert.False(t, s.Healthy())
	assert.False(t, s.Connected())
}

func TestHealthFlag(t *testing.T) {
	s, err := New(context.Background(), fakemodbus.NewDialer(), "plc:502", time.Second, logging.NewNop())
	require.NoError(t, err)

	s.MarkUnhealthy()
	assert.False(t, s.Healthy())
	s.SetHealthy(true)
	assert.True(t, s.Healthy())
}

func TestDialTimeout(t *testing.T) {
	dialer := fakemodbus.NewDialer()
	dialer.DialDelay = time.Second

	_, err := New(context.Background(), dialer, "plc:502", 20*time.Millisecond, logging.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConnectTimeout), "got %v", err)
}

func TestDialCanceled(t *testing.T) {
	dialer := fakemodbus.NewDialer()
	dialer.DialDelay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := New(ctx, dialer, "plc:502", 5*time.Second, logging.NewNop())
	require.Error(t, err)
	assert.True(t, apperrors.IsCanceled(err), "got %v", err)
	assert.False(t, errors.Is(err, apperrors.ErrConnectTimeout))
}

func TestDialRefusedIsTransportError(t *testing.T) {
	dialer := fakemodbus.NewDialer()
	dialer.DialErr = syscall.ECONNREFUSED

	_, err := New(context.Background(), dialer, "plc:502", time.Second, logging.NewNop())
	require.Error(t, err)

	var te *apperrors.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, int(syscall.ECONNREFUSED), te.OSCode)
}
