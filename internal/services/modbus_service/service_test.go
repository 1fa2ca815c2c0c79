package modbus_service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iwtcode/modbusAdapter/internal/middleware/logging"
	"github.com/iwtcode/modbusAdapter/internal/testutil/fakemodbus"
	"github.com/iwtcode/modbusAdapter/pkg/codec"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
	"github.com/iwtcode/modbusAdapter/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func setupTest(t *testing.T, cfg Config) (*Service, *fakemodbus.Dialer) {
	t.Helper()
	if cfg.Host == "" {
		cfg.Host, cfg.Port = "plc", 502
	}
	if cfg.SlaveID == 0 {
		cfg.SlaveID = 1
	}
	if cfg.Defaults.RetryInterval == 0 {
		cfg.Defaults.RetryInterval = time.Millisecond
	}
	dialer := fakemodbus.NewDialer()
	svc := NewModbusService(cfg, dialer, logging.NewNop())
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc, dialer
}

func TestExecuteBeforeStart(t *testing.T) {
	svc := NewModbusService(Config{Host: "plc", Port: 502}, fakemodbus.NewDialer(), logging.NewNop())

	err := svc.ExecuteRequest(context.Background(), func(context.Context, transport.Handle) error { return nil }, RequestOptions{})
	assert.ErrorIs(t, err, apperrors.ErrNotStarted)
	assert.True(t, svc.PoolStats().Closed)
}

func TestThrottleSerializesCallers(t *testing.T) {
	svc, _ := setupTest(t, Config{MaxConcurrentRequests: 1, MaxConnections: 2})
	ctx := context.Background()

	release := make(chan struct{})
	firstStarted := make(chan struct{})
	var firstDone atomic.Bool

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := svc.ExecuteRequest(ctx, func(context.Context, transport.Handle) error {
			close(firstStarted)
			<-release
			firstDone.Store(true)
			return nil
		}, RequestOptions{MaxRetries: 1})
		assert.NoError(t, err)
	}()
	<-firstStarted

	// Слот занят: короткое ожидание завершается ThrottleTimeout, а операция не запускается.
	began := false
	err := svc.ExecuteRequest(ctx, func(context.Context, transport.Handle) error {
		began = true
		return nil
	}, RequestOptions{MaxRetries: 1, WaitTimeout: 30 * time.Millisecond})
	assert.ErrorIs(t, err, apperrors.ErrThrottleTimeout)
	assert.False(t, began)

	// Длинное ожидание: вторая операция стартует только после первой.
	secondErr := make(chan error, 1)
	go func() {
		secondErr <- svc.ExecuteRequest(ctx, func(context.Context, transport.Handle) error {
			if !firstDone.Load() {
				return errors.New("second request started before first completed")
			}
			return nil
		}, RequestOptions{MaxRetries: 1, WaitTimeout: 5 * time.Second})
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	require.NoError(t, <-secondErr)
}

func TestThrottleWaitCanceled(t *testing.T) {
	svc, _ := setupTest(t, Config{MaxConcurrentRequests: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = svc.ExecuteRequest(context.Background(), func(context.Context, transport.Handle) error {
			close(started)
			<-release
			return nil
		}, RequestOptions{MaxRetries: 1})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	err := svc.ExecuteRequest(ctx, func(context.Context, transport.Handle) error { return nil },
		RequestOptions{MaxRetries: 1, WaitTimeout: 5 * time.Second})
	assert.True(t, apperrors.IsCanceled(err))
	assert.NotErrorIs(t, err, apperrors.ErrThrottleTimeout)
}

func TestFailedRequestRetiresSession(t *testing.T) {
	svc, dialer := setupTest(t, Config{MaxConnections: 1})

	calls := 0
	err := svc.ExecuteRequest(context.Background(), func(context.Context, transport.Handle) error {
		calls++
		return errBoom
	}, RequestOptions{MaxRetries: 3, RetryInterval: time.Millisecond})

	var mre *apperrors.MaxRetryError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, 3, mre.Attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(0), svc.PoolStats().Size)
	assert.Equal(t, int64(1), dialer.Closes())

	// Слот освобожден и пул выдает новую сессию.
	err = svc.ExecuteRequest(context.Background(), func(context.Context, transport.Handle) error { return nil }, RequestOptions{MaxRetries: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), dialer.Dials())
}

func TestSingleAttemptSurfacesRawError(t *testing.T) {
	svc, _ := setupTest(t, Config{})

	calls := 0
	err := svc.ExecuteRequest(context.Background(), func(context.Context, transport.Handle) error {
		calls++
		return errBoom
	}, RequestOptions{MaxRetries: 1})

	assert.Same(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteReturnsValue(t *testing.T) {
	svc, dialer := setupTest(t, Config{})
	dialer.Device.SetHolding(7, 1234)

	v, err := Execute(context.Background(), svc, func(_ context.Context, h transport.Handle) (uint16, error) {
		words, err := h.ReadHoldingRegisters(1, 7, 1)
		if err != nil {
			return 0, err
		}
		return words[0], nil
	}, RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), v)

	stats := svc.PoolStats()
	assert.Equal(t, int64(1), stats.Size)
	assert.Equal(t, 1, stats.Idle)
}

func TestTypedHelpers(t *testing.T) {
	svc, dialer := setupTest(t, Config{ByteOrder: codec.CDAB})
	ctx := context.Background()

	require.NoError(t, svc.WriteFloat(ctx, 10, 3.5))
	f, err := svc.ReadFloat(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f)
	assert.Equal(t, []uint16{0x0000, 0x4060}, dialer.Device.Holding(10, 2))

	require.NoError(t, svc.WriteDoubles(ctx, 20, []float64{1.25, -8}))
	ds, err := svc.ReadDoubles(ctx, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, -8}, ds)

	require.NoError(t, svc.WriteInt32s(ctx, 40, []int32{-7}))
	is, err := svc.ReadInt32s(ctx, 40, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{-7}, is)

	require.NoError(t, svc.WriteHoldingRegisters(ctx, 50, []uint16{1, 2, 3}))
	ws, err := svc.ReadHoldingRegisters(ctx, 50, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2, 3}, ws)

	require.NoError(t, svc.WriteSignal(ctx, 60, true))
	on, err := svc.ReadSignal(ctx, 60)
	require.NoError(t, err)
	assert.True(t, on)

	bits := make([]bool, 32)
	bits[1], bits[17] = true, true
	require.NoError(t, svc.WriteBitSignalsN(ctx, 70, bits))
	got, err := svc.ReadBitSignalsN(ctx, 70, 2)
	require.NoError(t, err)
	assert.Equal(t, bits, got)

	first, err := svc.ReadBitSignals(ctx, 70)
	require.NoError(t, err)
	assert.Equal(t, bits[:16], first)

	require.NoError(t, svc.WriteCoils(ctx, 5, []bool{true, false, true}))
	coils, err := svc.ReadCoils(ctx, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, coils)
}

func TestHelperArgumentValidation(t *testing.T) {
	svc, dialer := setupTest(t, Config{})
	ctx := context.Background()

	_, err := svc.ReadDoubles(ctx, 0, 40)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = svc.ReadHoldingRegisters(ctx, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	err = svc.WriteBitSignals(ctx, 0, make([]bool, 8))
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	assert.Equal(t, int64(0), dialer.Dials())
}

func TestPollingGroupIdempotentCreate(t *testing.T) {
	svc, _ := setupTest(t, Config{})

	assert.True(t, svc.CreatePollingGroup("g1", time.Hour, 1, 0))
	assert.False(t, svc.CreatePollingGroup("g1", time.Second, 3, 0))
	assert.False(t, svc.AddPollingTask("missing", "t", func(context.Context, transport.Handle) error { return nil }))

	groups := svc.PollingGroups()
	require.Len(t, groups, 1)
	assert.Equal(t, time.Hour.Milliseconds(), groups[0].IntervalMs)
	assert.Equal(t, int64(2000), groups[0].RetryIntervalMs)
	assert.Nil(t, groups[0].LastTick)
}

func TestPollingBeforeStartIsQuiet(t *testing.T) {
	var out bytes.Buffer
	logger := logging.NewLogger(&logging.Config{Enabled: true, Level: "info", Output: &out}, "")
	svc := NewModbusService(Config{Host: "plc", Port: 502}, fakemodbus.NewDialer(), logger)

	require.True(t, svc.CreatePollingGroup("idle", 10*time.Millisecond, 1, 0))
	require.Eventually(t, func() bool {
		groups := svc.PollingGroups()
		return len(groups) == 1 && groups[0].Failures >= 3
	}, 2*time.Second, 5*time.Millisecond)
	svc.StopPollingGroups()

	groups := svc.PollingGroups()
	assert.Empty(t, groups)
	assert.NotContains(t, out.String(), "level=error")
	assert.NotContains(t, out.String(), "Failed to lease session")
}

func TestPollingFailingTaskKeepsRunning(t *testing.T) {
	svc, _ := setupTest(t, Config{})

	var calls atomic.Int64
	require.True(t, svc.CreatePollingGroup("failing", 20*time.Millisecond, 1, 0))
	require.True(t, svc.AddPollingTask("failing", "boom", func(context.Context, transport.Handle) error {
		calls.Add(1)
		return errBoom
	}))

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)

	groups := svc.PollingGroups()
	require.Len(t, groups, 1)
	assert.GreaterOrEqual(t, groups[0].Failures, int64(3))
	assert.Contains(t, groups[0].LastError, "boom")
}

func TestPollingTasksRunInOrder(t *testing.T) {
	svc, _ := setupTest(t, Config{})

	var (
		mu    sync.Mutex
		order []string
	)
	task := func(name string) Operation {
		return func(context.Context, transport.Handle) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	require.True(t, svc.CreatePollingGroup("ordered", 10*time.Millisecond, 1, 0))
	svc.AddPollingTask("ordered", "a", task("a"))
	svc.AddPollingTask("ordered", "b", task("b"))
	svc.AddPollingTask("ordered", "c", task("c"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) >= 9
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, svc.StopPollingGroup("ordered"))

	mu.Lock()
	defer mu.Unlock()
	// Первые тики могли начаться до добавления всех задач, но каждый тик идет с "a" по порядку.
	assert.Equal(t, "a", order[0])
	for i := 1; i < len(order); i++ {
		prev, cur := order[i-1], order[i]
		valid := cur == "a" || (prev == "a" && cur == "b") || (prev == "b" && cur == "c")
		assert.True(t, valid, "unexpected sequence %v", order)
	}
	assert.Contains(t, order, "c")
}

func TestStopAllWithTwoGroups(t *testing.T) {
	svc, _ := setupTest(t, Config{})

	var ticks1, ticks2 atomic.Int64
	require.True(t, svc.CreatePollingGroup("one", 10*time.Millisecond, 1, 0))
	require.True(t, svc.CreatePollingGroup("two", 10*time.Millisecond, 1, 0))
	svc.AddPollingTask("one", "t", func(context.Context, transport.Handle) error { ticks1.Add(1); return nil })
	svc.AddPollingTask("two", "t", func(context.Context, transport.Handle) error { ticks2.Add(1); return nil })

	require.Eventually(t, func() bool { return ticks1.Load() > 0 && ticks2.Load() > 0 }, 2*time.Second, 5*time.Millisecond)

	groups := []*pollingGroup{svc.polling.groups["one"], svc.polling.groups["two"]}
	svc.StopPollingGroups()

	for _, g := range groups {
		select {
		case <-g.done:
		default:
			t.Fatalf("group %s loop still running", g.id)
		}
	}
	assert.Empty(t, svc.PollingGroups())

	n1, n2 := ticks1.Load(), ticks2.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, n1, ticks1.Load())
	assert.Equal(t, n2, ticks2.Load())
}

func TestStopGroupUnknown(t *testing.T) {
	svc, _ := setupTest(t, Config{})
	assert.ErrorIs(t, svc.StopPollingGroup("nope"), apperrors.ErrGroupNotFound)
}

func TestStopCascadesToGroups(t *testing.T) {
	svc, dialer := setupTest(t, Config{})
	require.True(t, svc.CreatePollingGroup("g", 10*time.Millisecond, 1, 0))
	svc.AddPollingTask("g", "t", func(context.Context, transport.Handle) error { return nil })
	require.Eventually(t, func() bool { return dialer.Dials() > 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Stop(context.Background()))
	assert.Empty(t, svc.PollingGroups())
	assert.Equal(t, int64(0), dialer.Open())
}
