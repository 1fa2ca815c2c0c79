// Package fakemodbus реализует транспорт в памяти для тестов пула и сервиса.
package fakemodbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iwtcode/modbusAdapter/pkg/transport"
)

var ErrInjected = errors.New("fakemodbus: injected failure")

// Device: общее состояние регистров, разделяемое всеми дескрипторами Dialer.
type Device struct {
	mu      sync.Mutex
	holding map[uint16]uint16
	input   map[uint16]uint16
	coils   map[uint16]bool
}

func NewDevice() *Device {
	return &Device{
		holding: make(map[uint16]uint16),
		input:   make(map[uint16]uint16),
		coils:   make(map[uint16]bool),
	}
}

func (d *Device) SetHolding(address uint16, values ...uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range values {
		d.holding[address+uint16(i)] = v
	}
}

func (d *Device) Holding(address uint16, n int) []uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint16, n)
	for i := range out {
		out[i] = d.holding[address+uint16(i)]
	}
	return out
}

func (d *Device) SetInput(address uint16, values ...uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range values {
		d.input[address+uint16(i)] = v
	}
}

func (d *Device) Coils(address uint16, n int) []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]bool, n)
	for i := range out {
		out[i] = d.coils[address+uint16(i)]
	}
	return out
}

// Dialer создает Handle поверх Device и считает подключения.
type Dialer struct {
	Device *Device

	// DialDelay задерживает подключение; DialErr возвращается вместо Handle.
	DialDelay time.Duration
	DialErr   error
	// KeepAliveErr передается каждому новому Handle.
	KeepAliveErr error

	dials  atomic.Int64
	closes atomic.Int64
	open   atomic.Int64

	mu      sync.Mutex
	handles []*Handle
}

func NewDialer() *Dialer {
	return &Dialer{Device: NewDevice()}
}

func (d *Dialer) Dial(ctx context.Context, address string, timeout time.Duration) (transport.Handle, error) {
	if d.DialDelay > 0 {
		t := time.NewTimer(d.DialDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	d.dials.Add(1)
	d.open.Add(1)
	h := &Handle{dialer: d, address: address, KeepAliveErr: d.KeepAliveErr}
	h.connected.Store(true)
	d.mu.Lock()
	d.handles = append(d.handles, h)
	d.mu.Unlock()
	return h, nil
}

// Dials: число успешных подключений.
func (d *Dialer) Dials() int64 { return d.dials.Load() }

// Closes: число закрытых дескрипторов.
func (d *Dialer) Closes() int64 { return d.closes.Load() }

// Open: число открытых в данный момент дескрипторов.
func (d *Dialer) Open() int64 { return d.open.Load() }

func (d *Dialer) Handles() []*Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Handle(nil), d.handles...)
}

// Handle реализует transport.Handle поверх Device.
type Handle struct {
	dialer  *Dialer
	address string

	connected atomic.Bool
	closed    atomic.Bool
	calls     atomic.Int64

	// FailReads заставляет чтения возвращать ErrInjected.
	FailReads atomic.Bool
	// KeepAliveErr возвращается из SetKeepAlive.
	KeepAliveErr error
	keepAlive    atomic.Int64
}

func (h *Handle) Calls() int64 { return h.calls.Load() }

func (h *Handle) KeepAlive() time.Duration { return time.Duration(h.keepAlive.Load()) }

// Disconnect имитирует разрыв соединения удаленной стороной.
func (h *Handle) Disconnect() { h.connected.Store(false) }

func (h *Handle) SetKeepAlive(period time.Duration) error {
	if h.KeepAliveErr != nil {
		return h.KeepAliveErr
	}
	h.keepAlive.Store(int64(period))
	return nil
}

func (h *Handle) check() error {
	h.calls.Add(1)
	if h.closed.Load() || !h.connected.Load() {
		return ErrInjected
	}
	return nil
}

func (h *Handle) ReadHoldingRegisters(slaveID byte, address, quantity uint16) ([]uint16, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	if h.FailReads.Load() {
		return nil, ErrInjected
	}
	return h.dialer.Device.Holding(address, int(quantity)), nil
}

func (h *Handle) ReadInputRegisters(slaveID byte, address, quantity uint16) ([]uint16, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	if h.FailReads.Load() {
		return nil, ErrInjected
	}
	dev := h.dialer.Device
	dev.mu.Lock()
	defer dev.mu.Unlock()
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = dev.input[address+uint16(i)]
	}
	return out, nil
}

func (h *Handle) WriteSingleRegister(slaveID byte, address, value uint16) error {
	if err := h.check(); err != nil {
		return err
	}
	h.dialer.Device.SetHolding(address, value)
	return nil
}

func (h *Handle) WriteMultipleRegisters(slaveID byte, address uint16, values []uint16) error {
	if err := h.check(); err != nil {
		return err
	}
	h.dialer.Device.SetHolding(address, values...)
	return nil
}

func (h *Handle) ReadCoils(slaveID byte, address, quantity uint16) ([]bool, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	if h.FailReads.Load() {
		return nil, ErrInjected
	}
	return h.dialer.Device.Coils(address, int(quantity)), nil
}

func (h *Handle) WriteMultipleCoils(slaveID byte, address uint16, values []bool) error {
	if err := h.check(); err != nil {
		return err
	}
	dev := h.dialer.Device
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for i, v := range values {
		dev.coils[address+uint16(i)] = v
	}
	return nil
}

func (h *Handle) Connected() bool { return h.connected.Load() && !h.closed.Load() }

func (h *Handle) RemoteAddr() string { return h.address }

func (h *Handle) Close() error {
	if h.closed.CompareAndSwap(false, true) {
		h.dialer.closes.Add(1)
		h.dialer.open.Add(-1)
	}
	return nil
}
