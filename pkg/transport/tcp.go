package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	mb "github.com/goburrow/modbus"
	apperrors "github.com/iwtcode/modbusAdapter/pkg/errors"
)

// TCPDialer открывает Modbus TCP соединения через goburrow/modbus.
type TCPDialer struct {
	RequestTimeout time.Duration // Таймаут ввода-вывода одного запроса; 0 - равен таймауту подключения
	Trace          io.Writer     // Трассировка кадров, nil - выключена
}

func (d *TCPDialer) Dial(ctx context.Context, address string, timeout time.Duration) (Handle, error) {
	handler := mb.NewTCPClientHandler(address)
	handler.Timeout = timeout
	handler.IdleTimeout = 0 // временем жизни соединения управляет пул
	if d.Trace != nil {
		handler.Logger = log.New(d.Trace, "modbus: ", 0)
	}

	done := make(chan error, 1)
	go func() { done <- handler.Connect() }()

	select {
	case err := <-done:
		if err != nil {
			_ = handler.Close()
			return nil, err
		}
	case <-ctx.Done():
		go func() {
			<-done
			_ = handler.Close()
		}()
		return nil, ctx.Err()
	}

	if d.RequestTimeout > 0 {
		handler.Timeout = d.RequestTimeout
	}

	h := &tcpHandle{
		handler: handler,
		client:  mb.NewClient(handler),
		address: address,
	}
	h.connected.Store(true)
	return h, nil
}

// tcpHandle: mu сериализует запросы и Close, флаги состояния читаются без блокировки.
type tcpHandle struct {
	mu        sync.Mutex
	handler   *mb.TCPClientHandler
	client    mb.Client
	address   string
	connected atomic.Bool
	closed    atomic.Bool
}

func (h *tcpHandle) ReadHoldingRegisters(slaveID byte, address, quantity uint16) ([]uint16, error) {
	raw, err := h.do("read holding registers", slaveID, func(c mb.Client) ([]byte, error) {
		return c.ReadHoldingRegisters(address, quantity)
	})
	if err != nil {
		return nil, err
	}
	return decodeRegisters(raw, quantity)
}

func (h *tcpHandle) ReadInputRegisters(slaveID byte, address, quantity uint16) ([]uint16, error) {
	raw, err := h.do("read input registers", slaveID, func(c mb.Client) ([]byte, error) {
		return c.ReadInputRegisters(address, quantity)
	})
	if err != nil {
		return nil, err
	}
	return decodeRegisters(raw, quantity)
}

func (h *tcpHandle) WriteSingleRegister(slaveID byte, address, value uint16) error {
	_, err := h.do("write single register", slaveID, func(c mb.Client) ([]byte, error) {
		return c.WriteSingleRegister(address, value)
	})
	return err
}

func (h *tcpHandle) WriteMultipleRegisters(slaveID byte, address uint16, values []uint16) error {
	if len(values) == 0 || len(values) > MaxWriteRegisters {
		return apperrors.InvalidArgument("register count %d is out of range [1,%d]", len(values), MaxWriteRegisters)
	}
	payload := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(payload[i*2:], v)
	}
	_, err := h.do("write multiple registers", slaveID, func(c mb.Client) ([]byte, error) {
		return c.WriteMultipleRegisters(address, uint16(len(values)), payload)
	})
	return err
}

func (h *tcpHandle) ReadCoils(slaveID byte, address, quantity uint16) ([]bool, error) {
	raw, err := h.do("read coils", slaveID, func(c mb.Client) ([]byte, error) {
		return c.ReadCoils(address, quantity)
	})
	if err != nil {
		return nil, err
	}
	return UnpackBits(raw, int(quantity))
}

func (h *tcpHandle) WriteMultipleCoils(slaveID byte, address uint16, values []bool) error {
	if len(values) == 0 || len(values) > MaxWriteCoils {
		return apperrors.InvalidArgument("coil count %d is out of range [1,%d]", len(values), MaxWriteCoils)
	}
	_, err := h.do("write multiple coils", slaveID, func(c mb.Client) ([]byte, error) {
		return c.WriteMultipleCoils(address, uint16(len(values)), PackBits(values))
	})
	return err
}

func (h *tcpHandle) Connected() bool {
	return h.connected.Load() && !h.closed.Load()
}

func (h *tcpHandle) RemoteAddr() string { return h.address }

func (h *tcpHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.connected.Store(false)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler.Close()
}

// do выполняет запрос. Исключения устройства возвращаются как есть, сетевые
// сбои закрывают сокет (следующий вызов переподключится) и оборачиваются в TransportError.
func (h *tcpHandle) do(op string, slaveID byte, call func(mb.Client) ([]byte, error)) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return nil, apperrors.NewTransportError(op, h.address, net.ErrClosed)
	}

	h.handler.SlaveId = slaveID
	raw, err := call(h.client)
	if err == nil {
		h.connected.Store(true)
		return raw, nil
	}

	var mbErr *mb.ModbusError
	if errors.As(err, &mbErr) {
		return nil, err
	}

	h.connected.Store(false)
	_ = h.handler.Close()
	return nil, apperrors.NewTransportError(op, h.address, err)
}

func decodeRegisters(raw []byte, quantity uint16) ([]uint16, error) {
	if len(raw) != int(quantity)*2 {
		return nil, apperrors.InvalidArgument("response carries %d bytes, expected %d", len(raw), int(quantity)*2)
	}
	words := make([]uint16, quantity)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return words, nil
}

// PackBits упаковывает флаги по 8 в байт, младший бит первым.
func PackBits(values []bool) []byte {
	out := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits возвращает первые n флагов из упакованных байт.
func UnpackBits(raw []byte, n int) ([]bool, error) {
	if len(raw)*8 < n {
		return nil, apperrors.InvalidArgument("response carries %d bits, expected %d", len(raw)*8, n)
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = raw[i/8]&(1<<uint(i%8)) != 0
	}
	return out, nil
}
