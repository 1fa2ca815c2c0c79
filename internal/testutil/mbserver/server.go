// Package mbserver содержит минимальный Modbus TCP сервер для тестов (FC 1, 3, 4, 6, 15, 16).
package mbserver

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

const (
	fcReadCoils              = 0x01
	fcReadHoldingRegisters   = 0x03
	fcReadInputRegisters     = 0x04
	fcWriteSingleRegister    = 0x06
	fcWriteMultipleCoils     = 0x0F
	fcWriteMultipleRegisters = 0x10

	exIllegalFunction    = 0x01
	exIllegalDataAddress = 0x02
	exIllegalDataValue   = 0x03
)

type Server struct {
	ln net.Listener

	mu      sync.Mutex
	holding [65536]uint16
	input   [65536]uint16
	coils   [65536]bool
	conns   map[net.Conn]struct{}

	accepted atomic.Int64
	requests atomic.Int64
	wg       sync.WaitGroup
}

// Start запускает сервер на случайном порту loopback.
func Start() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, conns: make(map[net.Conn]struct{})}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

// Accepted: число принятых соединений.
func (s *Server) Accepted() int64 { return s.accepted.Load() }

// Requests: число обработанных кадров.
func (s *Server) Requests() int64 { return s.requests.Load() }

func (s *Server) SetHolding(address uint16, values ...uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.holding[int(address)+i] = v
	}
}

func (s *Server) Holding(address uint16, n int) []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint16, n)
	copy(out, s.holding[address:int(address)+n])
	return out
}

func (s *Server) SetInput(address uint16, values ...uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range values {
		s.input[int(address)+i] = v
	}
}

func (s *Server) Coils(address uint16, n int) []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, n)
	copy(out, s.coils[address:int(address)+n])
	return out
}

// DropConnections разрывает все текущие соединения, слушатель продолжает работать.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) Close() error {
	err := s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.accepted.Add(1)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := binary.BigEndian.Uint16(header[4:6])
		if length < 2 {
			return
		}
		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}
		s.requests.Add(1)

		resp := s.process(pdu)
		frame := make([]byte, 7+len(resp))
		copy(frame[:4], header[:4])
		binary.BigEndian.PutUint16(frame[4:6], uint16(len(resp)+1))
		frame[6] = header[6]
		copy(frame[7:], resp)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) process(pdu []byte) []byte {
	fc := pdu[0]
	data := pdu[1:]
	if len(data) < 4 {
		return exception(fc, exIllegalDataValue)
	}
	address := int(binary.BigEndian.Uint16(data[0:2]))
	quantity := int(binary.BigEndian.Uint16(data[2:4]))

	s.mu.Lock()
	defer s.mu.Unlock()

	switch fc {
	case fcReadCoils:
		if address+quantity > len(s.coils) {
			return exception(fc, exIllegalDataAddress)
		}
		packed := make([]byte, (quantity+7)/8)
		for i := 0; i < quantity; i++ {
			if s.coils[address+i] {
				packed[i/8] |= 1 << uint(i%8)
			}
		}
		return append([]byte{fc, byte(len(packed))}, packed...)

	case fcReadHoldingRegisters, fcReadInputRegisters:
		table := &s.holding
		if fc == fcReadInputRegisters {
			table = &s.input
		}
		if address+quantity > len(table) {
			return exception(fc, exIllegalDataAddress)
		}
		out := []byte{fc, byte(quantity * 2)}
		for i := 0; i < quantity; i++ {
			out = binary.BigEndian.AppendUint16(out, table[address+i])
		}
		return out

	case fcWriteSingleRegister:
		s.holding[address] = uint16(quantity)
		return append([]byte{fc}, data[:4]...)

	case fcWriteMultipleRegisters:
		if len(data) < 5+quantity*2 || address+quantity > len(s.holding) {
			return exception(fc, exIllegalDataAddress)
		}
		for i := 0; i < quantity; i++ {
			s.holding[address+i] = binary.BigEndian.Uint16(data[5+i*2:])
		}
		return append([]byte{fc}, data[:4]...)

	case fcWriteMultipleCoils:
		if len(data) < 5+(quantity+7)/8 || address+quantity > len(s.coils) {
			return exception(fc, exIllegalDataAddress)
		}
		for i := 0; i < quantity; i++ {
			s.coils[address+i] = data[5+i/8]&(1<<uint(i%8)) != 0
		}
		return append([]byte{fc}, data[:4]...)

	default:
		return exception(fc, exIllegalFunction)
	}
}

func exception(fc, code byte) []byte {
	return []byte{fc | 0x80, code}
}
