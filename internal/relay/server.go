package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"tradegateway/internal/session"
	"tradegateway/pkg/mobius"

	"go.uber.org/zap"
)

// Session is the shared upstream session every relay forwards to.
type Session interface {
	Connect(ctx context.Context) error
	OrderOpen(ctx context.Context, req session.OrderOpenRequest) ([]session.OpenedOrder, error)
	OrderSetTicket(ctx context.Context, req session.SetTicketRequest) error
	OrderClose(ctx context.Context, req session.OrderCloseRequest) ([]session.ClosedOrder, error)
	SubscribeClose(fn func(session.CloseNotification)) (unsubscribe func())
}

// Conn is one downstream connection carrying text frames.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

const sendBufferSize = 256

// Server relays one downstream connection to the shared session.
type Server struct {
	session Session
	conn    Conn
	logger  *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	handlers  sync.WaitGroup
}

func NewServer(sess Session, conn Conn, logger *zap.Logger) *Server {
	return &Server{
		session: sess,
		conn:    conn,
		logger:  logger,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

// Serve waits for the session, then handles frames until the connection
// ends or ctx is cancelled. The connection is read from the start, so a
// client that hangs up while the session is still connecting is released.
// Only a failed session connect is returned as an error; the connection is
// always closed on return.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, s.Terminate)
	defer stop()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readPump(frames, readErr)

	connected := make(chan error, 1)
	go func() { connected <- s.session.Connect(ctx) }()

	// frames that arrive before the session is ready are held and replayed
	var early [][]byte
waiting:
	for {
		select {
		case err := <-connected:
			if err != nil {
				s.Terminate()
				return fmt.Errorf("session connect: %w", err)
			}
			break waiting
		case msg := <-frames:
			if len(early) >= sendBufferSize {
				s.logger.Warn("too many frames before session was ready, terminating connection")
				s.Terminate()
				return nil
			}
			early = append(early, msg)
		case err := <-readErr:
			s.logger.Debug("connection closed before session was ready", zap.Error(err))
			s.Terminate()
			return nil
		}
	}

	unsubscribe := s.session.SubscribeClose(s.forwardClose)
	go s.writePump()

	for _, msg := range early {
		s.handleMessage(ctx, msg)
	}

loop:
	for {
		select {
		case msg := <-frames:
			s.handleMessage(ctx, msg)
		case err := <-readErr:
			s.logger.Debug("connection read ended", zap.Error(err))
			break loop
		case <-s.done:
			break loop
		}
	}

	unsubscribe()
	cancel()
	s.handlers.Wait()
	s.Terminate()
	return nil
}

// Terminate closes the connection. Safe to call more than once.
func (s *Server) Terminate() {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("close connection", zap.Error(err))
		}
	})
}

func (s *Server) handleMessage(ctx context.Context, msg []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		s.logger.Warn("malformed frame", zap.Error(err))
		return
	}

	if frame.Cmd != CmdPing && frame.Cmd != CmdPong {
		s.logger.Info("message",
			zap.ByteString("id", frame.ID),
			zap.String("cmd", frame.Cmd),
			zap.ByteString("props", frame.Props),
		)
	}

	switch frame.Cmd {
	case CmdPing:
		s.sendFrame(OutboundFrame{Cmd: CmdPong})
	case CmdOrderOpen, CmdOrderSetTicket, CmdOrderClose:
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleCommand(ctx, frame)
		}()
	}
}

func (s *Server) handleCommand(ctx context.Context, frame InboundFrame) {
	result, err := s.dispatch(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fields := []zap.Field{
			zap.ByteString("id", frame.ID),
			zap.String("cmd", frame.Cmd),
			zap.Error(err),
		}
		if mobius.IsClosed(err) {
			s.logger.Error("command failed, upstream unavailable", fields...)
		} else {
			s.logger.Warn("command failed", fields...)
		}
		s.sendFrame(OutboundFrame{ID: frame.ID, Cmd: errorCmd(frame.ID), Error: wireError(err)})
		return
	}

	if result != nil {
		s.sendFrame(OutboundFrame{ID: frame.ID, Cmd: CmdResponse, Result: result})
	}
}

func (s *Server) dispatch(ctx context.Context, frame InboundFrame) (any, error) {
	switch frame.Cmd {
	case CmdOrderOpen:
		var req session.OrderOpenRequest
		if err := decodeProps(frame.Props, &req); err != nil {
			return nil, err
		}
		return s.session.OrderOpen(ctx, req)

	case CmdOrderSetTicket:
		var req session.SetTicketRequest
		if err := decodeProps(frame.Props, &req); err != nil {
			return nil, err
		}
		return nil, s.session.OrderSetTicket(ctx, req)

	case CmdOrderClose:
		var req session.OrderCloseRequest
		if err := decodeProps(frame.Props, &req); err != nil {
			return nil, err
		}
		return s.session.OrderClose(ctx, req)
	}
	return nil, nil
}

var errMissingProps = errors.New("missing props")

func decodeProps(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errMissingProps
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid props: %w", err)
	}
	return nil
}

func (s *Server) forwardClose(n session.CloseNotification) {
	s.sendFrame(OutboundFrame{Cmd: CmdNotifyOrderClose, Props: n})
}

// sendFrame queues f without blocking. A connection that cannot keep up is
// terminated.
func (s *Server) sendFrame(f OutboundFrame) {
	b, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("failed to encode frame", zap.String("cmd", f.Cmd), zap.Error(err))
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- b:
	case <-s.done:
	default:
		s.logger.Warn("send buffer full, terminating connection")
		s.Terminate()
	}
}

// readPump hands frames to Serve in arrival order until a read fails or the
// connection is terminated.
func (s *Server) readPump(frames chan<- []byte, readErr chan<- error) {
	for {
		msg, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *Server) writePump() {
	for {
		select {
		case b := <-s.send:
			if err := s.conn.WriteMessage(b); err != nil {
				s.logger.Warn("write failed, terminating connection", zap.Error(err))
				s.Terminate()
				return
			}
		case <-s.done:
			return
		}
	}
}
