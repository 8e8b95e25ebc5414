package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

const gatewayWriteTimeout = 10 * time.Second

// gatewaySession is one websocket connection. It correlates replies with
// pending requests and hands unsolicited events to onEvent from the read pump.
type gatewaySession struct {
	conn    *websocket.Conn
	timeout time.Duration
	onEvent func(frame gatewayFrame)

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan gatewayFrame

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func dialGatewaySession(ctx context.Context, url string, timeout time.Duration, onEvent func(gatewayFrame)) (*gatewaySession, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerDisconnected, "failed to dial gateway", err)
	}

	s := &gatewaySession{
		conn:      conn,
		timeout:   timeout,
		onEvent:   onEvent,
		writeMu:   sync.Mutex{},
		mu:        sync.Mutex{},
		pending:   make(map[string]chan gatewayFrame),
		closed:    make(chan struct{}),
		closeOnce: sync.Once{},
		closeErr:  nil,
	}

	go s.readPump()

	return s, nil
}

// readPump runs until the connection fails or is closed.
func (s *gatewaySession) readPump() {
	for {
		var frame gatewayFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			s.shutdown(err)

			return
		}

		if frame.ID == "" {
			if frame.Event != "" && s.onEvent != nil {
				s.onEvent(frame)
			}

			continue
		}

		s.mu.Lock()
		ch, ok := s.pending[frame.ID]
		delete(s.pending, frame.ID)
		s.mu.Unlock()

		if ok {
			ch <- frame
		}
	}
}

// call sends a request and decodes the reply into out (which may be nil).
func (s *gatewaySession) call(ctx context.Context, method string, params any, out any) error {
	if !s.alive() {
		return errors.New(errors.ErrCodeBrokerDisconnected, "gateway session is closed")
	}

	id := uuid.New().String()
	reply := make(chan gatewayFrame, 1)

	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	err := s.conn.WriteJSON(gatewayRequest{ID: id, Method: method, Params: params})
	s.writeMu.Unlock()

	if err != nil {
		s.shutdown(err)

		return errors.Wrap(errors.ErrCodeBrokerDisconnected, "failed to write to gateway", err)
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case frame := <-reply:
		if frame.Error != nil {
			return frame.Error
		}

		if out == nil || len(frame.Result) == 0 {
			return nil
		}

		if err := json.Unmarshal(frame.Result, out); err != nil {
			return errors.Wrapf(errors.ErrCodeGatewayProtocolError, err, "malformed %s reply", method)
		}

		return nil
	case <-s.closed:
		return errors.Wrap(errors.ErrCodeBrokerDisconnected, "gateway session closed while waiting for reply", s.closeErr)
	case <-timer.C:
		return errors.Newf(errors.ErrCodeBrokerTimeout, "gateway did not answer %s within %s", method, s.timeout)
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeBrokerTimeout, "request cancelled", ctx.Err())
	}
}

func (s *gatewaySession) alive() bool {
	select {
	case <-s.closed:
		return false
	default:
		return true
	}
}

func (s *gatewaySession) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.closeErr = cause
		close(s.closed)
		_ = s.conn.Close()
	})
}

func (s *gatewaySession) close() {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()

	s.shutdown(nil)
}
