// ABOUTME: Connection session state machine: handshake, heartbeats, reconnection.
// ABOUTME: Owns the transport, the pending command table, and state notifications.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-link/internal/identity"
	"github.com/2389/coven-link/internal/wire"
)

// State is the observable lifecycle state of a session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Roles a session can declare during the handshake.
const (
	RoleOperator = "operator"
	RoleNode     = "node"
)

// Protocol bounds offered during the handshake.
const (
	MinProtocol = 1
	MaxProtocol = 3
)

const (
	methodConnect  = "connect"
	methodPing     = "ping"
	eventChallenge = "connect.challenge"
)

// Options configures a Session. URL is required; everything else has a
// usable default.
type Options struct {
	URL string

	Role         string
	Scopes       []string
	Capabilities []string
	Commands     []string

	ClientID      string
	ClientMode    string
	ClientVersion string
	Platform      string

	Token    string
	Identity *identity.Identity

	HandshakeTimeout  time.Duration
	CommandTimeout    time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	ReconnectBase     time.Duration
	ReconnectCap      time.Duration
	MaxReconnects     int

	Dial DialFunc

	// OnState is invoked on every state change, outside session locks.
	OnState func(State)
	// OnEvent receives push events while the session is connected.
	// Invoked serially from the read loop.
	OnEvent func(*wire.Event)

	Logger *slog.Logger
}

// ConnectInfo is the negotiated result of a successful handshake.
type ConnectInfo struct {
	Protocol  int               `json:"protocol"`
	Endpoints map[string]string `json:"endpoints,omitempty"`
}

// Session maintains one authenticated connection to the gateway.
type Session struct {
	opts    Options
	logger  *slog.Logger
	pending *pendingTable

	mu             sync.Mutex
	state          State
	transport      Transport
	closed         bool
	attempts       int
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
	challengeCh    chan string
	info           ConnectInfo
}

// New builds a session. It does not open any connection.
func New(opts Options) *Session {
	if opts.Role == "" {
		opts.Role = RoleOperator
	}
	if opts.ClientID == "" {
		opts.ClientID = "coven-link"
	}
	if opts.ClientMode == "" {
		opts.ClientMode = "interactive"
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 30 * time.Second
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = 10 * time.Second
	}
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = time.Second
	}
	if opts.ReconnectCap <= 0 {
		opts.ReconnectCap = 30 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 10
	}
	if opts.Dial == nil {
		opts.Dial = DialWebsocket
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		opts:    opts,
		logger:  logger.With("component", "session"),
		pending: newPendingTable(),
		state:   StateDisconnected,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectInfo returns the result of the most recent successful handshake.
func (s *Session) ConnectInfo() ConnectInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Connect opens the transport and runs the handshake. On failure it
// returns the error and leaves the session retrying in the background on
// the reconnect schedule, exactly as if an established connection had
// dropped.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return ErrConnectInProgress
	}
	s.closed = false
	s.attempts = 0
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.notify(StateConnecting)

	if err := s.connectOnce(ctx); err != nil {
		s.settleFailedAttempt()
		return err
	}
	return nil
}

// Disconnect tears the session down. It is terminal: the transport is
// closed, every pending command is rejected with ErrDisconnected, no
// reconnect is scheduled, and the state is disconnected when it returns.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.closed = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.heartbeatStop != nil {
		close(s.heartbeatStop)
		s.heartbeatStop = nil
	}
	tr := s.transport
	s.transport = nil
	changed := s.state != StateDisconnected
	s.state = StateDisconnected
	s.mu.Unlock()

	for _, entry := range s.pending.drain() {
		entry.resolve(nil, ErrDisconnected)
	}
	if tr != nil {
		tr.Close()
	}
	if changed {
		s.notify(StateDisconnected)
	}
}

// SendCommand issues a request and waits for its response. It fails
// immediately with ErrNotConnected when no transport is open, and with
// ErrCommandTimeout when no response arrives within the command timeout.
func (s *Session) SendCommand(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return s.send(ctx, method, params, s.opts.CommandTimeout)
}

func (s *Session) send(ctx context.Context, method string, params any, timeout time.Duration) (json.RawMessage, error) {
	s.mu.Lock()
	tr := s.transport
	s.mu.Unlock()
	if tr == nil {
		return nil, ErrNotConnected
	}

	id := uuid.New().String()
	data, err := wire.EncodeRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	entry := s.pending.add(id, method, timeout, func() {
		if late := s.pending.take(id); late != nil {
			late.resolve(nil, ErrCommandTimeout)
		}
	})

	if err := tr.Send(ctx, data); err != nil {
		if own := s.pending.take(id); own != nil {
			own.timer.Stop()
		}
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case res := <-entry.result:
		return res.payload, res.err
	case <-ctx.Done():
		if own := s.pending.take(id); own != nil {
			own.timer.Stop()
		}
		return nil, ctx.Err()
	}
}

// connectOnce dials, binds the challenge nonce, and completes the
// handshake within the handshake budget. On any failure the transport
// is closed and the disconnect path runs.
func (s *Session) connectOnce(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()

	tr, err := s.opts.Dial(hctx, s.opts.URL)
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		tr.Close()
		return ErrDisconnected
	}
	s.transport = tr
	challenge := make(chan string, 1)
	s.challengeCh = challenge
	s.mu.Unlock()

	go s.readLoop(tr)

	var nonce string
	select {
	case nonce = <-challenge:
	case <-hctx.Done():
		s.failTransport(tr)
		return fmt.Errorf("waiting for challenge: %w", ErrHandshakeTimeout)
	}

	params, err := s.connectParams(nonce)
	if err != nil {
		s.failTransport(tr)
		return fmt.Errorf("building connect request: %w", err)
	}
	payload, err := s.send(hctx, methodConnect, params, s.opts.HandshakeTimeout)
	if err != nil {
		s.failTransport(tr)
		if hctx.Err() != nil {
			return fmt.Errorf("handshake: %w", ErrHandshakeTimeout)
		}
		return fmt.Errorf("handshake: %w", err)
	}

	var info ConnectInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		s.failTransport(tr)
		return fmt.Errorf("parsing connect response: %w", err)
	}

	s.mu.Lock()
	if s.closed || s.transport != tr {
		s.mu.Unlock()
		return ErrDisconnected
	}
	s.state = StateConnected
	s.attempts = 0
	s.info = info
	s.challengeCh = nil
	stop := make(chan struct{})
	s.heartbeatStop = stop
	s.mu.Unlock()

	s.logger.Info("connected", "url", s.opts.URL, "protocol", info.Protocol)
	s.notify(StateConnected)
	go s.heartbeatLoop(stop)
	return nil
}

type connectClient struct {
	ID       string `json:"id"`
	Mode     string `json:"mode"`
	Version  string `json:"version,omitempty"`
	Platform string `json:"platform,omitempty"`
}

type connectRequest struct {
	MinProtocol  int                 `json:"minProtocol"`
	MaxProtocol  int                 `json:"maxProtocol"`
	Client       connectClient       `json:"client"`
	Role         string              `json:"role"`
	Scopes       []string            `json:"scopes,omitempty"`
	Capabilities []string            `json:"capabilities,omitempty"`
	Commands     []string            `json:"commands,omitempty"`
	Token        string              `json:"token,omitempty"`
	Device       *identity.Assertion `json:"device,omitempty"`
}

func (s *Session) connectParams(nonce string) (*connectRequest, error) {
	req := &connectRequest{
		MinProtocol: MinProtocol,
		MaxProtocol: MaxProtocol,
		Client: connectClient{
			ID:       s.opts.ClientID,
			Mode:     s.opts.ClientMode,
			Version:  s.opts.ClientVersion,
			Platform: s.opts.Platform,
		},
		Role:         s.opts.Role,
		Scopes:       s.opts.Scopes,
		Capabilities: s.opts.Capabilities,
		Commands:     s.opts.Commands,
		Token:        s.opts.Token,
	}
	if s.opts.Identity != nil {
		assertion, err := s.opts.Identity.SignAssertion(identity.AssertionParams{
			ClientID:   s.opts.ClientID,
			ClientMode: s.opts.ClientMode,
			Role:       s.opts.Role,
			Scopes:     s.opts.Scopes,
			Token:      s.opts.Token,
			Nonce:      nonce,
		})
		if err != nil {
			return nil, err
		}
		req.Device = assertion
	}
	return req, nil
}

// readLoop consumes frames until the transport errors, then runs the
// unintentional-disconnect path.
func (s *Session) readLoop(tr Transport) {
	for {
		data, err := tr.Receive(context.Background())
		if err != nil {
			s.failTransport(tr)
			return
		}
		frame, err := wire.Decode(data)
		if err != nil {
			s.logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		switch {
		case frame.Response != nil:
			s.handleResponse(frame.Response)
		case frame.Event != nil:
			s.handleEvent(frame.Event)
		}
	}
}

func (s *Session) handleResponse(res *wire.Response) {
	entry := s.pending.take(res.ID)
	if entry == nil {
		s.logger.Debug("response for unknown request", "id", res.ID)
		return
	}
	if res.OK {
		// The handshake ok must flip the state here, on the frame-processing
		// path: the server may emit push events in the same flush, and the
		// read loop handles them before the goroutine blocked in connectOnce
		// gets scheduled. Waiting for connectOnce would drop those events at
		// the connected gate.
		if entry.method == methodConnect {
			s.markConnected()
		}
		entry.resolve(res.Payload, nil)
		return
	}
	rejected := &CommandRejectedError{Method: entry.method}
	if res.Error != nil {
		rejected.Message = res.Error.Message
		rejected.Code = res.Error.Code
	}
	entry.resolve(nil, rejected)
}

func (s *Session) markConnected() {
	s.mu.Lock()
	if s.closed || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.mu.Unlock()
}

func (s *Session) handleEvent(evt *wire.Event) {
	if evt.Event == eventChallenge {
		var p struct {
			Nonce string `json:"nonce"`
		}
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			s.logger.Warn("malformed challenge", "error", err)
			return
		}
		s.mu.Lock()
		ch := s.challengeCh
		s.mu.Unlock()
		if ch != nil {
			select {
			case ch <- p.Nonce:
			default:
			}
		}
		return
	}

	s.mu.Lock()
	connected := s.state == StateConnected
	s.mu.Unlock()
	if connected && s.opts.OnEvent != nil {
		s.opts.OnEvent(evt)
	}
}

// heartbeatLoop pings on the heartbeat interval. A missed ack forces the
// transport closed, which the read loop turns into a reconnect.
func (s *Session) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.opts.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.HeartbeatTimeout)
			_, err := s.send(ctx, methodPing, nil, s.opts.HeartbeatTimeout)
			cancel()
			if err == nil {
				continue
			}
			select {
			case <-stop:
				return
			default:
			}
			s.logger.Warn("heartbeat missed, closing connection", "error", err)
			s.mu.Lock()
			tr := s.transport
			s.mu.Unlock()
			if tr != nil {
				tr.Close()
			}
			return
		}
	}
}

// failTransport handles an unintentional loss of tr: pending commands
// are rejected, the state drops to disconnected, and a reconnect is
// scheduled. No-op if tr is no longer the active transport or the
// session was intentionally closed.
func (s *Session) failTransport(tr Transport) {
	s.mu.Lock()
	if s.closed || s.transport != tr {
		s.mu.Unlock()
		return
	}
	s.transport = nil
	s.challengeCh = nil
	if s.heartbeatStop != nil {
		close(s.heartbeatStop)
		s.heartbeatStop = nil
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	tr.Close()
	for _, entry := range s.pending.drain() {
		entry.resolve(nil, ErrDisconnected)
	}
	s.logger.Warn("connection lost", "url", s.opts.URL)
	s.notify(StateDisconnected)
	s.scheduleReconnect()
}

// settleFailedAttempt runs after connectOnce fails without ever
// installing a transport (dial error). It drops back to disconnected and
// keeps the reconnect schedule going.
func (s *Session) settleFailedAttempt() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	changed := s.state == StateConnecting
	if changed {
		s.state = StateDisconnected
	}
	s.mu.Unlock()
	if changed {
		s.notify(StateDisconnected)
	}
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if s.closed || s.reconnectTimer != nil || s.state != StateDisconnected {
		s.mu.Unlock()
		return
	}
	if s.attempts >= s.opts.MaxReconnects {
		s.state = StateError
		s.mu.Unlock()
		s.logger.Error("reconnect attempts exhausted", "attempts", s.opts.MaxReconnects)
		s.notify(StateError)
		return
	}
	attempt := s.attempts
	s.attempts++
	delay := backoffDelay(attempt, s.opts.ReconnectBase, s.opts.ReconnectCap)
	s.logger.Info("scheduling reconnect", "attempt", attempt+1, "delay", delay)
	s.reconnectTimer = time.AfterFunc(delay, s.reconnect)
	s.mu.Unlock()
}

func (s *Session) reconnect() {
	s.mu.Lock()
	s.reconnectTimer = nil
	if s.closed || s.state != StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.notify(StateConnecting)

	if err := s.connectOnce(context.Background()); err != nil {
		s.logger.Warn("reconnect failed", "error", err)
		s.settleFailedAttempt()
	}
}

func (s *Session) notify(state State) {
	if s.opts.OnState != nil {
		s.opts.OnState(state)
	}
}
