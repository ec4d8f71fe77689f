package stream

import (
	"context"
	"github.com/amadeus-explorer/go-explorer/entities"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"net/http"
	"sync"
	"time"
)

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed // closed, rejoin scheduled
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

type Dialer func(ctx context.Context, url string) (Conn, error)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// Handler receives the chain events. Account transactions are delivered to
// the registered interceptors instead.
type Handler interface {
	OnStats(stats entities.ChainStats)
	OnEntry(event EntryEvent)
	OnTransactions(txs []entities.TransactionRecord)
}

type Recorder interface {
	SetConnectionState(state int)
	IncReconnects()
	IncDroppedFrames(reason string)
}

func WebsocketDialer(handshakeTimeout time.Duration) Dialer {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	return func(ctx context.Context, url string) (Conn, error) {
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "dialing [%s]", url)
		}
		return conn, nil
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type Option func(*Channel)

func WithDialer(dialer Dialer) Option {
	return func(c *Channel) { c.dial = dialer }
}

func WithClock(clock Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

func WithBackoff(policy BackoffPolicy) Option {
	return func(c *Channel) { c.backoff = policy }
}

func WithRecorder(recorder Recorder) Option {
	return func(c *Channel) { c.recorder = recorder }
}

// Channel keeps one connection to the node event stream. Only Run
// reconnects, so at most one connection attempt is in flight.
type Channel struct {
	url      string
	dial     Dialer
	clock    Clock
	backoff  BackoffPolicy
	handler  Handler
	recorder Recorder
	logger   *zap.SugaredLogger

	mu           sync.Mutex
	state        State
	conn         Conn
	attempt      uint64
	attemptStart time.Time
	rejoining    bool

	writeMu sync.Mutex

	observersMu    sync.Mutex
	nextObserverID int
	interceptors   map[int]func(AccountTransactionEvent)
	stateObservers map[int]func(State)
}

func NewChannel(url string, logger *zap.SugaredLogger, options ...Option) *Channel {
	c := &Channel{
		url:            url,
		dial:           WebsocketDialer(10 * time.Second),
		clock:          systemClock{},
		backoff:        BackoffPolicy{MinInterval: DefaultMinInterval},
		logger:         logger,
		state:          StateClosed,
		interceptors:   make(map[int]func(AccountTransactionEvent)),
		stateObservers: make(map[int]func(State)),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Run connects and reconnects until the context is done. Events are
// passed to handler.
func (c *Channel) Run(ctx context.Context, handler Handler) error {
	c.handler = handler
	first := true
	for {
		if !first && c.recorder != nil {
			c.recorder.IncReconnects()
		}
		first = false

		attempt, conn, err := c.connect(ctx)
		if err != nil {
			c.logger.Warnw("Connecting to event stream failed.", "url", c.url, "error", err)
			c.signalClosed(attempt, err)
		} else {
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			err = c.readLoop(conn)
			stop()
			c.signalClosed(attempt, err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := c.backoff.Delay(c.clock.Now().Sub(c.attemptStartTime()))
		c.logger.Infow("Event stream closed, rejoining.", "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(delay):
		}
	}
}

// connect starts a new attempt: it resets the rejoin guard and the attempt start time.
func (c *Channel) connect(ctx context.Context) (uint64, Conn, error) {
	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	c.attemptStart = c.clock.Now()
	c.rejoining = false
	c.state = StateConnecting
	c.mu.Unlock()
	c.notifyState(StateConnecting)

	conn, err := c.dial(ctx, c.url)
	if err != nil {
		return attempt, nil, err
	}

	c.mu.Lock()
	if c.attempt != attempt || c.rejoining {
		c.mu.Unlock()
		_ = conn.Close()
		return attempt, nil, errors.New("attempt superseded")
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()
	c.logger.Infow("Event stream connected.", "url", c.url)
	c.notifyState(StateOpen)
	return attempt, conn, nil
}

// signalClosed handles a close or error signal. Only the first signal of an
// attempt transitions the state, later ones are ignored.
func (c *Channel) signalClosed(attempt uint64, reason error) bool {
	c.mu.Lock()
	if attempt != c.attempt || c.rejoining {
		c.mu.Unlock()
		return false
	}
	c.rejoining = true
	c.state = StateClosed
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.logger.Infow("Event stream closed.", "attempt", attempt, "reason", reason)
	c.notifyState(StateClosed)
	return true
}

func (c *Channel) attemptStartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attemptStart
}

func (c *Channel) readLoop(conn Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "reading frame")
		}
		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	event, err := Decode(data)
	if err != nil {
		c.logger.Warnw("Dropping undecodable frame.", "error", err)
		c.recordDropped("undecodable")
		return
	}

	switch e := event.(type) {
	case StatsEvent:
		c.handler.OnStats(e.Stats)
	case EntryEvent:
		c.handler.OnEntry(e)
	case TransactionsEvent:
		if e.Skipped > 0 {
			c.recordDropped("undecodable_tx")
		}
		c.handler.OnTransactions(e.Transactions)
	case AccountTransactionEvent:
		for _, intercept := range c.interceptorList() {
			intercept(e)
		}
	case UnknownEvent:
		c.logger.Warnw("Dropping frame with unknown op.", "op", e.Op)
		c.recordDropped("unknown_op")
	}
}

func (c *Channel) recordDropped(reason string) {
	if c.recorder != nil {
		c.recorder.IncDroppedFrames(reason)
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) IsOpen() bool {
	return c.State() == StateOpen
}

// SubscribeAccount returns false if the channel is not open or the control frame could not be sent.
func (c *Channel) SubscribeAccount(address string) bool {
	return c.sendControl(OpSubscribe, address)
}

func (c *Channel) UnsubscribeAccount(address string) bool {
	return c.sendControl(OpUnsubscribe, address)
}

func (c *Channel) sendControl(op, address string) bool {
	c.mu.Lock()
	conn := c.conn
	attempt := c.attempt
	open := c.state == StateOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return false
	}

	c.writeMu.Lock()
	err := conn.WriteJSON(controlFrame{Op: op, Account: address})
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Warnw("Sending control frame failed.", "op", op, "account", address, "error", err)
		c.signalClosed(attempt, err)
		return false
	}
	return true
}

// InterceptAccountTransactions registers fn for every account transaction
// event. The returned function removes the registration.
func (c *Channel) InterceptAccountTransactions(fn func(AccountTransactionEvent)) func() {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	id := c.nextObserverID
	c.nextObserverID++
	c.interceptors[id] = fn
	return func() {
		c.observersMu.Lock()
		defer c.observersMu.Unlock()
		delete(c.interceptors, id)
	}
}

// OnStateChange registers fn for connection state transitions.
func (c *Channel) OnStateChange(fn func(State)) func() {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	id := c.nextObserverID
	c.nextObserverID++
	c.stateObservers[id] = fn
	return func() {
		c.observersMu.Lock()
		defer c.observersMu.Unlock()
		delete(c.stateObservers, id)
	}
}

func (c *Channel) interceptorList() []func(AccountTransactionEvent) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	list := make([]func(AccountTransactionEvent), 0, len(c.interceptors))
	for _, fn := range c.interceptors {
		list = append(list, fn)
	}
	return list
}

func (c *Channel) notifyState(state State) {
	if c.recorder != nil {
		c.recorder.SetConnectionState(int(state))
	}
	c.observersMu.Lock()
	observers := make([]func(State), 0, len(c.stateObservers))
	for _, fn := range c.stateObservers {
		observers = append(observers, fn)
	}
	c.observersMu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
}
