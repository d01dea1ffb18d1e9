// Package poll drives power queries: one-shot or periodic,
// with reconnect after any transport or protocol failure.
package poll

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/fplug/bridge"
	"github.com/temoto/fplug/helpers/atomic_clock"
	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/plug"
)

type State uint8

const (
	StateDisconnected State = iota
	StateConnected
)

func (self State) String() string {
	switch self {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", uint8(self))
}

type Config struct {
	Device string
	// 0 = one-shot
	Interval          time.Duration
	MaxResponseLength int
}

// Reading is result of one cycle. Power is valid only when Ok.
type Reading struct {
	Time   time.Time
	Device string
	Power  plug.Power
	Ok     bool
	Err    error
}

func (self *Reading) Watts() float64 { return self.Power.Watts() }

func (self *Reading) String() string {
	if self.Ok {
		return fmt.Sprintf("device=%s power=%.1fW", self.Device, self.Watts())
	}
	return fmt.Sprintf("device=%s err=%v", self.Device, self.Err)
}

type Stat struct {
	Cycles          uint32
	Ok              uint32
	DeviceFailures  uint32
	Errors          uint32
	Connects        uint32
	ConnectFailures uint32
	LastOk          time.Time
}

func (self Stat) String() string {
	return fmt.Sprintf("cycles=%d ok=%d device_failures=%d errors=%d connects=%d connect_failures=%d last_ok=%s",
		self.Cycles, self.Ok, self.DeviceFailures, self.Errors, self.Connects, self.ConnectFailures, self.LastOk.Format(time.RFC3339))
}

type SleepFunc func(ctx context.Context, d time.Duration) error

// Driver exclusively owns plug connection. Cycle, Once and Run
// must not be called concurrently, Stat and State are safe from anywhere.
type Driver struct {
	config Config
	dialer bridge.Dialer
	log    *log2.Log

	conn  *plug.Conn
	state uint32

	mu       sync.Mutex
	handlers []func(Reading)

	// overridable in tests
	rand  func() uint16
	sleep SleepFunc

	stat struct {
		cycles          uint32
		ok              uint32
		deviceFailures  uint32
		errors          uint32
		connects        uint32
		connectFailures uint32
		lastOk          atomic_clock.Clock
	}
}

func New(config Config, dialer bridge.Dialer, log *log2.Log) *Driver {
	return &Driver{
		config: config,
		dialer: dialer,
		log:    log,
		sleep:  sleepContext,
	}
}

func (self *Driver) Config() Config { return self.config }

func (self *Driver) OnReading(fun func(Reading)) {
	self.mu.Lock()
	self.handlers = append(self.handlers, fun)
	self.mu.Unlock()
}

func (self *Driver) State() State { return State(atomic.LoadUint32(&self.state)) }

func (self *Driver) Stat() Stat {
	return Stat{
		Cycles:          atomic.LoadUint32(&self.stat.cycles),
		Ok:              atomic.LoadUint32(&self.stat.ok),
		DeviceFailures:  atomic.LoadUint32(&self.stat.deviceFailures),
		Errors:          atomic.LoadUint32(&self.stat.errors),
		Connects:        atomic.LoadUint32(&self.stat.connects),
		ConnectFailures: atomic.LoadUint32(&self.stat.connectFailures),
		LastOk:          self.stat.lastOk.Time(),
	}
}

// Connect is no-op when already connected.
func (self *Driver) Connect() error {
	if self.conn.Connected() {
		return nil
	}
	conn, err := plug.Connect(self.dialer, self.config.Device, plug.Options{
		MaxResponseLength: self.config.MaxResponseLength,
		Log:               self.log,
		Rand:              self.rand,
	})
	if err != nil {
		atomic.AddUint32(&self.stat.connectFailures, 1)
		return err
	}
	atomic.AddUint32(&self.stat.connects, 1)
	self.conn = conn
	self.setState(StateConnected)
	return nil
}

// Disconnect is idempotent.
func (self *Driver) Disconnect() {
	if self.conn != nil {
		if err := self.conn.Close(); err != nil {
			self.log.Debugf("poll disconnect err=%v", err)
		}
		self.conn = nil
	}
	self.setState(StateDisconnected)
}

func (self *Driver) setState(s State) {
	if old := State(atomic.SwapUint32(&self.state, uint32(s))); old != s {
		self.log.Debugf("poll state %s -> %s", old, s)
	}
}

// Cycle performs one query, connecting first if needed.
// Transport and protocol errors leave driver disconnected,
// device failure frame keeps connection.
func (self *Driver) Cycle(ctx context.Context) Reading {
	atomic.AddUint32(&self.stat.cycles, 1)
	r := Reading{Time: time.Now(), Device: self.config.Device}

	if err := self.Connect(); err != nil {
		r.Err = err
		atomic.AddUint32(&self.stat.errors, 1)
		self.logError(log2.LError, err)
		self.emit(r)
		return r
	}

	p, err := self.conn.QueryPower()
	switch {
	case err == nil:
		r.Ok = true
		r.Power = p
		atomic.AddUint32(&self.stat.ok, 1)
		self.stat.lastOk.SetTime(r.Time)
	case plug.IsDeviceFailure(err):
		r.Err = err
		atomic.AddUint32(&self.stat.deviceFailures, 1)
		self.logError(log2.LDebug, err)
	default:
		r.Err = err
		atomic.AddUint32(&self.stat.errors, 1)
		self.logError(log2.LDebug, err)
		self.Disconnect()
	}
	self.emit(r)
	return r
}

// Once runs single cycle then disconnects unconditionally.
func (self *Driver) Once(ctx context.Context) Reading {
	defer self.Disconnect()
	return self.Cycle(ctx)
}

// Run repeats cycles with fixed delay until ctx is done.
// Cancel is observed only between cycles.
func (self *Driver) Run(ctx context.Context) error {
	if self.config.Interval <= 0 {
		return errors.NotValidf("poll interval=%v", self.config.Interval)
	}
	defer self.Disconnect()
	for {
		if ctx.Err() != nil {
			return nil
		}
		self.Cycle(ctx)
		if err := self.sleep(ctx, self.config.Interval); err != nil {
			return nil
		}
	}
}

func (self *Driver) emit(r Reading) {
	self.mu.Lock()
	hs := self.handlers
	self.mu.Unlock()
	for _, h := range hs {
		h(r)
	}
}

func (self *Driver) logError(level log2.Level, err error) {
	if !self.log.Enabled(level) {
		return
	}
	kind := plug.Kind(err)
	if self.log.Enabled(log2.LDebug) {
		self.log.Logf(level, "poll device=%s kind=%s err=%s", self.config.Device, kind, errors.ErrorStack(err))
	} else {
		self.log.Logf(level, "poll device=%s kind=%s err=%v", self.config.Device, kind, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
