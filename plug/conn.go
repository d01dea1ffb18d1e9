// Package plug speaks the power query protocol of F-PLUG smart plug
// over any bridge.Stream.
package plug

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/fplug/bridge"
	"github.com/temoto/fplug/helpers"
	"github.com/temoto/fplug/log2"
)

type Options struct {
	MaxResponseLength int
	Log               *log2.Log
	// TID seed source, random by default
	Rand func() uint16
}

// Conn is one bridge stream plus transaction counter.
// Not safe for concurrent use, owner runs one transaction at a time.
type Conn struct {
	device  string
	stream  bridge.Stream
	tid     uint16
	matcher *Matcher
	log     *log2.Log
}

func Connect(dialer bridge.Dialer, device string, opt Options) (*Conn, error) {
	stream, err := dialer.Dial(device)
	if err != nil {
		return nil, errors.Wrapf(err, ErrConnect, "device=%s err=%v", device, err)
	}
	if stream == nil {
		return nil, errors.Annotatef(ErrConnect, "device=%s dialer returned nil stream", device)
	}
	seed := opt.Rand
	if seed == nil {
		seed = randomTID
	}
	self := &Conn{
		device:  device,
		stream:  stream,
		tid:     seed(),
		matcher: NewMatcher(opt.MaxResponseLength, opt.Log),
		log:     opt.Log,
	}
	self.log.Debugf("plug connected device=%s tid=%04x", device, self.tid)
	return self, nil
}

func randomTID() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint16(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint16(b[:])
}

func (self *Conn) Connected() bool { return self != nil && self.stream != nil }
func (self *Conn) Device() string  { return self.device }

// TID is next transaction identifier to be sent.
func (self *Conn) TID() uint16 { return self.tid }

// Close is idempotent. Conn is unusable afterwards.
func (self *Conn) Close() error {
	if self == nil || self.stream == nil {
		return nil
	}
	s := self.stream
	self.stream = nil
	self.log.Debugf("plug disconnect device=%s", self.device)
	return errors.Annotate(s.Close(), "plug close")
}

func (self *Conn) Write(p []byte) (int, error) {
	if self.stream == nil {
		return 0, ErrClosed
	}
	self.log.Debugf("plug send %d bytes", len(p))
	self.log.Dump(log2.LDebug, p)
	if err := helpers.WriteAll(self.stream, p); err != nil {
		return 0, errors.Trace(err)
	}
	return len(p), nil
}

// Read of 0 bytes without error means peer closed, reported as io.EOF.
func (self *Conn) Read(p []byte) (int, error) {
	if self.stream == nil {
		return 0, ErrClosed
	}
	n, err := self.stream.Read(p)
	if err != nil {
		return n, errors.Trace(err)
	}
	if n == 0 && len(p) != 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Query runs one transaction. Any error except device failure frame
// (which is not an error here, see Outcome.Kind) closes connection.
func (self *Conn) Query() (Outcome, error) {
	if !self.Connected() {
		return Outcome{}, errors.Trace(ErrClosed)
	}
	tid := self.tid
	req := BuildRequest(tid)
	self.tid = NextTID(tid)

	if _, err := self.Write(req[:]); err != nil {
		self.drop()
		return Outcome{}, errors.Annotatef(err, "request tid=%04x", tid)
	}
	o, err := self.matcher.Read(self)
	if err != nil {
		self.drop()
		return o, errors.Annotatef(err, "response tid=%04x", tid)
	}
	if got := FrameTID(o.Response); got != tid {
		self.log.Dump(log2.LDebug, o.Response)
		self.drop()
		return Outcome{Response: o.Response}, errors.Annotatef(ErrDesync, "%s tid=%04x expected=%04x", o.Kind, got, tid)
	}
	self.log.Debugf("plug recv tid=%04x outcome=%s power=%d", tid, o.Kind, o.Power)
	self.log.Dump(log2.LDebug, o.Response)
	return o, nil
}

// QueryPower maps Get_SNA frame to ErrDeviceFailure, connection stays open.
func (self *Conn) QueryPower() (Power, error) {
	o, err := self.Query()
	if err != nil {
		return 0, err
	}
	if o.Kind == OutcomeFailure {
		return 0, errors.Annotatef(ErrDeviceFailure, "tid=%04x", FrameTID(o.Response))
	}
	return o.Power, nil
}

func (self *Conn) drop() {
	if err := self.Close(); err != nil {
		self.log.Debugf("plug close err=%v", err)
	}
}
