package bridge

// Public API to easy create device stubs to test your code.
import (
	"bytes"
	"io"
	"sync"
)

// Mock Stream over independent reader and writer.
type nullStream struct {
	r io.Reader
	w io.Writer
}

func NewNullStream(r io.Reader, w io.Writer) *nullStream {
	return &nullStream{r: r, w: w}
}

func (self *nullStream) Read(p []byte) (int, error) {
	if self.r == nil {
		return 0, io.ErrClosedPipe
	}
	return self.r.Read(p)
}

func (self *nullStream) Write(p []byte) (int, error) {
	if self.w == nil {
		return 0, io.ErrClosedPipe
	}
	return self.w.Write(p)
}

func (self *nullStream) Close() error {
	self.r = nil
	self.w = nil
	return nil
}

// ReplyFunc returns bytes the device sends back for one request.
type ReplyFunc func(request []byte) []byte

// ScriptStream answers each complete request with the next scripted reply.
// Read returns io.EOF when no reply is pending.
type ScriptStream struct {
	mu       sync.Mutex
	reqLen   int
	wbuf     []byte
	rbuf     bytes.Buffer
	script   []ReplyFunc
	requests [][]byte
	closed   bool
}

func NewScriptStream(requestLength int, script ...ReplyFunc) *ScriptStream {
	return &ScriptStream{reqLen: requestLength, script: script}
}

func (self *ScriptStream) Write(p []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return 0, io.ErrClosedPipe
	}
	self.wbuf = append(self.wbuf, p...)
	for len(self.wbuf) >= self.reqLen {
		req := append([]byte(nil), self.wbuf[:self.reqLen]...)
		self.wbuf = self.wbuf[self.reqLen:]
		self.requests = append(self.requests, req)
		if len(self.script) != 0 {
			fun := self.script[0]
			self.script = self.script[1:]
			self.rbuf.Write(fun(req))
		}
	}
	return len(p), nil
}

func (self *ScriptStream) Read(p []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return 0, io.ErrClosedPipe
	}
	if self.rbuf.Len() == 0 {
		return 0, io.EOF
	}
	return self.rbuf.Read(p)
}

func (self *ScriptStream) Close() error {
	self.mu.Lock()
	self.closed = true
	self.mu.Unlock()
	return nil
}

func (self *ScriptStream) Closed() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.closed
}

func (self *ScriptStream) Requests() [][]byte {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([][]byte(nil), self.requests...)
}

// PipeDevice is an in-process duplex pipe. Host() is the Stream handed to
// the code under test, Device side reads requests and writes responses.
type PipeDevice struct {
	hostR   *io.PipeReader
	hostW   *io.PipeWriter
	DeviceR *io.PipeReader
	DeviceW *io.PipeWriter
}

func NewPipeDevice() *PipeDevice {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	return &PipeDevice{
		hostR:   respR,
		hostW:   reqW,
		DeviceR: reqR,
		DeviceW: respW,
	}
}

func (self *PipeDevice) Host() Stream { return pipeHost{self} }

type pipeHost struct{ d *PipeDevice }

func (self pipeHost) Read(p []byte) (int, error)  { return self.d.hostR.Read(p) }
func (self pipeHost) Write(p []byte) (int, error) { return self.d.hostW.Write(p) }
func (self pipeHost) Close() error {
	_ = self.d.hostW.Close()
	return self.d.hostR.Close()
}
