// Package bridge runs the external helper process that exposes a serial or
// RFCOMM device as a plain byte stream on its stdin/stdout.
package bridge

import (
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/juju/errors"
	"github.com/temoto/fplug/log2"
)

const (
	DefaultPath = "/usr/bin/rfcomm_sppd"
)

var DefaultArgs = []string{"-a"}

// Stream is a duplex byte channel to the device.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

type Dialer interface {
	Dial(device string) (Stream, error)
}

type DialFunc func(device string) (Stream, error)

func (f DialFunc) Dial(device string) (Stream, error) { return f(device) }

// Spawner starts `Path Args... device` with stdin/stdout bound to pipes.
// Child stderr is inherited only when Debug is set.
type Spawner struct {
	Path  string
	Args  []string
	Debug bool
	Log   *log2.Log
}

func (self *Spawner) Dial(device string) (Stream, error) {
	p, err := self.Spawn(device)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (self *Spawner) argv(device string) (string, []string) {
	path := self.Path
	if path == "" {
		path = DefaultPath
	}
	args := self.Args
	if args == nil {
		args = DefaultArgs
	}
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, path)
	argv = append(argv, args...)
	argv = append(argv, device)
	return path, argv
}

func (self *Spawner) Spawn(device string) (*Process, error) {
	path, argv := self.argv(device)

	// one pipe to send requests to bridge and one to receive responses
	opened := make([]*os.File, 0, 4)
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	fSendRead, fSendWrite, err := os.Pipe()
	if err != nil {
		return nil, errors.Annotate(err, "bridge pipe")
	}
	opened = append(opened, fSendRead, fSendWrite)
	fRecvRead, fRecvWrite, err := os.Pipe()
	if err != nil {
		closeAll()
		return nil, errors.Annotate(err, "bridge pipe")
	}
	opened = append(opened, fRecvRead, fRecvWrite)

	var stderr *os.File
	if self.Debug {
		stderr = os.Stderr
	}
	attr := &os.ProcAttr{
		Files: []*os.File{fSendRead, fRecvWrite, stderr},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}
	proc, err := os.StartProcess(path, argv, attr)
	if err != nil {
		closeAll()
		return nil, errors.Annotatef(err, "bridge start %v", argv)
	}
	// child owns its ends now
	_ = fSendRead.Close()
	_ = fRecvWrite.Close()
	self.Log.Debugf("bridge started pid=%d argv=%v", proc.Pid, argv)

	return &Process{
		proc: proc,
		rf:   fRecvRead,
		wf:   fSendWrite,
		log:  self.Log,
	}, nil
}

// Process is a running bridge. Safe for one reader and one writer,
// Close may be called from any goroutine, any number of times.
type Process struct {
	mu   sync.Mutex
	proc *os.Process
	rf   *os.File
	wf   *os.File
	log  *log2.Log
}

func (self *Process) Pid() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.proc == nil {
		return 0
	}
	return self.proc.Pid
}

func (self *Process) Read(p []byte) (int, error) {
	self.mu.Lock()
	rf := self.rf
	self.mu.Unlock()
	if rf == nil {
		return 0, os.ErrClosed
	}
	return rf.Read(p)
}

func (self *Process) Write(p []byte) (int, error) {
	self.mu.Lock()
	wf := self.wf
	self.mu.Unlock()
	if wf == nil {
		return 0, os.ErrClosed
	}
	return wf.Write(p)
}

// Close releases both pipes and reaps the child without blocking.
func (self *Process) Close() error {
	self.mu.Lock()
	proc, rf, wf := self.proc, self.rf, self.wf
	self.proc, self.rf, self.wf = nil, nil, nil
	self.mu.Unlock()
	if proc == nil {
		return nil
	}

	var errs []error
	if err := wf.Close(); err != nil {
		errs = append(errs, errors.Annotate(err, "bridge close stdin"))
	}
	if err := rf.Close(); err != nil {
		errs = append(errs, errors.Annotate(err, "bridge close stdout"))
	}
	reap(proc, self.log)
	if len(errs) != 0 {
		return errs[0]
	}
	return nil
}
