// Package tele publishes poll readings to MQTT broker.
// Telemetry is best effort, failures never reach poll loop.
package tele

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/plug"
	"github.com/temoto/fplug/poll"
)

//go:generate protoc --go_out=./ tele.proto

// Teler telemetry client.
type Teler interface {
	Init(context.Context, *log2.Log, Config) error
	Reading(poll.Reading)
	Close()
}

type transporter interface {
	Init(ctx context.Context, log *log2.Log, c Config) error
	Publish(topic string, payload []byte) bool
	Close()
}

type Stat struct {
	Sent    uint32
	Failed  uint32
	Dropped uint32
}

// New returns Noop when telemetry is disabled.
func New(c Config) Teler {
	if !c.Enabled {
		return Noop{}
	}
	return &tele{transport: &transportMqtt{}}
}

type tele struct {
	log       *log2.Log
	transport transporter
	topic     string
	queue     chan *Reading
	wg        sync.WaitGroup
	closeOnce sync.Once
	stat      Stat
}

func (self *tele) Init(ctx context.Context, log *log2.Log, c Config) error {
	self.log = log
	if !c.LogDebug && log.Enabled(log2.LDebug) {
		self.log = log.Clone(log2.LInfo)
	}
	if c.MqttBroker == "" {
		return errors.NotValidf("tele mqtt_broker empty")
	}
	self.topic = c.topicPrefix() + "/power"
	self.queue = make(chan *Reading, c.queueSize())
	if err := self.transport.Init(ctx, self.log, c); err != nil {
		return errors.Annotate(err, "tele init")
	}
	self.wg.Add(1)
	go self.worker()
	return nil
}

// Reading enqueues r, drops it when queue is full.
func (self *tele) Reading(r poll.Reading) {
	msg := NewReading(r)
	select {
	case self.queue <- msg:
	default:
		atomic.AddUint32(&self.stat.Dropped, 1)
		self.log.Debugf("tele queue full, drop %s", msg.String())
	}
}

func (self *tele) Close() {
	self.closeOnce.Do(func() {
		close(self.queue)
		self.wg.Wait()
		self.transport.Close()
	})
}

func (self *tele) Stat() Stat {
	return Stat{
		Sent:    atomic.LoadUint32(&self.stat.Sent),
		Failed:  atomic.LoadUint32(&self.stat.Failed),
		Dropped: atomic.LoadUint32(&self.stat.Dropped),
	}
}

func (self *tele) worker() {
	defer self.wg.Done()
	for msg := range self.queue {
		payload, err := proto.Marshal(msg)
		if err != nil {
			atomic.AddUint32(&self.stat.Failed, 1)
			self.log.Errorf("tele marshal err=%v", err)
			continue
		}
		if self.transport.Publish(self.topic, payload) {
			atomic.AddUint32(&self.stat.Sent, 1)
		} else {
			atomic.AddUint32(&self.stat.Failed, 1)
		}
	}
}

func NewReading(r poll.Reading) *Reading {
	msg := &Reading{
		Time:   r.Time.UnixNano(),
		Ok:     r.Ok,
		Device: r.Device,
	}
	if r.Ok {
		msg.PowerDeciwatt = uint32(r.Power)
	}
	if r.Err != nil {
		msg.Error = r.Err.Error()
		msg.ErrorKind = plug.Kind(r.Err).String()
	}
	return msg
}
