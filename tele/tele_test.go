package tele

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/plug"
	"github.com/temoto/fplug/poll"
)

type transportMock struct {
	mu       sync.Mutex
	initErr  error
	fail     bool
	block    chan struct{}
	closed   bool
	topics   []string
	payloads [][]byte
}

func (self *transportMock) Init(ctx context.Context, log *log2.Log, c Config) error { return self.initErr }
func (self *transportMock) Publish(topic string, payload []byte) bool {
	if self.block != nil {
		<-self.block
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	self.topics = append(self.topics, topic)
	self.payloads = append(self.payloads, payload)
	return !self.fail
}
func (self *transportMock) Close() {
	self.mu.Lock()
	self.closed = true
	self.mu.Unlock()
}

func TestNewDisabled(t *testing.T) {
	t.Parallel()
	tl := New(Config{})
	assert.Equal(t, Noop{}, tl)
	require.NoError(t, tl.Init(context.Background(), nil, Config{}))
	tl.Reading(poll.Reading{})
	tl.Close()

	_, ok := New(Config{Enabled: true}).(*tele)
	assert.True(t, ok)
}

func TestInitNoBroker(t *testing.T) {
	t.Parallel()
	tl := &tele{transport: &transportMock{}}
	err := tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), Config{Enabled: true})
	assert.True(t, errors.IsNotValid(err))
}

func TestInitTransportError(t *testing.T) {
	t.Parallel()
	tl := &tele{transport: &transportMock{initErr: errors.New("dial tcp: refused")}}
	err := tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), Config{Enabled: true, MqttBroker: "tcp://localhost:1883"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tele init: dial tcp: refused")
}

func TestPublishReadings(t *testing.T) {
	t.Parallel()
	tm := &transportMock{}
	tl := &tele{transport: tm}
	c := Config{Enabled: true, MqttBroker: "tcp://localhost:1883", TopicPrefix: "home/plug", LogDebug: true}
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), c))

	tim := time.Unix(1700000000, 0)
	tl.Reading(poll.Reading{Time: tim, Device: "fplug0", Ok: true, Power: 100})
	tl.Reading(poll.Reading{Time: tim, Device: "fplug0", Err: errors.Annotate(plug.ErrDesync, "tid=0012")})
	tl.Close()
	tl.Close()

	assert.True(t, tm.closed)
	require.Len(t, tm.payloads, 2)
	assert.Equal(t, []string{"home/plug/power", "home/plug/power"}, tm.topics)

	var m Reading
	require.NoError(t, proto.Unmarshal(tm.payloads[0], &m))
	assert.Equal(t, tim.UnixNano(), m.Time)
	assert.Equal(t, uint32(100), m.PowerDeciwatt)
	assert.True(t, m.Ok)
	assert.Equal(t, "fplug0", m.Device)

	m.Reset()
	require.NoError(t, proto.Unmarshal(tm.payloads[1], &m))
	assert.False(t, m.Ok)
	assert.Equal(t, "desync", m.ErrorKind)
	assert.Equal(t, "tid=0012: protocol desync", m.Error)
	assert.Equal(t, Stat{Sent: 2}, tl.Stat())
}

func TestPublishDropWhenFull(t *testing.T) {
	t.Parallel()
	tm := &transportMock{block: make(chan struct{}), fail: true}
	tl := &tele{transport: tm}
	c := Config{Enabled: true, MqttBroker: "tcp://localhost:1883", QueueSize: 1}
	require.NoError(t, tl.Init(context.Background(), log2.NewTest(t, log2.LDebug), c))

	// worker takes first and blocks in Publish, second waits in queue, rest dropped
	tl.Reading(poll.Reading{Ok: true})
	for len(tl.queue) != 0 {
		time.Sleep(time.Millisecond)
	}
	for i := 0; i < 4; i++ {
		tl.Reading(poll.Reading{Ok: true})
	}
	close(tm.block)
	tl.Close()
	st := tl.Stat()
	assert.Equal(t, uint32(3), st.Dropped)
	assert.Equal(t, uint32(2), st.Failed)
	assert.Equal(t, uint32(0), st.Sent)
}

func TestReadingWire(t *testing.T) {
	t.Parallel()
	b, err := proto.Marshal(&Reading{PowerDeciwatt: 100, Ok: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x64, 0x18, 0x01}, b)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	c := Config{}
	assert.Equal(t, "fplug", c.clientID())
	assert.Equal(t, "fplug", c.topicPrefix())
	assert.Equal(t, DefaultQueueSize, c.queueSize())
	c = Config{ClientID: "a", TopicPrefix: "b", QueueSize: 2}
	assert.Equal(t, "a", c.clientID())
	assert.Equal(t, "b", c.topicPrefix())
	assert.Equal(t, 2, c.queueSize())
}
