package tele

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"
	"github.com/temoto/fplug/helpers"
	"github.com/temoto/fplug/log2"
)

const defaultNetworkTimeout = 30 * time.Second

type transportMqtt struct {
	log    *log2.Log
	m      mqtt.Client
	mopt   *mqtt.ClientOptions
	stopCh chan struct{}

	networkTimeout time.Duration
	topicOnline    string
}

func (self *transportMqtt) Init(ctx context.Context, log *log2.Log, teleConfig Config) error {
	self.log = log
	self.stopCh = make(chan struct{})
	mqttLog := self.log.Clone(log2.LDebug)
	mqtt.CRITICAL = mqttLog
	mqtt.ERROR = mqttLog
	mqtt.WARN = mqttLog
	if teleConfig.MqttLogDebug {
		mqtt.DEBUG = mqttLog
	}

	self.topicOnline = teleConfig.topicPrefix() + "/online"

	self.networkTimeout = helpers.IntSecondDefault(teleConfig.NetworkTimeoutSec, defaultNetworkTimeout)
	if self.networkTimeout < 1*time.Second {
		self.networkTimeout = 1 * time.Second
	}
	connectTimeout := self.networkTimeout * 3
	keepaliveTimeout := helpers.IntSecondDefault(teleConfig.KeepaliveSec, self.networkTimeout/2)

	tlsconf := new(tls.Config)
	if teleConfig.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(teleConfig.TlsCaFile)
		if err != nil {
			return errors.Annotatef(err, "tele tls_ca_file=%s", teleConfig.TlsCaFile)
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}
	onConnect := func(c mqtt.Client) {
		self.log.Debugf("tele mqtt connected")
		t := c.Publish(self.topicOnline, 1, true, "1")
		_ = self.tokenWait(t, "publish online")
	}
	self.mopt = mqtt.NewClientOptions().
		AddBroker(teleConfig.MqttBroker).
		SetAutoReconnect(true).
		SetWill(self.topicOnline, "0", 1, true).
		SetCleanSession(true).
		SetClientID(teleConfig.clientID()).
		SetUsername(teleConfig.MqttUsername).
		SetPassword(teleConfig.MqttPassword).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepaliveTimeout).
		SetMaxReconnectInterval(connectTimeout).
		SetOnConnectHandler(onConnect).
		SetPingTimeout(self.networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(self.networkTimeout)
	self.m = mqtt.NewClient(self.mopt)

	go self.online()
	return nil
}

func (self *transportMqtt) Close() {
	close(self.stopCh)
	if self.m.IsConnected() {
		t := self.m.Publish(self.topicOnline, 1, true, "0")
		_ = self.tokenWait(t, "publish offline")
		self.m.Disconnect(uint(self.networkTimeout / time.Millisecond))
	}
}

func (self *transportMqtt) Publish(topic string, payload []byte) bool {
	if !self.m.IsConnected() {
		self.log.Debugf("tele not connected, skip topic=%s", topic)
		return false
	}
	t := self.m.Publish(topic, 0, true, payload)
	return self.tokenWait(t, "publish "+topic) == nil
}

func (self *transportMqtt) online() {
	for self.isRunning() {
		self.log.Debugf("tele connect before")
		t := self.m.Connect()
		if self.tokenWait(t, "connect") == nil {
			return // success path, reconnect is paho job now
		}
		self.log.Debugf("tele connect after")
		select {
		case <-self.stopCh:
		case <-time.After(1 * time.Second):
		}
	}
}

func (self *transportMqtt) isRunning() bool {
	select {
	case <-self.stopCh:
		return false
	default:
		return true
	}
}

func (self *transportMqtt) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.networkTimeout) {
		err := errors.Timeoutf("%s", tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
