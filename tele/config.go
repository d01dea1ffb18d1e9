package tele

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	ClientID          string `hcl:"client_id"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	LogDebug          bool   `hcl:"log_debug"`
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	MqttUsername      string `hcl:"mqtt_username"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	QueueSize         int    `hcl:"queue_size"`
	TlsCaFile         string `hcl:"tls_ca_file"`
	TopicPrefix       string `hcl:"topic_prefix"`
}

const (
	DefaultClientID    = "fplug"
	DefaultTopicPrefix = "fplug"
	DefaultQueueSize   = 16
)

func (self *Config) clientID() string {
	if self.ClientID == "" {
		return DefaultClientID
	}
	return self.ClientID
}

func (self *Config) topicPrefix() string {
	if self.TopicPrefix == "" {
		return DefaultTopicPrefix
	}
	return self.TopicPrefix
}

func (self *Config) queueSize() int {
	if self.QueueSize <= 0 {
		return DefaultQueueSize
	}
	return self.QueueSize
}
