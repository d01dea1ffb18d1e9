package state

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/fplug/bridge"
	"github.com/temoto/fplug/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, c *Config) {
			assert.Equal(t, "", c.Device)
			assert.Equal(t, time.Duration(0), c.Interval())
			assert.Equal(t, 64, c.MaxResponseLength())
			assert.False(t, c.Tele.Enabled)
			s := c.Spawner(nil)
			assert.Equal(t, "", s.Path)
			assert.Nil(t, s.Args)
		}, ""},

		{"full", `
device = "fplug0"
interval = 5
debug = true
human_readable = true
bridge { path = "/usr/local/bin/rfcomm_sppd" args = ["-d", "-a"] }
protocol { max_response_length = 32 }
tele {
	enable = true
	mqtt_broker = "tcp://broker:1883"
	client_id = "kitchen"
	topic_prefix = "home/kitchen/plug"
	network_timeout_sec = 7
}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "fplug0", c.Device)
				assert.Equal(t, 5*time.Second, c.Interval())
				assert.True(t, c.Debug)
				assert.True(t, c.HumanReadable)
				assert.Equal(t, "/usr/local/bin/rfcomm_sppd", c.Bridge.Path)
				assert.Equal(t, []string{"-d", "-a"}, c.Bridge.Args)
				assert.Equal(t, 32, c.MaxResponseLength())
				assert.True(t, c.Tele.Enabled)
				assert.Equal(t, "tcp://broker:1883", c.Tele.MqttBroker)
				assert.Equal(t, "kitchen", c.Tele.ClientID)
				assert.Equal(t, "home/kitchen/plug", c.Tele.TopicPrefix)
				assert.Equal(t, 7, c.Tele.NetworkTimeoutSec)
				assert.NoError(t, c.Validate())

				pc := c.Poll()
				assert.Equal(t, "fplug0", pc.Device)
				assert.Equal(t, 5*time.Second, pc.Interval)
				assert.Equal(t, 32, pc.MaxResponseLength)
				s := c.Spawner(nil)
				assert.Equal(t, &bridge.Spawner{Path: "/usr/local/bin/rfcomm_sppd", Args: []string{"-d", "-a"}, Debug: true}, s)
			},
			"",
		},

		{"include-normalize", `
device = "a"
include "./empty" {}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, "a", c.Device)
			}, ""},

		{"include-optional", `
include "interval-7" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, 7, c.IntervalSec)
			}, ""},

		{"include-overwrites", `
interval = 1
device = "keep"
include "interval-7" {}`,
			func(t testing.TB, c *Config) {
				assert.Equal(t, 7, c.IntervalSec)
				assert.Equal(t, "keep", c.Device)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-required", `include "non-exist" {}`, nil, "config required name=non-exist"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)
			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"interval-7":   "interval = 7",
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, cfg)
				}
			} else {
				if err == nil || !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	c := NewConfig()
	c.IntervalSec = -1
	c.Protocol.MaxResponseLength = 10
	c.Tele.Enabled = true
	err := c.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "device empty not valid")
	assert.Contains(t, msg, "interval=-1 not valid")
	assert.Contains(t, msg, "max_response_length=10 less than 16 not valid")
	assert.Contains(t, msg, "tele enabled without mqtt_broker not valid")

	c = NewConfig()
	c.Device = "fplug0"
	assert.NoError(t, c.Validate())
}

func TestReadConfigOs(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "fplug-config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "main.hcl"), []byte(`
device = "fplug0"
include "local.hcl" { optional = true }
include "tele.hcl" {}`), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "tele.hcl"), []byte(`tele { enable = true mqtt_broker = "tcp://x:1883" }`), 0o644))

	c, err := ReadConfig(log2.NewTest(t, log2.LDebug), NewOsFullReader(), filepath.Join(dir, "main.hcl"))
	require.NoError(t, err, errors.ErrorStack(err))
	assert.Equal(t, "fplug0", c.Device)
	assert.Equal(t, "tcp://x:1883", c.Tele.MqttBroker)

	_, err = ReadConfig(nil, NewOsFullReader(), filepath.Join(dir, "missing.hcl"))
	assert.True(t, errors.IsNotFound(err) || strings.Contains(err.Error(), "not found"))
}

func TestReadConfigNoNames(t *testing.T) {
	t.Parallel()
	_, err := ReadConfig(nil, NewMockFullReader(nil))
	assert.Error(t, err)
}
