// Package state reads fplug configuration: HCL file with includes,
// then command line flags on top.
package state

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/fplug/bridge"
	"github.com/temoto/fplug/helpers"
	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/plug"
	"github.com/temoto/fplug/poll"
	"github.com/temoto/fplug/tele"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Device        string `hcl:"device"`
	IntervalSec   int    `hcl:"interval"`
	Debug         bool   `hcl:"debug"`
	HumanReadable bool   `hcl:"human_readable"`

	Bridge struct {
		Path string   `hcl:"path"`
		Args []string `hcl:"args"`
	} `hcl:"bridge"`
	Protocol struct {
		MaxResponseLength int `hcl:"max_response_length"`
	} `hcl:"protocol"`
	Tele tele.Config `hcl:"tele"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func NewConfig() *Config {
	return &Config{includeSeen: make(map[string]struct{})}
}

func (c *Config) Interval() time.Duration { return time.Duration(c.IntervalSec) * time.Second }

func (c *Config) MaxResponseLength() int {
	if c.Protocol.MaxResponseLength == 0 {
		return plug.DefaultMaxResponseLength
	}
	return c.Protocol.MaxResponseLength
}

func (c *Config) Poll() poll.Config {
	return poll.Config{
		Device:            c.Device,
		Interval:          c.Interval(),
		MaxResponseLength: c.MaxResponseLength(),
	}
}

func (c *Config) Spawner(log *log2.Log) *bridge.Spawner {
	return &bridge.Spawner{
		Path:  c.Bridge.Path,
		Args:  c.Bridge.Args,
		Debug: c.Debug,
		Log:   log,
	}
}

// Validate checks everything, device included. Call after flags are applied.
func (c *Config) Validate() error {
	errs := make([]error, 0, 4)
	if c.Device == "" {
		errs = append(errs, errors.NotValidf("device empty"))
	}
	if c.IntervalSec < 0 {
		errs = append(errs, errors.NotValidf("interval=%d", c.IntervalSec))
	}
	if l := c.Protocol.MaxResponseLength; l != 0 && l < plug.SuccessLength {
		errs = append(errs, errors.NotValidf("protocol max_response_length=%d less than %d", l, plug.SuccessLength))
	}
	if c.Tele.Enabled && c.Tele.MqttBroker == "" {
		errs = append(errs, errors.NotValidf("tele enabled without mqtt_broker"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig reads names in order, later values win.
// Relative includes resolve against directory of the first name.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := NewConfig()
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
