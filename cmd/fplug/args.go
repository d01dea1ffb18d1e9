package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/juju/errors"
	"github.com/temoto/fplug/state"
)

const usage = `usage: fplug [--debug] [--interval seconds] [-h] [--config path] device

  device      F-PLUG name or address, passed to bridge as last argument
  --debug     hex dump of traffic and protocol state on stderr
  --interval  seconds between queries, 0 = query once and exit
  -h          human readable output: Power Consumption: 12.3W
  --config    HCL config file, flags override its values
`

type Args struct {
	Device        string
	ConfigPath    string
	Debug         bool
	HumanReadable bool
	Interval      int

	set map[string]bool
}

// ParseArgs accepts options before and after device.
func ParseArgs(name string, argv []string) (*Args, error) {
	a := &Args{set: make(map[string]bool)}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)
	fs.StringVar(&a.ConfigPath, "config", "", "")
	fs.BoolVar(&a.Debug, "debug", false, "")
	fs.BoolVar(&a.HumanReadable, "h", false, "")
	fs.IntVar(&a.Interval, "interval", 0, "")

	positional := make([]string, 0, 1)
	rest := argv
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, errors.Annotate(err, "arguments")
		}
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		positional = append(positional, rest[0])
		rest = rest[1:]
	}
	fs.Visit(func(f *flag.Flag) { a.set[f.Name] = true })

	switch len(positional) {
	case 0:
		return nil, errors.NotValidf("device not specified")
	case 1:
		a.Device = positional[0]
	default:
		return nil, errors.NotValidf("extra arguments %q", positional[1:])
	}
	if a.Interval < 0 {
		return nil, errors.NotValidf("interval=%d", a.Interval)
	}
	return a, nil
}

// Apply overrides config with explicitly given flags.
func (self *Args) Apply(c *state.Config) {
	c.Device = self.Device
	if self.set["debug"] {
		c.Debug = self.Debug
	}
	if self.set["h"] {
		c.HumanReadable = self.HumanReadable
	}
	if self.set["interval"] {
		c.IntervalSec = self.Interval
	}
}

func printUsage(w io.Writer, err error) {
	fmt.Fprintf(w, "fplug: %v\n%s", err, usage)
}
