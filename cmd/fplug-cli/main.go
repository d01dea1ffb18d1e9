// fplug-cli is interactive shell to poke F-PLUG by hand.
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/fplug/bridge"
	"github.com/temoto/fplug/engine"
	"github.com/temoto/fplug/helpers/cli"
	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/poll"
	"github.com/temoto/fplug/state"
)

const usage = `syntax: commands separated by whitespace
(main)
- connect     start bridge
- disconnect  stop bridge
- query       read instant power, connect if needed
- stat        show counters
- sN          pause N milliseconds

(meta)
- log=yes  enable debug logging
- log=no   disable debug logging
- loop=N   repeat N times all commands on this line
`

const contextKeyShell = "run/shell"

type shell struct {
	log *log2.Log
	drv *poll.Driver
}

func getShell(ctx context.Context) *shell {
	return ctx.Value(contextKeyShell).(*shell)
}

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	device := cmdline.String("device", "", "F-PLUG name or address")
	configPath := cmdline.String("config", "", "HCL config file")
	bridgePath := cmdline.String("bridge", "", "bridge executable, default "+bridge.DefaultPath)
	_ = cmdline.Parse(os.Args[1:])

	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(log2.LInteractiveFlags)

	config := state.NewConfig()
	if *configPath != "" {
		config = state.MustReadConfig(log, state.NewOsFullReader(), *configPath)
	}
	if *device != "" {
		config.Device = *device
	}
	if *bridgePath != "" {
		config.Bridge.Path = *bridgePath
	}
	config.Debug = true
	if err := config.Validate(); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}

	sh := &shell{log: log}
	sh.drv = poll.New(config.Poll(), config.Spawner(log), log)
	sh.drv.OnReading(func(r poll.Reading) { log.Infof("< %s", r.String()) })
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, contextKeyShell, sh)

	cli.MainLoop("fplug-cli", newExecutor(ctx), newCompleter(ctx), sh.drv.Disconnect)
	sh.drv.Disconnect()
}

var doUsage = engine.Func{Name: "help", F: func(ctx context.Context) error {
	getShell(ctx).log.Infof(usage)
	return nil
}}
var doLogYes = engine.Func{Name: "log=yes", F: func(ctx context.Context) error {
	getShell(ctx).log.SetLevel(log2.LDebug)
	return nil
}}
var doLogNo = engine.Func{Name: "log=no", F: func(ctx context.Context) error {
	getShell(ctx).log.SetLevel(log2.LInfo)
	return nil
}}
var doConnect = engine.Func{Name: "connect", F: func(ctx context.Context) error {
	return getShell(ctx).drv.Connect()
}}
var doDisconnect = engine.Func{Name: "disconnect", F: func(ctx context.Context) error {
	getShell(ctx).drv.Disconnect()
	return nil
}}
var doQuery = engine.Func{Name: "query", F: func(ctx context.Context) error {
	r := getShell(ctx).drv.Cycle(ctx)
	return r.Err
}}
var doStat = engine.Func{Name: "stat", F: func(ctx context.Context) error {
	sh := getShell(ctx)
	sh.log.Infof("state=%s %s", sh.drv.State(), sh.drv.Stat().String())
	return nil
}}

func newCompleter(ctx context.Context) func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "connect", Description: "start bridge"},
		{Text: "disconnect", Description: "stop bridge"},
		{Text: "query", Description: "read instant power"},
		{Text: "stat", Description: "show counters"},
		{Text: "sN", Description: "pause for N ms"},
		{Text: "loop=N", Description: "repeat line N times"},
		{Text: "log=yes", Description: "debug logging"},
		{Text: "help", Description: "show commands"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context) func(string) {
	sh := getShell(ctx)
	return func(line string) {
		d, err := parseLine(line)
		if err != nil {
			sh.log.Errorf(errors.ErrorStack(err))
			return
		}
		err = d.Do(ctx)
		if err != nil {
			sh.log.Errorf(errors.ErrorStack(err))
		}
	}
}

func parseLine(line string) (engine.Doer, error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return engine.Nothing{}, nil
	}

	// pre-parse special commands
	loopn := uint(0)
	wordsRest := make([]string, 0, len(words))
	for _, word := range words {
		switch {
		case word == "help":
			return doUsage, nil
		case strings.HasPrefix(word, "loop="):
			if loopn != 0 {
				return nil, errors.Errorf("multiple loop commands, expected at most one")
			}
			i, err := strconv.ParseUint(word[5:], 10, 32)
			if err != nil {
				return nil, errors.Annotatef(err, "word=%s", word)
			}
			loopn = uint(i)
		default:
			wordsRest = append(wordsRest, word)
		}
	}

	tx := engine.NewSeq("input:" + line)
	for _, word := range wordsRest {
		d, err := parseCommand(word)
		if err != nil {
			return nil, err
		}
		tx.Append(d)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if loopn != 0 {
		return engine.RepeatN{N: loopn, D: tx}, nil
	}
	return tx, nil
}

func parseCommand(word string) (engine.Doer, error) {
	switch {
	case word == "log=yes":
		return doLogYes, nil
	case word == "log=no":
		return doLogNo, nil
	case word == "connect":
		return doConnect, nil
	case word == "disconnect":
		return doDisconnect, nil
	case word == "query":
		return doQuery, nil
	case word == "stat":
		return doStat, nil
	case word[0] == 's':
		i, err := strconv.ParseUint(word[1:], 10, 32)
		if err != nil {
			return nil, errors.Annotatef(err, "word=%s", word)
		}
		return engine.Sleep{Duration: time.Duration(i) * time.Millisecond}, nil
	default:
		return nil, errors.Annotatef(engine.ErrUnknownCommand, "word='%s'", word)
	}
}
