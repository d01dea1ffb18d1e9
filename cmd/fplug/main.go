// fplug prints instant power consumption of F-PLUG smart plug,
// once or periodically.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/fplug/bridge"
	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/plug"
	"github.com/temoto/fplug/poll"
	"github.com/temoto/fplug/state"
	"github.com/temoto/fplug/tele"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type printer struct {
	w     io.Writer
	human bool
}

func (self printer) print(r poll.Reading) {
	if !r.Ok {
		return
	}
	if self.human {
		fmt.Fprintf(self.w, "Power Consumption: %.1fW\n", r.Watts())
	} else {
		fmt.Fprintf(self.w, "%.1f\n", r.Watts())
	}
}

func run(argv []string, stdout, stderr io.Writer) int {
	args, err := ParseArgs("fplug", argv)
	if err != nil {
		printUsage(stderr, err)
		return 1
	}

	log := log2.NewWriter(stderr, log2.LError)
	config := state.NewConfig()
	if args.ConfigPath != "" {
		if config, err = state.ReadConfig(log, state.NewOsFullReader(), args.ConfigPath); err != nil {
			log.Errorf("%v", err)
			return 1
		}
	}
	args.Apply(config)
	if config.Debug {
		log.SetLevel(log2.LDebug)
	}
	if err = config.Validate(); err != nil {
		printUsage(stderr, err)
		return 1
	}
	return runConfig(config, config.Spawner(log), log, stdout)
}

func runConfig(config *state.Config, dialer bridge.Dialer, log *log2.Log, stdout io.Writer) int {
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	drv := poll.New(config.Poll(), dialer, log)
	drv.OnReading(printer{w: stdout, human: config.HumanReadable}.print)

	teler := tele.New(config.Tele)
	if err := teler.Init(ctx, log, config.Tele); err != nil {
		log.Errorf("telemetry disabled: %v", errors.ErrorStack(err))
		teler = tele.Noop{}
	}
	defer teler.Close()
	drv.OnReading(teler.Reading)

	if config.IntervalSec == 0 {
		r := drv.Once(ctx)
		if plug.Kind(r.Err) == plug.KindConnect {
			return 1
		}
		return 0
	}

	if sdnotify("STATUS=polling") {
		// under systemd, journal adds timestamp
		log.SetFlags(log2.LServiceFlags)
	}
	a := alive.NewAlive()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-a.StopChan()
		cancel()
	}()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		select {
		case sig := <-sigch:
			log.Infof("signal=%v stopping", sig)
			a.Stop()
		case <-a.StopChan():
		}
	}()

	if !a.Add(1) {
		return 1
	}
	go func() {
		defer a.Done()
		defer a.Stop()
		if err := drv.Run(ctx); err != nil {
			log.Errorf("%v", errors.ErrorStack(err))
		}
	}()
	sdnotify(daemon.SdNotifyReady)
	a.Wait()
	sdnotify(daemon.SdNotifyStopping)
	log.Debugf("stopped %s", drv.Stat().String())
	return 0
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sdnotify:", errors.ErrorStack(err))
	}
	return ok
}
