package tele

import (
	"context"

	"github.com/temoto/fplug/log2"
	"github.com/temoto/fplug/poll"
)

type Noop struct{}

var _ Teler = Noop{} // compile-time interface test

func (Noop) Init(context.Context, *log2.Log, Config) error { return nil }

func (Noop) Close() {}

func (Noop) Reading(poll.Reading) {}
