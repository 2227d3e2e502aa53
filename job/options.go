// Copyright (c) 2025 BVK Chaitanya

package job

import (
	"github.com/bvk/makerbot/bot"
)

type Options struct {
	// Bot holds the runner options used for every job.
	Bot bot.Options

	// EventLimit is the number of events queued for a slow subscriber.
	EventLimit int
}

func (v *Options) setDefaults() {
	if v.EventLimit == 0 {
		v.EventLimit = 100
	}
}

func (v *Options) Check() error {
	return v.Bot.Check()
}
