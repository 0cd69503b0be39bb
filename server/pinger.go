package server

import (
	"context"
	"time"
)

// Pinger calls ping on a regular interval until ctx is done. It is used to
// keep websocket connections alive through proxies that drop idle streams;
// the pong handling happens at the websocket protocol level.
type Pinger struct {
	ticker *time.Ticker
	ping   func()
}

// NewPinger creates a new Pinger and starts its loop.
func NewPinger(ctx context.Context, dur time.Duration, ping func()) *Pinger {
	p := &Pinger{
		ticker: time.NewTicker(dur),
		ping:   ping,
	}

	go p.run(ctx)

	return p
}

func (p *Pinger) run(ctx context.Context) {
	defer p.ticker.Stop()

	for {
		select {
		case <-p.ticker.C:
			p.ping()
		case <-ctx.Done():
			return
		}
	}
}
