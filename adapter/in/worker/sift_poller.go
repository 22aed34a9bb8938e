// Package worker hosts the background inbox poller.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sift_server/core/port/in"
)

const DefaultPollInterval = 15 * time.Minute

// Poller periodically runs the triage pipeline over the unread inbox.
// A run in progress is never overlapped: ticks are skipped until the
// previous run returns.
type Poller struct {
	service  in.ProcessService
	interval time.Duration
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(service in.ProcessService, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		service:  service,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. The first run fires immediately.
func (p *Poller) Start() {
	p.log.Info().Dur("interval", p.interval).Msg("inbox poller starting")
	go p.run()
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (p *Poller) Stop() {
	p.log.Info().Msg("inbox poller stopping")
	p.cancel()
	<-p.done
}

func (p *Poller) run() {
	defer close(p.done)

	p.poll()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			p.log.Info().Msg("inbox poller stopped")
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	start := time.Now()

	result, err := p.service.ProcessInbox(p.ctx)
	if err != nil {
		if p.ctx.Err() != nil {
			return
		}
		p.log.Error().Err(err).Msg("inbox poll failed")
		return
	}

	p.log.Info().
		Int("fetched", result.Fetched).
		Int("processed", len(result.Emails)).
		Int("skipped", result.Skipped).
		Str("method", result.Method).
		Dur("elapsed", time.Since(start)).
		Msg("inbox poll completed")
}
