package bootstrap

import (
	"os"

	"github.com/rs/zerolog"

	"sift_server/adapter/in/worker"
	"sift_server/config"
	"sift_server/pkg/logger"
)

type Worker struct {
	poller *worker.Poller
	deps   *Dependencies
	zlog   zerolog.Logger
}

// NewWorker assembles the background poller. It shares the lazy service
// resolution with the API, so it starts cleanly before the Gmail OAuth flow
// has been completed and begins processing once a token is stored.
func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(getLogLevel(cfg)),
		Service: "sift-worker",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "poller").Str("poller_id", cfg.PollerID).Logger()

	poller := worker.NewPoller(&lazyProcessService{deps: deps}, cfg.PollInterval, zlog)

	return &Worker{
		poller: poller,
		deps:   deps,
		zlog:   zlog,
	}, cleanup, nil
}

func (w *Worker) Start() {
	w.poller.Start()
}

func (w *Worker) Stop() {
	w.poller.Stop()
}

func getLogLevel(cfg *config.Config) string {
	if cfg.IsDevelopment() {
		return "debug"
	}
	return "info"
}
