// Package obslog provides the one structured logger each process uses,
// configured once and shared by every package that needs to log.
package obslog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	log  zerolog.Logger
)

func configure() {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: zerolog.TimeFieldFormat,
	}).With().Timestamp().Logger()
}

// Get returns the process-wide logger, configuring it on first use.
func Get() *zerolog.Logger {
	once.Do(configure)
	return &log
}

// Named returns the process-wide logger tagged with a component field, for
// distinguishing dispatcher/car/safety-monitor log lines when run together.
func Named(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}
