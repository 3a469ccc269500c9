// Package client implements the request/response orchestration behind the
// driver and admin views: loading points, requesting a route and uploading
// a CSV file. Each orchestrator runs at most one attempt at a time, records
// its outcome in a State snapshot, and talks to the network only through an
// injected Sender.
package client

import "github.com/farkhanisturkia/mapsReactGo/internal/logging"

// Option configures an orchestrator.
type Option func(*settings)

type settings struct {
	log logging.Logger
}

// WithLogger sets the logger used to report attempts. The default drops logs.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{log: logging.Noop()}
	for _, o := range opts {
		o(&s)
	}
	return s
}
