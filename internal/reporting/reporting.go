// Package reporting forwards errors to Honeybadger when HONEYBADGER_API_KEY is set.
package reporting

import (
	"os"

	"github.com/bassista/go_devbytes/internal/cache"
	"github.com/bassista/go_devbytes/internal/logger"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
)

type notifyFunc func(err interface{}, extra ...interface{}) (string, error)

// Reporter sends notices to Honeybadger. A disabled Reporter drops everything.
type Reporter struct {
	enabled bool
	notify  notifyFunc
	flush   func()
}

// New configures Honeybadger with apiKey. An empty key returns a disabled Reporter.
func New(apiKey, env string) *Reporter {
	if apiKey == "" {
		logger.WithComponent("reporting").Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return &Reporter{}
	}

	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    env,
	})
	logger.WithComponent("reporting").Info("Honeybadger error reporting is enabled.")
	return &Reporter{enabled: true, notify: honeybadger.Notify, flush: honeybadger.Flush}
}

// FromEnv reads HONEYBADGER_API_KEY and GO_ENV.
func FromEnv() *Reporter {
	return New(os.Getenv("HONEYBADGER_API_KEY"), os.Getenv("GO_ENV"))
}

func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Notify sends err with optional honeybadger.Context, Tags or *http.Request extras.
func (r *Reporter) Notify(err interface{}, extra ...interface{}) {
	if !r.Enabled() {
		return
	}
	if _, nerr := r.notify(err, extra...); nerr != nil {
		logger.WithComponent("reporting").Warnf("honeybadger notify failed: %v", nerr)
	}
}

// RefreshFailed reports a failed refresh tagged with its failure kind.
// Cancellations are caller decisions and are not reported.
func (r *Reporter) RefreshFailed(err *cache.RefreshError) {
	if err == nil {
		return
	}
	kind := cache.Kind(err)
	if kind == cache.KindCancelled {
		return
	}
	r.Notify(err,
		honeybadger.Tags{"refresh", kind},
		honeybadger.Context{"stage": err.Stage.String()},
	)
}

// Flush blocks until queued notices are sent.
func (r *Reporter) Flush() {
	if r.Enabled() && r.flush != nil {
		r.flush()
	}
}
