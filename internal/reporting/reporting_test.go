package reporting

import (
	"context"
	"errors"
	"testing"

	"github.com/bassista/go_devbytes/internal/cache"
	"github.com/bassista/go_devbytes/internal/model"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notice struct {
	err   interface{}
	extra []interface{}
}

func recordingReporter() (*Reporter, *[]notice) {
	var sent []notice
	r := &Reporter{
		enabled: true,
		notify: func(err interface{}, extra ...interface{}) (string, error) {
			sent = append(sent, notice{err: err, extra: extra})
			return "id", nil
		},
	}
	return r, &sent
}

func TestNew_DisabledWithoutKey(t *testing.T) {
	r := New("", "test")
	assert.False(t, r.Enabled())

	// Must not panic.
	r.Notify(errors.New("boom"))
	r.RefreshFailed(&cache.RefreshError{Stage: cache.Fetching, Cause: errors.New("boom")})
	r.Flush()
}

func TestFromEnv_Disabled(t *testing.T) {
	t.Setenv("HONEYBADGER_API_KEY", "")
	assert.False(t, FromEnv().Enabled())
}

func TestNilReporter(t *testing.T) {
	var r *Reporter
	assert.False(t, r.Enabled())
	r.Notify(errors.New("boom"))
}

func TestRefreshFailed_TagsKind(t *testing.T) {
	r, sent := recordingReporter()

	rerr := &cache.RefreshError{Stage: cache.Committing, Cause: &model.StorageError{Op: "bolt replace", Err: errors.New("disk full")}}
	r.RefreshFailed(rerr)

	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Same(t, rerr, got.err)
	assert.Contains(t, got.extra, honeybadger.Tags{"refresh", cache.KindStorage})
	assert.Contains(t, got.extra, honeybadger.Context{"stage": "committing"})
}

func TestRefreshFailed_SkipsCancellation(t *testing.T) {
	r, sent := recordingReporter()

	r.RefreshFailed(&cache.RefreshError{Stage: cache.Fetching, Cause: context.Canceled})
	r.RefreshFailed(nil)

	assert.Empty(t, *sent)
}

func TestNotify_ErrorFromBackendIsSwallowed(t *testing.T) {
	r := &Reporter{
		enabled: true,
		notify: func(interface{}, ...interface{}) (string, error) {
			return "", errors.New("unreachable")
		},
	}
	r.Notify(errors.New("boom"))
}
