package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-sync-layer/internal/domain"
)

func newTestClient(t *testing.T, serverURL string, opts Options) *Client {
	t.Helper()
	opts.Platform = domain.PlatformShopee
	opts.BaseURL = serverURL
	opts.Logger = zerolog.Nop()
	return NewClient(opts)
}

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Options{})

	body, err := client.Do(context.Background(), http.MethodGet, "/ping", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClient_Do_SignsEveryAttempt(t *testing.T) {
	var got []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("token"))
		if r.URL.Query().Get("token") == "stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	token := "stale"
	client := newTestClient(t, server.URL, Options{
		Sign: func(req *http.Request) error {
			q := req.URL.Query()
			q.Set("token", token)
			req.URL.RawQuery = q.Encode()
			return nil
		},
		TokenExpired: func(status int, _ []byte) bool { return status == http.StatusUnauthorized },
		Reauthenticate: func(context.Context) error {
			token = "fresh"
			return nil
		},
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.NoError(t, err)
	// The retry must carry the refreshed token, not the one signed initially.
	assert.Equal(t, []string{"stale", "fresh"}, got)
}

func TestClient_Do_RetriesExactlyOnce(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var reauths int32
	client := newTestClient(t, server.URL, Options{
		TokenExpired: func(status int, _ []byte) bool { return status == http.StatusUnauthorized },
		Reauthenticate: func(context.Context) error {
			atomic.AddInt32(&reauths, 1)
			return nil
		},
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)

	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.Status)

	// One original attempt plus one retry, never more.
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, int32(1), atomic.LoadInt32(&reauths))
}

func TestClient_Do_ReauthFailureStopsRequest(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	authErr := &domain.AuthenticationError{Platform: domain.PlatformShopee, Reason: "bad credentials"}
	client := newTestClient(t, server.URL, Options{
		TokenExpired:   func(status int, _ []byte) bool { return status == http.StatusUnauthorized },
		Reauthenticate: func(context.Context) error { return authErr },
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsAuthenticationError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_Do_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Options{})

	_, err := client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusInternalServerError, ue.Status)
	assert.Contains(t, ue.Body, "boom")
}

func TestClient_Do_TimeoutIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Options{Timeout: 50 * time.Millisecond})

	_, err := client.Do(context.Background(), http.MethodGet, "/slow", nil, nil)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, ue.Status)
	assert.Error(t, ue.Err)
}

func TestClient_Do_ProactiveRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	stale := true
	var reauths int32
	client := newTestClient(t, server.URL, Options{
		NeedsRefresh: func() bool { return stale },
		Reauthenticate: func(context.Context) error {
			atomic.AddInt32(&reauths, 1)
			stale = false
			return nil
		},
	})

	_, err := client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reauths))

	_, err = client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reauths), "fresh token must not trigger another refresh")
}

func TestClient_ConcurrentRefreshIsShared(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var reauths int32
	release := make(chan struct{})
	client := newTestClient(t, server.URL, Options{
		NeedsRefresh: func() bool { return atomic.LoadInt32(&reauths) == 0 },
		Reauthenticate: func(context.Context) error {
			<-release
			atomic.AddInt32(&reauths, 1)
			return nil
		},
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Do(context.Background(), http.MethodGet, "/orders", nil, nil)
		}(i)
	}

	// Let every worker pile up behind the in-flight refresh before it finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&reauths), "concurrent callers must share one refresh")
}
