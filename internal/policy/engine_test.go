package policy

import (
	"errors"
	"net/http"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supercache/supercache/internal/cache"
)

func TestIsCacheableRuleChain(t *testing.T) {
	htmlOK := Response{StatusCode: http.StatusOK, Body: []byte("<html/>"), ContentType: "text/html"}

	tests := []struct {
		name   string
		opts   Options
		req    Request
		resp   Response
		reason Reason
		ok     bool
	}{
		{
			name: "cacheable",
			opts: enabledProd(),
			req:  Request{Method: http.MethodGet, Path: "/a"},
			resp: htmlOK,
			ok:   true,
		},
		{
			name:   "route opt-out wins over everything",
			opts:   Options{Environment: "test"},
			req:    Request{Method: http.MethodPost, Path: "/a", RawQuery: "x=1", OptOut: true},
			resp:   Response{StatusCode: http.StatusInternalServerError},
			reason: ReasonRoute,
		},
		{
			name:   "method before query string",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodPost, Path: "/a", RawQuery: "x=1"},
			resp:   htmlOK,
			reason: ReasonMethod,
		},
		{
			name:   "head is not get",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodHead, Path: "/a"},
			resp:   htmlOK,
			reason: ReasonMethod,
		},
		{
			name:   "query string before status",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodGet, Path: "/a", RawQuery: "x=1"},
			resp:   Response{StatusCode: http.StatusNotFound},
			reason: ReasonQuery,
		},
		{
			name:   "non success status",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   Response{StatusCode: http.StatusNotFound, Body: []byte("nope")},
			reason: ReasonCode,
		},
		{
			name:   "empty body",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   Response{StatusCode: http.StatusOK},
			reason: ReasonCode,
		},
		{
			name:   "no content",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   Response{StatusCode: http.StatusNoContent, Body: []byte("x")},
			reason: ReasonCode,
		},
		{
			name:   "no-store before private",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   Response{StatusCode: http.StatusOK, Body: []byte("x"), CacheControl: "private, no-store"},
			reason: ReasonNoStore,
		},
		{
			name:   "private",
			opts:   enabledProd(),
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   Response{StatusCode: http.StatusOK, Body: []byte("x"), CacheControl: "Private, max-age=60"},
			reason: ReasonPrivate,
		},
		{
			name:   "unknown environment",
			opts:   Options{Environment: "staging", EnableProd: true, EnableDev: true},
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   htmlOK,
			reason: ReasonEnvironment,
		},
		{
			name:   "environment disabled",
			opts:   Options{Environment: EnvironmentDev, EnableProd: true},
			req:    Request{Method: http.MethodGet, Path: "/a"},
			resp:   htmlOK,
			reason: ReasonEnvironment,
		},
		{
			name: "dev enabled",
			opts: Options{Environment: EnvironmentDev, EnableDev: true},
			req:  Request{Method: http.MethodGet, Path: "/a"},
			resp: htmlOK,
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(&recordingSaver{}, tt.opts)
			reason, ok := engine.IsCacheable(tt.req, tt.resp)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCacheResponseQueryStringSkipsStore(t *testing.T) {
	saver := &recordingSaver{}
	engine := NewEngine(saver, withHeader(enabledProd()))

	outcome, err := engine.CacheResponse(
		Request{Method: http.MethodGet, Path: "/a", RawQuery: "x=1"},
		Response{StatusCode: http.StatusOK, Body: []byte("<html/>"), ContentType: "text/html"},
	)
	require.NoError(t, err)
	assert.False(t, outcome.Cached)
	assert.Equal(t, ReasonQuery, outcome.Reason)
	assert.Equal(t, "uncacheable,query-string", outcome.Header)
	assert.Empty(t, saver.entries)
}

func TestCacheResponseStoresHTML(t *testing.T) {
	store := newMemStore(t)
	engine := NewEngine(store, withHeader(enabledProd()))

	outcome, err := engine.CacheResponse(
		Request{Method: http.MethodGet, Path: "/a"},
		Response{StatusCode: http.StatusOK, Body: []byte("<html/>"), ContentType: "text/html; charset=UTF-8"},
	)
	require.NoError(t, err)
	assert.True(t, outcome.Cached)
	assert.Equal(t, cache.ContentHTML, outcome.Type)
	assert.Equal(t, "MISS,1", outcome.Header)
	assert.True(t, store.Exists("/a"))

	body, err := store.Read("/a")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", string(body))
}

func TestCacheResponseStoresJSON(t *testing.T) {
	saver := &recordingSaver{}
	engine := NewEngine(saver, enabledProd())

	outcome, err := engine.CacheResponse(
		Request{Method: http.MethodGet, Path: "/api/info"},
		Response{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`), ContentType: "application/json"},
	)
	require.NoError(t, err)
	assert.True(t, outcome.Cached)
	assert.Equal(t, cache.ContentScript, outcome.Type)
	assert.Empty(t, outcome.Header, "diagnostic header disabled")
	require.Len(t, saver.entries, 1)
	assert.Equal(t, cache.Entry{Path: "/api/info", Content: []byte(`{"ok":true}`), Type: cache.ContentScript}, saver.entries[0])
}

func TestCacheResponseMissingContentTypeIsBinary(t *testing.T) {
	saver := &recordingSaver{}
	engine := NewEngine(saver, enabledProd())

	outcome, err := engine.CacheResponse(
		Request{Method: http.MethodGet, Path: "/blob"},
		Response{StatusCode: http.StatusOK, Body: []byte{0x00, 0x01}},
	)
	require.NoError(t, err)
	assert.Equal(t, cache.ContentBinary, outcome.Type)
}

func TestCacheResponsePropagatesSecurityViolation(t *testing.T) {
	store := newMemStore(t)
	engine := NewEngine(store, withHeader(enabledProd()))

	_, err := engine.CacheResponse(
		Request{Method: http.MethodGet, Path: "/a/../../etc"},
		Response{StatusCode: http.StatusOK, Body: []byte("x"), ContentType: "text/plain"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrSecurityViolation)
}

func TestCacheResponseSuppressesFilesystemError(t *testing.T) {
	fsErr := &cache.FilesystemError{Op: "write", Path: "/a", Err: errors.New("disk full")}
	saver := &recordingSaver{err: fsErr}
	engine := NewEngine(saver, withHeader(enabledProd()))

	outcome, err := engine.CacheResponse(
		Request{Method: http.MethodGet, Path: "/a"},
		Response{StatusCode: http.StatusOK, Body: []byte("x"), ContentType: "text/html"},
	)
	require.NoError(t, err)
	assert.False(t, outcome.Cached)
	assert.Equal(t, "MISS,0", outcome.Header)
	assert.ErrorIs(t, outcome.SaveErr, cache.ErrFilesystem)
}

func TestUncacheableHeaderUsesReasonTag(t *testing.T) {
	engine := NewEngine(&recordingSaver{}, withHeader(enabledProd()))

	outcome, err := engine.uncacheable(ReasonPrivate)
	require.NoError(t, err)
	assert.Equal(t, "uncacheable,private", outcome.Header)

	_, err = engine.uncacheable(Reason(-99))
	assert.ErrorIs(t, err, ErrUnknownReason)

	quiet := NewEngine(&recordingSaver{}, enabledProd())
	outcome, err = quiet.uncacheable(Reason(-99))
	require.NoError(t, err)
	assert.Empty(t, outcome.Header)
}

func TestClassifyContentType(t *testing.T) {
	tests := []struct {
		mime     string
		expected cache.ContentType
	}{
		{"text/html", cache.ContentHTML},
		{"text/html; charset=UTF-8", cache.ContentHTML},
		{"text/plain", cache.ContentHTML},
		{"application/javascript", cache.ContentScript},
		{"text/javascript", cache.ContentScript},
		{"application/json", cache.ContentScript},
		{"application/problem+json", cache.ContentBinary},
		{"image/png", cache.ContentBinary},
		{"application/octet-stream", cache.ContentBinary},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyContentType(tt.mime))
		})
	}
}

func TestReasonTag(t *testing.T) {
	expected := map[int]string{
		-1: "method",
		-2: "code",
		-3: "query-string",
		-4: "no-store-policy",
		-5: "private",
		-6: "env",
		-7: "route",
	}
	for code, tag := range expected {
		got, err := ReasonTag(code)
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}

	for _, code := range []int{0, 1, -8, 42} {
		_, err := ReasonTag(code)
		assert.ErrorIs(t, err, ErrUnknownReason, "code %d", code)
	}

	tag, err := ReasonPrivate.Tag()
	require.NoError(t, err)
	assert.Equal(t, "private", tag)
	assert.Equal(t, "reason(9)", Reason(9).String())
}

func TestResponseHasDirective(t *testing.T) {
	resp := Response{CacheControl: "public, max-age=300, No-Store"}
	assert.True(t, resp.HasDirective("no-store"))
	assert.True(t, resp.HasDirective("max-age"))
	assert.False(t, resp.HasDirective("private"))
	assert.False(t, Response{}.HasDirective("no-store"))
}

type recordingSaver struct {
	entries []cache.Entry
	err     error
}

func (r *recordingSaver) SaveEntry(entry cache.Entry) (bool, error) {
	r.entries = append(r.entries, entry)
	if r.err != nil {
		return false, r.err
	}
	return true, nil
}

func enabledProd() Options {
	return Options{Environment: EnvironmentProd, EnableProd: true}
}

func withHeader(opts Options) Options {
	opts.StatusHeader = true
	return opts
}

func newMemStore(t *testing.T) *cache.Store {
	t.Helper()
	finder, err := cache.NewFinder(afero.NewMemMapFs(), "/cache")
	require.NoError(t, err)
	return cache.NewStore(finder)
}
