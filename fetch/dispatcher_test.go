package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine counts calls and returns a canned result or error.
type fakeEngine struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(_ context.Context, _ *Request) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := *f.result
	res.EngineName = f.name
	return &res, nil
}

func okEngine(name string) *fakeEngine {
	return &fakeEngine{name: name, result: &Result{HTML: "<html></html>", StatusCode: 200}}
}

func failEngine(name string) *fakeEngine {
	return &fakeEngine{name: name, err: errors.New(name + " failed")}
}

func newTestMemory(t *testing.T) *DomainMemory {
	t.Helper()
	dm := NewDomainMemory(time.Hour)
	t.Cleanup(dm.Stop)
	return dm
}

func TestDispatcherHTTPFirst(t *testing.T) {
	httpEng := okEngine("http")
	browserEng := okEngine("browser")
	d := NewDispatcher(httpEng, browserEng, newTestMemory(t), nil)

	res, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/1"})

	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, 1, httpEng.calls)
	assert.Equal(t, 0, browserEng.calls)
}

func TestDispatcherEscalatesOnHTTPFailure(t *testing.T) {
	httpEng := failEngine("http")
	browserEng := okEngine("browser")
	d := NewDispatcher(httpEng, browserEng, newTestMemory(t), nil)

	res, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/1"})

	require.NoError(t, err)
	assert.Equal(t, "browser", res.EngineName)
	assert.Equal(t, 1, httpEng.calls)
	assert.Equal(t, 1, browserEng.calls)
}

func TestDispatcherRemembersBrowserDomain(t *testing.T) {
	httpEng := failEngine("http")
	browserEng := okEngine("browser")
	d := NewDispatcher(httpEng, browserEng, newTestMemory(t), nil)

	// First fetch escalates; second goes straight to the browser.
	_, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/1"})
	require.NoError(t, err)
	_, err = d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/2"})
	require.NoError(t, err)

	assert.Equal(t, 1, httpEng.calls)
	assert.Equal(t, 2, browserEng.calls)
}

func TestDispatcherForcedBrowserDomain(t *testing.T) {
	httpEng := okEngine("http")
	browserEng := okEngine("browser")
	d := NewDispatcher(httpEng, browserEng, newTestMemory(t), []string{"example.com"})

	res, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/1"})

	require.NoError(t, err)
	assert.Equal(t, "browser", res.EngineName)
	assert.Equal(t, 0, httpEng.calls)
}

func TestDispatcherStealthGoesToBrowser(t *testing.T) {
	httpEng := okEngine("http")
	browserEng := okEngine("browser")
	d := NewDispatcher(httpEng, browserEng, newTestMemory(t), nil)

	res, err := d.Fetch(context.Background(), &Request{
		URL:     "https://www.google.com/search?q=widget",
		Stealth: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "browser", res.EngineName)
	assert.Equal(t, 0, httpEng.calls)
}

func TestDispatcherNoBrowserMeansHTTPErrorsAreFinal(t *testing.T) {
	httpEng := failEngine("http")
	d := NewDispatcher(httpEng, nil, newTestMemory(t), nil)

	_, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/1"})

	assert.Error(t, err)
	assert.Equal(t, 1, httpEng.calls)
}

func TestDispatcherForgetsFailedBrowserPreference(t *testing.T) {
	httpEng := okEngine("http")
	browserEng := failEngine("browser")
	mem := newTestMemory(t)
	mem.Set("shop.example.com", "browser")
	d := NewDispatcher(httpEng, browserEng, mem, nil)

	_, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/1"})
	assert.Error(t, err)
	assert.Empty(t, mem.Get("shop.example.com"))

	// Next fetch runs the normal HTTP-first path again.
	res, err := d.Fetch(context.Background(), &Request{URL: "https://shop.example.com/p/2"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
}

func TestDomainMemoryExpiry(t *testing.T) {
	dm := NewDomainMemory(10 * time.Millisecond)
	t.Cleanup(dm.Stop)

	dm.Set("shop.example.com", "browser")
	assert.Equal(t, "browser", dm.Get("shop.example.com"))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, dm.Get("shop.example.com"))
}
