// Package httpclient provides shared HTTP clients with connection pooling.
//
// IMPORTANT: Callers MUST close response bodies:
//
//	resp, err := httpclient.Default().Get(url)
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()  // Required even on non-2xx status
//
// Feed fetching and the HTTP generation backends share one transport so
// keep-alive connections to the same hosts are reused across requests.
//
// # Usage
//
// For feeds and other short requests (10s):
//
//	resp, err := httpclient.Default().Get(url)
//
// For generation endpoints (60s ceiling; callers also bound each attempt
// with a context deadline):
//
//	resp, err := httpclient.LongTimeout().Do(req)
//
// For a custom timeout on the shared transport:
//
//	client := httpclient.New(5 * time.Second)
package httpclient

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const userAgent = "newslens/0.2 (+https://github.com/abelbrown/newslens)"

var (
	// Shared transport for connection pooling
	sharedTransport *http.Transport
	transportOnce   sync.Once

	// Shared clients
	defaultClient     *http.Client
	longTimeoutClient *http.Client
	clientOnce        sync.Once
)

// getSharedTransport returns the shared transport with connection pooling settings.
func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	})
	return sharedTransport
}

func initClients() {
	clientOnce.Do(func() {
		defaultClient = New(10 * time.Second)
		longTimeoutClient = New(60 * time.Second)
	})
}

// New returns a client on the shared transport with the given timeout.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: getSharedTransport(),
		Timeout:   timeout,
	}
}

// Default returns a shared HTTP client with a 10-second timeout.
func Default() *http.Client {
	initClients()
	return defaultClient
}

// LongTimeout returns a shared HTTP client with a 60-second timeout.
func LongTimeout() *http.Client {
	initClients()
	return longTimeoutClient
}

// UserAgent is sent on every outbound request we make ourselves.
func UserAgent() string {
	return userAgent
}
