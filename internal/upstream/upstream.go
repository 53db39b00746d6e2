package upstream

import (
	"net/http/httputil"
	"net/url"
	"sync"
	"time"
)

// Upstream is a proxied target guarded by a named circuit breaker. It
// tracks an exponentially weighted moving average of response times for
// the metrics snapshot.
type Upstream struct {
	name  string
	route string
	url   *url.URL
	proxy *httputil.ReverseProxy

	mutex            sync.Mutex
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

const ewmaAlpha = 0.2

// New creates an Upstream proxying the given target URL for requests
// matching the route prefix. The name doubles as the breaker name.
func New(name, route string, target *url.URL) *Upstream {
	return &Upstream{
		name:  name,
		route: route,
		url:   target,
		proxy: httputil.NewSingleHostReverseProxy(target),
	}
}

// Name returns the upstream's name, which is also its breaker's name.
func (u *Upstream) Name() string {
	return u.name
}

// Route returns the path prefix this upstream serves.
func (u *Upstream) Route() string {
	return u.route
}

// URL returns the target URL.
func (u *Upstream) URL() *url.URL {
	return u.url
}

// ReverseProxy returns the HTTP reverse proxy for this upstream.
func (u *Upstream) ReverseProxy() *httputil.ReverseProxy {
	return u.proxy
}

// RecordResponse updates the exponentially weighted moving average (EWMA)
// response time using the latest request duration.
func (u *Upstream) RecordResponse(duration time.Duration) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		u.ewmaResponseTime = duration
		u.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	u.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(u.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the exponentially weighted moving average response time.
// Returns 0 if no responses have been recorded yet.
func (u *Upstream) EWMATime() time.Duration {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		return 0
	}

	return u.ewmaResponseTime
}
