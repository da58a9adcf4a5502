/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package fetch

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/badu/fetch/auth"
	"github.com/badu/fetch/proxy"
)

// RetryPredicate decides whether a transport failure on req should be
// retried. The default is "method is idempotent", per spec §3.
type RetryPredicate func(req *Request) bool

// Dialer opens the transport connection for a request, the one
// out-of-scope collaborator this package treats as a pure interface
// (spec §1: "Transport byte I/O ... referenced only via their
// interface"). The default is a plain TCP dialer; an HTTPS-capable one
// can be substituted when a TLS provider is available.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

// TLSProvider establishes TLS transport establishment, the other
// out-of-scope collaborator from spec §1. Without one registered, an
// https:// request fails with ErrMissingTLSProvider rather than
// silently falling back to plaintext.
type TLSProvider interface {
	Handshake(ctx context.Context, conn net.Conn, serverName string) (net.Conn, error)
}

// Params bundles the configurable singletons of spec §3 into an
// immutable context struct, passed by value and overridden per call
// site via the With* options, matching the teacher's parameter-object
// restructuring of the source's dynamically-scoped variables.
type Params struct {
	MaxRetryAttempts  int // compared with <=, so the effective cap is MaxRetryAttempts+1 tries; see DESIGN.md
	MaxRedirectDepth  int
	ShouldRetry       RetryPredicate
	UserAgent         string
	ProxyResolver     proxy.Resolver
	ProxyCredentials  auth.Resolver
	ServerCredentials auth.Resolver
	Dial              Dialer
	TLS               TLSProvider
	Authenticators    *auth.Table
	RetryBackoff      func(attempt int) time.Duration
}

// Option configures a Params value.
type Option func(*Params)

// DefaultParams mirrors the teacher's DefaultTransport/DefaultClient
// singleton pattern: sensible defaults, overridable per call.
func DefaultParams() Params {
	return Params{
		MaxRetryAttempts: 1,
		MaxRedirectDepth: 5,
		ShouldRetry:      func(r *Request) bool { return r.idempotent() },
		UserAgent:        "fetch/1.0",
		ProxyResolver:    proxy.FromEnvironment,
		Dial:             defaultDial,
		Authenticators:   auth.NewTable(),
		RetryBackoff:     defaultBackoff,
	}
}

func defaultDial(ctx context.Context, network, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	return d.DialContext(ctx, network, addr)
}

// defaultBackoff drives github.com/cenkalti/backoff/v4's exponential
// policy rather than hand-computing the series: attempt <= 0 gets no
// pause; attempt n (the execution loop passes 1 for the first retry)
// advances the same backoff.ExponentialBackOff n steps, giving 50ms,
// 100ms, 200ms, ... capped at 2s.
func defaultBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 2 * time.Second
	b.RandomizationFactor = 0
	b.Reset()
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// WithMaxRetries overrides MaxRetryAttempts.
func WithMaxRetries(n int) Option { return func(p *Params) { p.MaxRetryAttempts = n } }

// WithMaxRedirects overrides MaxRedirectDepth.
func WithMaxRedirects(n int) Option { return func(p *Params) { p.MaxRedirectDepth = n } }

// WithRetryPredicate overrides ShouldRetry.
func WithRetryPredicate(fn RetryPredicate) Option { return func(p *Params) { p.ShouldRetry = fn } }

// WithUserAgent overrides the User-Agent token sent on every request.
func WithUserAgent(ua string) Option { return func(p *Params) { p.UserAgent = ua } }

// WithProxyResolver overrides ProxyResolver.
func WithProxyResolver(r proxy.Resolver) Option { return func(p *Params) { p.ProxyResolver = r } }

// WithProxyCredentials sets the resolver consulted for 407 challenges.
func WithProxyCredentials(r auth.Resolver) Option {
	return func(p *Params) { p.ProxyCredentials = r }
}

// WithServerCredentials sets the resolver consulted for 401 challenges.
func WithServerCredentials(r auth.Resolver) Option {
	return func(p *Params) { p.ServerCredentials = r }
}

// WithDialer overrides the transport connector.
func WithDialer(d Dialer) Option { return func(p *Params) { p.Dial = d } }

// WithTLSProvider registers the collaborator used to upgrade a freshly
// dialed connection to https://, per spec §7's missing-tls-provider tag.
func WithTLSProvider(t TLSProvider) Option { return func(p *Params) { p.TLS = t } }

// WithAuthenticators overrides the scheme-keyed authenticator table.
func WithAuthenticators(t *auth.Table) Option { return func(p *Params) { p.Authenticators = t } }

// oneShotProxyOverride implements the §4.1 305 handling: a per-call
// override flag read once by the next proxy resolution and cleared
// immediately after, re-expressing the source's resolver-reassignment
// trick as explicit state instead of a dynamic rebind.
type oneShotProxyOverride struct {
	url *url.URL
}

func (o *oneShotProxyOverride) wrap(base proxy.Resolver) proxy.Resolver {
	return func(target *url.URL) (*url.URL, error) {
		if o.url != nil {
			u := o.url
			o.url = nil
			return u, nil
		}
		return base(target)
	}
}
