/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package fetch implements the core of a convenient HTTP/1.1 client: a
// request execution loop that coordinates connection reuse, proxies,
// redirects, cookies, and authentication challenges on top of the
// connection pool, proxy resolver, cookie jar, and authenticator table
// in the sibling packages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// BodyWriter streams a request body to w. It must be safe to call more
// than once across retries, redirects, and re-authentications; the
// execution loop invokes it once per iteration to send the body, and
// once more against a hash sink when a Digest auth-int challenge needs
// the body's digest.
type BodyWriter func(w io.Writer) error

// Request is an in-flight request description: method, target URI, a
// multi-valued header map, and an optional body-writing callback. The
// target URI carried over the wire is normalized by the execution loop
// per spec §4.1 (fragment/userinfo stripped, path defaulted to "/").
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header

	// ContentLength is the known size of the body WriteBody will
	// produce, or -1 if unknown (triggers chunked transfer-coding).
	ContentLength int64

	// WriteBody streams the body, or nil for a bodyless request.
	WriteBody BodyWriter

	ctx context.Context
}

// NewRequest builds a Request for method and rawurl with no body.
func NewRequest(method, rawurl string) (*Request, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("fetch: parsing request URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Tag: ErrUnsupportedScheme, Op: method, URL: rawurl, Context: map[string]string{"scheme": u.Scheme}}
	}
	return &Request{
		Method:        method,
		URL:           u,
		Header:        make(http.Header),
		ContentLength: 0,
	}, nil
}

// WithContext returns a shallow copy of r with its context set to ctx,
// matching the teacher's Request.WithContext contract.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("fetch: nil context")
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// Context returns r's context, or context.Background() if unset.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// clone makes a shallow copy of r with its own Header map, used by the
// execution loop before mutating a request for retry/redirect/auth.
func (r *Request) clone() *Request {
	r2 := new(Request)
	*r2 = *r
	r2.Header = r.Header.Clone()
	return r2
}

// idempotent reports whether Method is considered safe to retry
// automatically, the default retry predicate from spec §3.
func (r *Request) idempotent() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
