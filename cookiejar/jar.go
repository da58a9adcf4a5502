/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package cookiejar implements the process-wide cookie jar from spec
// §4.4: storage, matching for outbound requests, and Set-Cookie /
// Set-Cookie2 ingestion. The jar is safe for concurrent use; a cookie
// operation is atomic with respect to other cookie operations, per
// spec §5.
package cookiejar

import (
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// PublicSuffixList reports the public suffix of a domain, used to bound
// how broad a cookie's domain attribute may be. golang.org/x/net/publicsuffix
// implements this interface. With a nil list no public-suffix check is
// made: a Domain attribute is then only checked by domain matching and
// the "covered by dots" rule.
type PublicSuffixList interface {
	PublicSuffix(domain string) string
	String() string
}

// Options configures a new Jar.
type Options struct {
	PublicSuffixList PublicSuffixList
}

// Jar is an ordered collection of cookie entries. The zero Jar is not
// usable; construct one with New.
type Jar struct {
	mu      sync.Mutex
	entries []entry
	psl     PublicSuffixList
}

// New returns an empty Jar. A nil *Options is equivalent to &Options{}.
func New(o *Options) *Jar {
	j := &Jar{}
	if o != nil {
		j.psl = o.PublicSuffixList
	}
	return j
}

// process-wide singleton, mirroring the source's presentation as a
// global jar while keeping it injectable for callers that want isolation.
// It uses golang.org/x/net/publicsuffix as its PublicSuffixList so a
// Set-Cookie for a domain attribute of ".co.uk" is rejected the same
// way a browser would; a jar from New(nil) makes no such check.
var defaultJar = New(&Options{PublicSuffixList: publicsuffix.List})

// Default returns the process-wide jar singleton.
func Default() *Jar { return defaultJar }

// CookiesFor returns the cookies that should be sent for u, ordered by
// increasing stored-path segment count (most general first).
func (j *Jar) CookiesFor(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	host := u.Hostname()
	var matches []entry
	for _, e := range j.entries {
		if e.expired(now) {
			continue
		}
		if !domainMatch(e.domain, host) {
			continue
		}
		if !portMatch(e.ports, u) {
			continue
		}
		if !pathMatch(e.path, u.Path) {
			continue
		}
		if !secureMatch(e.secure, u.Scheme) {
			continue
		}
		matches = append(matches, e)
	}
	sort.SliceStable(matches, func(i, k int) bool {
		return segmentCount(matches[i].path) < segmentCount(matches[k].path)
	})

	out := make([]*http.Cookie, 0, len(matches))
	for _, e := range matches {
		out = append(out, &http.Cookie{Name: e.name, Value: e.value})
	}
	return out
}

// Store inserts or replaces a cookie by its (name, domain, path) identity,
// preserving its position on replacement.
func (j *Jar) Store(e *http.Cookie, domain, path string, secure bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.storeLocked(entry{
		name:  e.Name,
		value: e.Value,
		info:  info{path: path, domain: domain, secure: secure},
	})
}

// Delete removes the cookie identified by (name, domain, path), if present.
func (j *Jar) Delete(name, domain, path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	target := id{name: lower(name), domain: lower(domain), path: path}
	for i, e := range j.entries {
		if e.id() == target {
			j.entries = append(j.entries[:i], j.entries[i+1:]...)
			return
		}
	}
}

// Entries returns a snapshot of the jar's contents, for tests and
// diagnostics; it does not expose the live slice.
func (j *Jar) Entries() []http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]http.Cookie, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, http.Cookie{
			Name:   e.name,
			Value:  e.value,
			Domain: e.domain,
			Path:   e.path,
			Secure: e.secure,
		})
	}
	return out
}

// SetCookies ingests the Set-Cookie and Set-Cookie2 headers of a response
// to reqURL, per spec §4.4.
func (j *Jar) SetCookies(reqURL *url.URL, header http.Header) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	for _, raw := range header["Set-Cookie"] {
		p, ok := parseSetCookie(raw)
		if !ok {
			continue
		}
		e, ok := p.anchor(reqURL, false, j.psl)
		if !ok {
			continue
		}
		j.ingestLocked(e, now)
	}
	for _, raw := range header["Set-Cookie2"] {
		p, ok := parseSetCookie(raw)
		if !ok {
			continue
		}
		e, ok := p.anchor(reqURL, true, j.psl)
		if !ok {
			continue
		}
		j.ingestLocked(e, now)
	}
}

func (j *Jar) ingestLocked(e entry, now time.Time) {
	if e.expired(now) {
		target := e.id()
		for i, cur := range j.entries {
			if cur.id() == target {
				j.entries = append(j.entries[:i], j.entries[i+1:]...)
				return
			}
		}
		return
	}
	j.storeLocked(e)
}

func (j *Jar) storeLocked(e entry) {
	target := e.id()
	for i, cur := range j.entries {
		if cur.id() == target {
			j.entries[i] = e
			return
		}
	}
	j.entries = append(j.entries, e)
}
