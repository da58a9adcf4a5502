/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookiejar

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSetCookiesThenCookiesFor(t *testing.T) {
	j := New(nil)
	reqURL := mustURL(t, "http://example.com/a/b")

	header := http.Header{"Set-Cookie": {"sid=abc123; Path=/a"}}
	j.SetCookies(reqURL, header)

	got := j.CookiesFor(mustURL(t, "http://example.com/a/b/c"))
	require.Len(t, got, 1)
	assert.Equal(t, "sid", got[0].Name)
	assert.Equal(t, "abc123", got[0].Value)

	assert.Empty(t, j.CookiesFor(mustURL(t, "http://example.com/other")))
	assert.Empty(t, j.CookiesFor(mustURL(t, "http://other.com/a/b")))
}

func TestSetCookiesRejectsSiblingSubdomain(t *testing.T) {
	j := New(nil)
	reqURL := mustURL(t, "http://foo.example.com/")

	header := http.Header{"Set-Cookie": {"x=1; Domain=.bar.example.com"}}
	j.SetCookies(reqURL, header)

	assert.Empty(t, j.Entries())
}

func TestSetCookiesRejectsDottedPrefixCoverage(t *testing.T) {
	j := New(nil)
	reqURL := mustURL(t, "http://a.b.example.com/")

	header := http.Header{"Set-Cookie": {"x=1; Domain=.example.com"}}
	j.SetCookies(reqURL, header)

	// the label prefix "a.b" before the domain match contains a dot, so
	// the cookie is rejected per the "covered by dots" invariant.
	assert.Empty(t, j.Entries())
}

func TestSetCookiesAllowsParentDomain(t *testing.T) {
	j := New(nil)
	reqURL := mustURL(t, "http://foo.example.com/")

	header := http.Header{"Set-Cookie": {"x=1; Domain=.example.com"}}
	j.SetCookies(reqURL, header)

	require.Len(t, j.Entries(), 1)
	got := j.CookiesFor(mustURL(t, "http://bar.example.com/"))
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Name)
}

func TestStoreReplacesSameIdentity(t *testing.T) {
	j := New(nil)
	j.Store(&http.Cookie{Name: "a", Value: "1"}, "example.com", "/", false)
	j.Store(&http.Cookie{Name: "a", Value: "2"}, "example.com", "/", false)

	entries := j.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].Value)
}

func TestDeleteRemovesCookie(t *testing.T) {
	j := New(nil)
	j.Store(&http.Cookie{Name: "a", Value: "1"}, "example.com", "/", false)
	j.Delete("a", "example.com", "/")
	assert.Empty(t, j.Entries())
}

func TestSecureCookieNotSentOverPlainHTTP(t *testing.T) {
	j := New(nil)
	j.Store(&http.Cookie{Name: "s", Value: "1"}, "example.com", "/", true)

	assert.Empty(t, j.CookiesFor(mustURL(t, "http://example.com/")))
	got := j.CookiesFor(mustURL(t, "https://example.com/"))
	require.Len(t, got, 1)
}

func TestCookiesOrderedMostGeneralFirst(t *testing.T) {
	j := New(nil)
	j.Store(&http.Cookie{Name: "specific", Value: "1"}, "example.com", "/a/b", false)
	j.Store(&http.Cookie{Name: "general", Value: "1"}, "example.com", "/", false)

	got := j.CookiesFor(mustURL(t, "http://example.com/a/b"))
	require.Len(t, got, 2)
	assert.Equal(t, "general", got[0].Name)
	assert.Equal(t, "specific", got[1].Name)
}
