/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package proxy implements the environment-driven proxy resolver from the
// fetch execution core: no_proxy matching, CGI-safety for http, and the
// scheme-variable-then-all_proxy fallback chain.
package proxy

import (
	"net/url"
	"os"
	"strings"
)

// Resolver returns the proxy URL to use for target, or nil if the request
// should go direct.
type Resolver func(target *url.URL) (*url.URL, error)

// Env is the injectable environment lookup, overridden in tests.
type Env func(name string) string

// FromEnvironment is the default Resolver, built from os.Getenv.
func FromEnvironment(target *url.URL) (*url.URL, error) {
	return Resolve(os.Getenv, target)
}

// Resolve implements spec §4.3 against an arbitrary environment lookup.
func Resolve(env Env, target *url.URL) (*url.URL, error) {
	if noProxyMatches(env, target) {
		return nil, nil
	}

	var raw string
	if isCGI(env) && target.Scheme == "http" {
		raw = env("cgi_http_proxy")
	} else {
		raw = firstNonEmpty(env, target.Scheme+"_proxy")
	}
	if raw == "" {
		raw = firstNonEmpty(env, "all_proxy")
	}
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, nil
	}
	if !u.IsAbs() {
		return nil, nil
	}
	return u, nil
}

// isCGI reports whether the process is running as a CGI script, per the
// "httpoxy" mitigation: a REQUEST_METHOD env var is present.
func isCGI(env Env) bool {
	return env("REQUEST_METHOD") != ""
}

// firstNonEmpty consults the lower-case then upper-case spelling of name.
func firstNonEmpty(env Env, name string) string {
	if v := env(name); v != "" {
		return v
	}
	return env(strings.ToUpper(name))
}

// noProxyMatches implements the no_proxy / NO_PROXY list: comma (or
// whitespace) separated host patterns, "*" for everything, and an
// optional ":port" suffix that must match exactly.
func noProxyMatches(env Env, target *url.URL) bool {
	list := firstNonEmpty(env, "no_proxy")
	if list == "" {
		return false
	}
	host := target.Hostname()
	port := target.Port()
	if port == "" {
		port = defaultPort(target.Scheme)
	}
	for _, raw := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if pattern == "*" {
			return true
		}
		patHost, patPort, hasPort := strings.Cut(pattern, ":")
		if !strings.EqualFold(patHost, host) {
			suffix := patHost
			switch {
			case strings.HasPrefix(suffix, "*."):
				// "*.example.com" wildcards the leading label, same
				// reach as a bare ".example.com" suffix pattern.
				suffix = suffix[1:]
			case strings.HasPrefix(suffix, "."):
				// already a dot-suffix pattern
			default:
				continue
			}
			if !strings.HasSuffix(strings.ToLower(host), strings.ToLower(suffix)) {
				continue
			}
		}
		if hasPort && patPort != port {
			continue
		}
		return true
	}
	return false
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	default:
		return "80"
	}
}
