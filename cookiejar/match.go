/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookiejar

import (
	"net/url"
	"strings"
)

func lower(s string) string { return strings.ToLower(s) }

// domainMatch implements spec §4.4's send-side domain rule: exact
// case-insensitive equality, or a ".”-prefixed pattern that the target
// host ends with (case-insensitive).
func domainMatch(pattern, host string) bool {
	pattern, host = lower(pattern), lower(host)
	if pattern == host {
		return true
	}
	if strings.HasPrefix(pattern, ".") && strings.HasSuffix(host, pattern) {
		return true
	}
	return false
}

// prefixContainsDot implements the §3 "covered by dots" invariant used
// during Set-Cookie ingestion: in the portion of host strictly before
// the domain-match position, a dot must not appear. See spec §9's open
// question about the original's suspicious string-index expression;
// this is the corrected reading ("the label prefix, not the whole
// host").
func prefixContainsDot(host, pattern string) bool {
	host, pattern = lower(host), lower(pattern)
	idx := strings.Index(host, pattern)
	if idx <= 0 {
		// exact match or pattern not found as a suffix position; the
		// domainMatch caller already established host ends with pattern
		// (or equals it), so idx==0 means no prefix exists at all.
		return false
	}
	return strings.Contains(host[:idx], ".")
}

// pathMatch implements spec §4.4's path rule: stored path is absolute
// and every non-empty segment is a prefix of the URI's path segments; a
// trailing empty segment ("/"-terminated) matches any continuation.
func pathMatch(storedPath, reqPath string) bool {
	if storedPath == "" || storedPath[0] != '/' {
		return false
	}
	if reqPath == "" {
		reqPath = "/"
	}
	if storedPath == reqPath {
		return true
	}
	if strings.HasPrefix(reqPath, storedPath) {
		if storedPath[len(storedPath)-1] == '/' {
			return true
		}
		if reqPath[len(storedPath)] == '/' {
			return true
		}
	}
	return false
}

// secureMatch implements the secure-flag rule: a secure cookie is only
// sent over https or shttp.
func secureMatch(secure bool, scheme string) bool {
	if !secure {
		return true
	}
	scheme = lower(scheme)
	return scheme == "https" || scheme == "shttp"
}

// portMatch implements the §4.4 port rule.
func portMatch(ports *portSet, u *url.URL) bool {
	if ports == nil {
		return true
	}
	port := u.Port()
	if port == "" {
		if lower(u.Scheme) == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return ports.allows(port)
}

// segmentCount is the number of non-empty path segments, used to order
// cookies from most general (fewest segments) to most specific.
func segmentCount(path string) int {
	n := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}
