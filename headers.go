/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/badu/fetch/cookiejar"
)

// mergeDefaultHeaders applies spec §4.1 step 2 to req's header map:
// matching cookies, a Host header with the default port omitted, and a
// User-Agent token. Host and User-Agent are only set when the header map
// has none; when jar is non-nil the Cookie header is always replaced by
// the jar's matches for req.URL, or removed when nothing matches.
// Every value merged in is checked with httpguts before being set, so
// a malformed cookie or client-software token is dropped rather than
// sent to the wire.
func mergeDefaultHeaders(req *Request, jar *cookiejar.Jar, userAgent string) {
	if jar != nil {
		if cookies := jar.CookiesFor(req.URL); len(cookies) > 0 {
			var b strings.Builder
			for i, c := range cookies {
				if i > 0 {
					b.WriteString("; ")
				}
				fmt.Fprintf(&b, "%s=%s", c.Name, c.Value)
			}
			if v := b.String(); httpguts.ValidHeaderFieldValue(v) {
				req.Header.Set("Cookie", v)
			}
		} else {
			req.Header.Del("Cookie")
		}
	}

	if req.Header.Get("Host") == "" {
		if host := hostHeaderValue(req.URL); httpguts.ValidHeaderFieldValue(host) {
			req.Header.Set("Host", host)
		}
	}
	if req.Header.Get("User-Agent") == "" && userAgent != "" && httpguts.ValidHeaderFieldValue(userAgent) {
		req.Header.Set("User-Agent", userAgent)
	}
}

// hostHeaderValue renders the Host header, omitting the port when it
// is the scheme's default.
func hostHeaderValue(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		return host
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}

// outboundTarget implements spec §4.1 step 3: strip fragment/userinfo
// always; strip scheme/host/port and default the path to "/" unless a
// proxy is in use, in which case the request line carries the full
// absolute URI.
func outboundTarget(u *url.URL, proxied bool) string {
	clean := *u
	clean.Fragment = ""
	clean.User = nil

	if proxied {
		clean.RawFragment = ""
		return clean.String()
	}

	path := clean.EscapedPath()
	if path == "" {
		path = "/"
	}
	if clean.RawQuery != "" {
		return path + "?" + clean.RawQuery
	}
	return path
}
