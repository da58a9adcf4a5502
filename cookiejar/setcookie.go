/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookiejar

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// parsed is a single Set-Cookie/Set-Cookie2 attribute-value cookie before
// it has been anchored against a request URI.
type parsed struct {
	name, value string
	path        string
	domain      string
	secure      bool
	maxAge      *int
	expires     time.Time
	version     string // set when a Version attribute is present (required for RFC 2965 Set-Cookie2)
	hasVersion  bool
	portAttr    string
	hasPort     bool
}

// parseSetCookie parses one Set-Cookie/Set-Cookie2 header value into its
// attributes. It does not anchor path/domain defaults, which depend on
// the request URI (see anchor below).
func parseSetCookie(raw string) (parsed, bool) {
	parts := strings.Split(raw, ";")
	nv := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(nv) != 2 || !isToken(strings.TrimSpace(nv[0])) {
		return parsed{}, false
	}
	p := parsed{name: strings.TrimSpace(nv[0]), value: unquote(strings.TrimSpace(nv[1]))}
	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		kv := strings.SplitN(attr, "=", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var val string
		if len(kv) == 2 {
			val = unquote(strings.TrimSpace(kv[1]))
		}
		switch key {
		case "path":
			p.path = val
		case "domain":
			p.domain = val
		case "secure":
			p.secure = true
		case "max-age":
			if n, err := strconv.Atoi(val); err == nil {
				p.maxAge = &n
			}
		case "expires":
			if t, err := http.ParseTime(val); err == nil {
				p.expires = t
			}
		case "version":
			p.version = val
			p.hasVersion = true
		case "port":
			p.portAttr = val
			p.hasPort = true
		}
	}
	return p, true
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == ';' || r == ',' {
			return false
		}
	}
	return true
}

// anchor resolves defaults against the request URI and applies the
// ingestion rules of spec §4.4, returning false if the cookie must be
// rejected.
func (p parsed) anchor(reqURL *url.URL, isV2 bool, psl PublicSuffixList) (entry, bool) {
	host := reqURL.Hostname()

	path := p.path
	if path == "" {
		path = defaultPath(reqURL.Path)
	}
	if !pathMatch(path, reqURL.Path) {
		return entry{}, false
	}

	domain := p.domain
	if domain == "" {
		domain = host
	} else {
		if !domainMatch(domain, host) && !domainMatch(dotted(domain), host) {
			return entry{}, false
		}
		if prefixContainsDot(host, dotted(domain)) {
			return entry{}, false
		}
		if psl != nil {
			bare := strings.TrimPrefix(domain, ".")
			if suffix := psl.PublicSuffix(bare); suffix == bare {
				return entry{}, false
			}
		}
	}

	if isV2 {
		if !p.hasVersion {
			return entry{}, false
		}
		if domain != host {
			if domain != ".local" && !strings.Contains(strings.Trim(domain, "."), ".") {
				return entry{}, false
			}
		}
	}

	e := entry{
		name:  p.name,
		value: p.value,
		info: info{
			path:   path,
			domain: domain,
			secure: p.secure,
		},
		created: time.Now(),
	}

	if isV2 && p.hasPort {
		if p.portAttr == "" || p.portAttr == `""` {
			port := reqURL.Port()
			if port == "" {
				if lower(reqURL.Scheme) == "https" {
					port = "443"
				} else {
					port = "80"
				}
			}
			e.ports = newPortSet(port)
		} else {
			var ports []string
			for _, port := range strings.Split(p.portAttr, ",") {
				ports = append(ports, strings.TrimSpace(port))
			}
			e.ports = newPortSet(ports...)
		}
	}

	switch {
	case p.maxAge != nil:
		if *p.maxAge <= 0 {
			e.expires = time.Unix(1, 0) // already expired: deletion marker
		} else {
			e.expires = time.Now().Add(time.Duration(*p.maxAge) * time.Second)
		}
	case !p.expires.IsZero():
		e.expires = p.expires
	}

	return e, true
}

func dotted(domain string) string {
	if strings.HasPrefix(domain, ".") {
		return domain
	}
	return "." + domain
}

func defaultPath(reqPath string) string {
	if reqPath == "" || reqPath[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(reqPath, "/")
	if i == 0 {
		return "/"
	}
	return reqPath[:i]
}
