/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package auth implements the authenticator plug-in model of spec §4.5:
// a scheme-keyed table dispatched from WWW-Authenticate/Proxy-Authenticate,
// with Basic and Digest (including auth-int) built in.
package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// Credentials is what a Resolver hands back for a challenge realm.
type Credentials struct {
	Username string
	Password string
}

// Resolver fetches credentials for a target URI and realm. Two
// independent resolvers exist in Params: one for server challenges
// (401), one for proxy challenges (407).
type Resolver func(target *url.URL, realm string) (Credentials, bool)

// Challenge is a parsed WWW-Authenticate/Proxy-Authenticate header: the
// scheme token plus its parameters.
type Challenge struct {
	Scheme string
	Params map[string]string
}

// ParseChallenge parses one challenge header value. Only the first
// challenge in a (rare) multi-challenge header is returned; callers
// needing all challenges should split on scheme-token boundaries
// themselves.
func ParseChallenge(header string) (Challenge, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Challenge{}, false
	}
	sp := strings.IndexAny(header, " \t")
	if sp < 0 {
		return Challenge{Scheme: header, Params: map[string]string{}}, true
	}
	scheme := header[:sp]
	rest := header[sp+1:]
	return Challenge{Scheme: scheme, Params: parseParams(rest)}, true
}

func parseParams(rest string) map[string]string {
	params := map[string]string{}
	for _, part := range splitParams(rest) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		params[strings.ToLower(key)] = val
	}
	return params
}

// splitParams splits a comma-separated attribute list while respecting
// quoted strings (a comma may legally appear inside a quoted nonce, for
// instance, though rare).
func splitParams(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// Authenticator is a pluggable scheme handler: given a parsed challenge
// and resolved credentials, it produces the header value to retry with.
type Authenticator interface {
	// Authenticate inspects challenge and, on success, returns the
	// Authorization (or Proxy-Authorization) header value to retry
	// with. digestBody is invoked at most once, only if the scheme needs
	// to digest the outgoing body (auth-int).
	Authenticate(challenge Challenge, method string, target *url.URL, creds Credentials, digestBody BodyDigester) (string, error)
}

// BodyDigester lets an authenticator request a digest of the outgoing
// body without owning the body itself. The caller closes over the
// real body-writing callback and a hash sink; calling digestBody
// invokes the writer exactly once against that sink and returns the
// resulting sum. Authenticators that don't need auth-int never call it.
type BodyDigester func() (sum []byte, err error)

// Table is a scheme-token-keyed authenticator registry.
type Table struct {
	byScheme map[string]Authenticator
}

// NewTable returns a Table with Basic and Digest pre-registered.
func NewTable() *Table {
	t := &Table{byScheme: make(map[string]Authenticator)}
	t.Register("basic", Basic{})
	t.Register("digest", &Digest{})
	return t
}

// Register adds or replaces the authenticator for scheme (matched
// case-insensitively).
func (t *Table) Register(scheme string, a Authenticator) {
	t.byScheme[strings.ToLower(scheme)] = a
}

// Lookup finds the authenticator for a challenge's scheme token.
func (t *Table) Lookup(scheme string) (Authenticator, bool) {
	a, ok := t.byScheme[strings.ToLower(scheme)]
	return a, ok
}

// HeaderName picks WWW-Authenticate/Authorization or
// Proxy-Authenticate/Proxy-Authorization depending on whether the
// challenge came from a 401 or a 407.
func HeaderName(statusCode int) (challengeHeader, responseHeader string) {
	if statusCode == http.StatusProxyAuthRequired {
		return "Proxy-Authenticate", "Proxy-Authorization"
	}
	return "WWW-Authenticate", "Authorization"
}
