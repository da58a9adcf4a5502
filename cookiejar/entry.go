/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookiejar

import "time"

// info carries the non-identity attributes of a stored cookie, per
// spec §3: path, domain, an optional port set, and the secure flag.
type info struct {
	path   string
	domain string
	ports  *portSet // nil means "any port"
	secure bool
}

// entry is one jar row: (info, cookie). Identity for storage and
// replacement purposes is (name, domain, path), case-insensitive on
// name and domain, exact on path.
type entry struct {
	info
	name    string
	value   string
	expires time.Time // zero means a session cookie, never expires on its own
	created time.Time
}

// portSet models the Set-Cookie2 "port" parameter: either "this port
// only" (explicit list with one element) or an explicit list of ports.
type portSet struct {
	ports map[string]struct{}
}

func newPortSet(ports ...string) *portSet {
	ps := &portSet{ports: make(map[string]struct{}, len(ports))}
	for _, p := range ports {
		ps.ports[p] = struct{}{}
	}
	return ps
}

func (ps *portSet) allows(port string) bool {
	if ps == nil {
		return true
	}
	_, ok := ps.ports[port]
	return ok
}

// expired reports whether e should no longer be sent or stored, as of now.
func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !e.expires.After(now)
}

// id is the storage identity: name and domain folded to lower case, path
// compared exactly.
type id struct {
	name   string
	domain string
	path   string
}

func (e *entry) id() id {
	return id{name: lower(e.name), domain: lower(e.domain), path: e.path}
}
