/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package auth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Digest implements RFC 2617 Digest authentication, including
// qop=auth-int. Per spec §9's open question, MD5-sess is not
// implemented and the nonce-count always starts over at 1 for a fresh
// challenge rather than being tracked across repeated uses of one
// nonce — matching the behavior the spec says is acceptable to
// preserve.
type Digest struct{}

// H is the digest hash function: hex(md5(join(":", parts))).
func H(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

func (d *Digest) Authenticate(challenge Challenge, method string, target *url.URL, creds Credentials, digestBody BodyDigester) (string, error) {
	realm := challenge.Params["realm"]
	nonce := challenge.Params["nonce"]
	opaque := challenge.Params["opaque"]
	qop := chooseQop(challenge.Params["qop"])

	authlessURI := requestURI(target)
	ha1 := H(creds.Username, realm, creds.Password)

	var ha2 string
	switch qop {
	case "auth-int":
		sum, err := digestBody()
		if err != nil {
			return "", fmt.Errorf("auth: digesting body: %w", err)
		}
		ha2 = H(method, authlessURI, hex.EncodeToString(sum))
	default:
		ha2 = H(method, authlessURI)
	}

	cnonce := H(strconv.FormatInt(time.Now().Unix(), 10), realm)
	const nc = "00000001"

	var response string
	if qop != "" {
		response = H(ha1, nonce, nc, cnonce, qop, ha2)
	} else {
		response = H(ha1, nonce, ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username=%q, uri=%q, realm=%q, nonce=%q, response=%q`,
		creds.Username, authlessURI, realm, nonce, response)
	if qop != "" {
		fmt.Fprintf(&b, `, cnonce=%q, qop=%s, nc=%s`, cnonce, qop, nc)
	}
	if opaque != "" {
		fmt.Fprintf(&b, `, opaque=%q`, opaque)
	}
	return b.String(), nil
}

// chooseQop prefers auth-int, then auth, then none, from a
// comma-separated qop-options list.
func chooseQop(raw string) string {
	has := func(want string) bool {
		for _, tok := range strings.Split(raw, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), want) {
				return true
			}
		}
		return false
	}
	switch {
	case has("auth-int"):
		return "auth-int"
	case has("auth"):
		return "auth"
	default:
		return ""
	}
}

// requestURI is the target with userinfo removed, rendered as the
// request-target used in the digest computation: path (defaulting to
// "/") plus an optional query.
func requestURI(target *url.URL) string {
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		return path + "?" + target.RawQuery
	}
	return path
}
