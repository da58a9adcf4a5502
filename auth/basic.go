/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package auth

import (
	"encoding/base64"
	"net/url"
)

// Basic implements RFC 7617 Basic authentication.
type Basic struct{}

// Authenticate ignores the challenge parameters entirely: Basic carries
// no nonce or realm-derived state, just the encoded credentials.
func (Basic) Authenticate(_ Challenge, _ string, _ *url.URL, creds Credentials, _ BodyDigester) (string, error) {
	token := creds.Username + ":" + creds.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(token)), nil
}
