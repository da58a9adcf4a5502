/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bodyio

import "net/url"

// URLEncoded renders scalar form fields as "key=value&…", the default
// encoding per spec §4.6 when every field value is a literal string.
func URLEncoded(fields map[string]string) string {
	values := make(url.Values, len(fields))
	for k, v := range fields {
		values.Set(k, v)
	}
	return values.Encode()
}

// URLEncodedContentType is the Content-Type set alongside URLEncoded.
const URLEncodedContentType = "application/x-www-form-urlencoded"
