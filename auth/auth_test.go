/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package auth

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenge(t *testing.T) {
	c, ok := ParseChallenge(`Digest realm="r", nonce="n", qop="auth"`)
	require.True(t, ok)
	assert.Equal(t, "Digest", c.Scheme)
	assert.Equal(t, "r", c.Params["realm"])
	assert.Equal(t, "n", c.Params["nonce"])
	assert.Equal(t, "auth", c.Params["qop"])
}

func TestParseChallengeNoParams(t *testing.T) {
	c, ok := ParseChallenge("Negotiate")
	require.True(t, ok)
	assert.Equal(t, "Negotiate", c.Scheme)
	assert.Empty(t, c.Params)
}

func TestBasicAuthenticate(t *testing.T) {
	var b Basic
	header, err := b.Authenticate(Challenge{}, "GET", nil, Credentials{Username: "u", Password: "p"}, nil)
	require.NoError(t, err)
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("u:p"))
	assert.Equal(t, want, header)
}

// TestDigestAuthQopAuth exercises spec §8 scenario 3: GET /p against a
// qop=auth challenge with credentials u:p.
func TestDigestAuthQopAuth(t *testing.T) {
	target, err := url.Parse("http://a/p")
	require.NoError(t, err)

	challenge := Challenge{Scheme: "Digest", Params: map[string]string{
		"realm": "r",
		"nonce": "n",
		"qop":   "auth",
	}}

	d := &Digest{}
	header, err := d.Authenticate(challenge, "GET", target, Credentials{Username: "u", Password: "p"}, nil)
	require.NoError(t, err)

	ha1 := H("u", "r", "p")
	ha2 := H("GET", "/p")
	cnonce := H(strconv.FormatInt(time.Now().Unix(), 10), "r")
	wantResponse := H(ha1, "n", "00000001", cnonce, "auth", ha2)

	assert.Contains(t, header, `username="u"`)
	assert.Contains(t, header, `uri="/p"`)
	assert.Contains(t, header, `realm="r"`)
	assert.Contains(t, header, `nonce="n"`)
	assert.Contains(t, header, `qop=auth`)
	assert.Contains(t, header, `nc=00000001`)
	assert.Contains(t, header, `response="`+wantResponse+`"`)
}

func TestDigestAuthIntUsesBodyDigest(t *testing.T) {
	target, err := url.Parse("http://a/p")
	require.NoError(t, err)

	challenge := Challenge{Scheme: "Digest", Params: map[string]string{
		"realm": "r",
		"nonce": "n",
		"qop":   "auth-int",
	}}

	called := false
	digestBody := func() ([]byte, error) {
		called = true
		return []byte{0x01, 0x02}, nil
	}

	d := &Digest{}
	_, err = d.Authenticate(challenge, "POST", target, Credentials{Username: "u", Password: "p"}, digestBody)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestTableLookup(t *testing.T) {
	tab := NewTable()
	_, ok := tab.Lookup("Basic")
	assert.True(t, ok)
	_, ok = tab.Lookup("digest")
	assert.True(t, ok)
	_, ok = tab.Lookup("Negotiate")
	assert.False(t, ok)
}

func TestHeaderNamePicksProxyVariant(t *testing.T) {
	challenge, response := HeaderName(407)
	assert.Equal(t, "Proxy-Authenticate", challenge)
	assert.Equal(t, "Proxy-Authorization", response)

	challenge, response = HeaderName(401)
	assert.Equal(t, "WWW-Authenticate", challenge)
	assert.Equal(t, "Authorization", response)
}
