/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package proxy

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) Env {
	return func(name string) string { return vars[name] }
}

func TestResolveNoProxyMatch(t *testing.T) {
	tests := []struct {
		name      string
		vars      map[string]string
		target    string
		wantProxy string
	}{
		{
			name: "host port matches no_proxy entry goes direct",
			vars: map[string]string{
				"http_proxy": "http://px:3128",
				"no_proxy":   "a.example:80,.internal",
			},
			target:    "http://a.example:80/",
			wantProxy: "",
		},
		{
			name: "different port not covered by no_proxy uses proxy",
			vars: map[string]string{
				"http_proxy": "http://px:3128",
				"no_proxy":   "a.example:80,.internal",
			},
			target:    "http://a.example:443/",
			wantProxy: "http://px:3128",
		},
		{
			// spec §8 scenario 4: no_proxy=a.example:80,*.internal routes
			// http://x.internal/ direct.
			name: "wildcard suffix pattern matches subdomain",
			vars: map[string]string{
				"http_proxy": "http://px:3128",
				"no_proxy":   "a.example:80,*.internal",
			},
			target:    "http://x.internal/",
			wantProxy: "",
		},
		{
			name: "dot-prefixed suffix pattern matches subdomain",
			vars: map[string]string{
				"http_proxy": "http://px:3128",
				"no_proxy":   "a.example:80,.internal",
			},
			target:    "http://x.internal/",
			wantProxy: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.target)
			require.NoError(t, err)
			got, err := Resolve(env(tt.vars), u)
			require.NoError(t, err)
			if tt.wantProxy == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantProxy, got.String())
			}
		})
	}
}

func TestResolveCGISafety(t *testing.T) {
	u, err := url.Parse("http://a.example/")
	require.NoError(t, err)

	got, err := Resolve(env(map[string]string{
		"REQUEST_METHOD": "GET",
		"http_proxy":      "http://attacker:8080",
		"cgi_http_proxy":  "http://legit:3128",
	}), u)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://legit:3128", got.String())
}

func TestResolveAllProxyFallback(t *testing.T) {
	u, err := url.Parse("http://a.example/")
	require.NoError(t, err)

	got, err := Resolve(env(map[string]string{"all_proxy": "http://fallback:9"}), u)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://fallback:9", got.String())
}

func TestResolveNoneConfigured(t *testing.T) {
	u, err := url.Parse("http://a.example/")
	require.NoError(t, err)

	got, err := Resolve(env(nil), u)
	require.NoError(t, err)
	assert.Nil(t, got)
}
