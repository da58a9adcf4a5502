/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package fetch

import (
	"bufio"
	"context"
	"net"
	"net/url"

	"github.com/badu/fetch/pool"
)

// dial opens a fresh connection for target, routed through proxyURL
// when non-nil, and wraps it in a pool.Conn ready for the execution
// loop. TLS transport establishment is an out-of-scope collaborator
// per spec §1: an https:// target without a TLSProvider registered
// fails with ErrMissingTLSProvider rather than silently going plaintext.
func (c *Client) dial(ctx context.Context, target *url.URL, proxyURL *url.URL) (*pool.Conn, error) {
	dialAddr := addr(target)
	if proxyURL != nil {
		dialAddr = addr(proxyURL)
	}

	conn, err := c.params.Dial(ctx, "tcp", dialAddr)
	if err != nil {
		return nil, err
	}

	if target.Scheme == "https" {
		if c.params.TLS == nil {
			_ = conn.Close()
			return nil, &Error{Op: "dial", URL: target.String(), Tag: ErrMissingTLSProvider}
		}
		conn, err = c.params.TLS.Handshake(ctx, conn, target.Hostname())
		if err != nil {
			return nil, err
		}
	}

	return &pool.Conn{
		BaseURL: target,
		Proxy:   proxyURL,
		Reader:  bufio.NewReader(conn),
		Conn:    conn,
	}, nil
}

// addr renders a dial address for u, defaulting the port by scheme.
func addr(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return net.JoinHostPort(host, port)
}
