/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package fetch

import (
	"bufio"
	"crypto/md5"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/badu/fetch/auth"
	"github.com/badu/fetch/bodyio"
	"github.com/badu/fetch/cookiejar"
	"github.com/badu/fetch/pool"
)

// Client is the execution context of spec §4.1: an immutable Params
// configuration, a cookie jar, and a connection pool it owns
// exclusively (spec §5 — a pool has one owner at a time). Share a
// Client only from a single goroutine at a time; a caller that needs
// independent connection reuse across goroutines should construct one
// Client per goroutine rather than share a Pool.
type Client struct {
	params Params
	jar    *cookiejar.Jar
	pool   *pool.Pool
	log    zerolog.Logger
}

// NewClient builds a Client from DefaultParams with opts applied, a
// fresh connection pool, and the process-wide cookie jar.
func NewClient(opts ...Option) *Client {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return &Client{
		params: p,
		jar:    cookiejar.Default(),
		pool:   pool.New(),
		log:    log.Logger.With().Str("component", "fetch").Logger(),
	}
}

// WithJar returns a shallow copy of c using jar in place of the
// process-wide default, for callers that want cookie isolation.
func (c *Client) WithJar(jar *cookiejar.Jar) *Client {
	c2 := *c
	c2.jar = jar
	return &c2
}

// CloseConnection closes and evicts the pooled connection for u, if any.
func (c *Client) CloseConnection(u *url.URL) error {
	return c.pool.CloseKey(pool.KeyForURL(u))
}

// CloseAllConnections closes and evicts every pooled connection.
func (c *Client) CloseAllConnections() {
	c.pool.CloseAll()
}

// CloseIdleConnections closes and evicts every pooled connection,
// exactly like CloseAllConnections. It does not tell idle connections
// from busy ones: a connection taken from the pool stays in the pool
// while it is in use, including while a returned Response's Body is
// still unread, and is closed as well. The separate name exists for
// callers porting from the teacher's Transport.CloseIdleConnections
// idiom.
func (c *Client) CloseIdleConnections() {
	c.pool.CloseAll()
}

// Do sends req and returns the final Response. The caller owns
// resp.Body and must read (or discard) and close it.
func (c *Client) Do(req *Request) (*Response, error) {
	_, _, resp, err := c.CallWithResponse(req, func(r *Response) (any, error) { return nil, nil })
	return resp, err
}

// Get issues a GET to rawurl.
func (c *Client) Get(rawurl string) (*Response, error) {
	req, err := NewRequest(http.MethodGet, rawurl)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post issues a POST to rawurl with contentType and a literal body.
func (c *Client) Post(rawurl, contentType, body string) (*Response, error) {
	req, err := NewRequest(http.MethodPost, rawurl)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))
	req.WriteBody = func(w io.Writer) error {
		_, werr := io.WriteString(w, body)
		return werr
	}
	return c.Do(req)
}

// PostForm issues a POST to rawurl with data URL-encoded as the body,
// the form-urlencoded default of spec §4.6.
func (c *Client) PostForm(rawurl string, data url.Values) (*Response, error) {
	return c.Post(rawurl, bodyio.URLEncodedContentType, data.Encode())
}

// PostMultipart issues a POST to rawurl with fields encoded as
// multipart/form-data, spec §4.6's dispatch for an alist carrying
// file: entries. A field whose size is known up front (literal values
// and on-disk files) sets Content-Length; a field backed by an opaque
// Stream forces chunked transfer-coding instead.
func (c *Client) PostMultipart(rawurl string, fields []bodyio.Field) (*Response, error) {
	req, err := NewRequest(http.MethodPost, rawurl)
	if err != nil {
		return nil, err
	}
	w := bodyio.NewMultipartWriter(fields)
	req.Header.Set("Content-Type", w.ContentType())
	if length, ok := w.ContentLength(); ok {
		req.ContentLength = length
	} else {
		req.ContentLength = -1
	}
	req.WriteBody = func(out io.Writer) error {
		_, werr := w.WriteTo(out)
		return werr
	}
	return c.Do(req)
}

// CallWithResponse is the lowest-level driver, spec §4.1's
// call_with_response(request, writer, reader) -> (value, uri, response).
// req.WriteBody is the writer; reader receives the terminal Response.
func (c *Client) CallWithResponse(req *Request, reader ResponseReader) (value any, effectiveURL string, resp *Response, err error) {
	cur := req.clone()
	attempts := 0
	redirects := 0
	override := &oneShotProxyOverride{}
	resolver := override.wrap(c.params.ProxyResolver)

	for {
		proxyURL, perr := resolver(cur.URL)
		if perr != nil {
			return nil, cur.URL.String(), nil, perr
		}

		key := pool.KeyForURL(cur.URL)
		conn, hit := c.pool.Get(key)
		if hit && !sameProxy(conn.Proxy, proxyURL) {
			_ = c.pool.Close(conn)
			conn, hit = nil, false
		}
		if !hit {
			var derr error
			conn, derr = c.dial(cur.Context(), cur.URL, proxyURL)
			if derr != nil {
				if attempts <= c.params.MaxRetryAttempts && c.params.ShouldRetry(cur) {
					attempts++
					c.log.Debug().Err(derr).Str("url", cur.URL.String()).Int("attempt", attempts).Msg("retrying after dial failure")
					c.backoff(cur, attempts)
					continue
				}
				return nil, cur.URL.String(), nil, derr
			}
		}

		mergeDefaultHeaders(cur, c.jar, c.params.UserAgent)
		applyBodyFraming(cur)
		target := outboundTarget(cur.URL, proxyURL != nil)

		bw := bufio.NewWriter(conn)
		writeErr := writeRequestLine(bw, cur.Method, target, "HTTP/1.1", cur.Header)
		if writeErr == nil && cur.WriteBody != nil {
			if cur.ContentLength >= 0 {
				writeErr = cur.WriteBody(bw)
			} else {
				cw := bodyio.NewChunkedWriter(bw)
				if writeErr = cur.WriteBody(cw); writeErr == nil {
					writeErr = cw.Close()
				}
			}
		}
		if writeErr == nil {
			writeErr = bw.Flush()
		}
		if writeErr != nil {
			_ = c.pool.Close(conn)
			if attempts <= c.params.MaxRetryAttempts && c.params.ShouldRetry(cur) {
				attempts++
				c.log.Debug().Err(writeErr).Str("url", cur.URL.String()).Int("attempt", attempts).Msg("retrying after write failure")
				c.backoff(cur, attempts)
				continue
			}
			return nil, cur.URL.String(), nil, writeErr
		}

		proto, statusCode, status, header, ok, rerr := readResponseLine(conn.Reader)
		if rerr != nil {
			_ = c.pool.Close(conn)
			if !ok {
				// No status line ever arrived: the "no response" row of
				// spec §4.1's dispatch table.
				if attempts <= c.params.MaxRetryAttempts && c.params.ShouldRetry(cur) {
					attempts++
					c.log.Debug().Err(rerr).Str("url", cur.URL.String()).Int("attempt", attempts).Msg("retrying after premature disconnection")
					c.backoff(cur, attempts)
					continue
				}
				return nil, cur.URL.String(), nil, &Error{Op: cur.Method, URL: cur.URL.String(), Tag: ErrPrematureDisconnection, Err: rerr}
			}
			// A status line arrived but the header block was malformed: a
			// protocol error, not retried.
			return nil, cur.URL.String(), nil, &Error{Op: cur.Method, URL: cur.URL.String(), Tag: ErrUnexpectedServerResp, Err: rerr}
		}

		if c.jar != nil {
			c.jar.SetCookies(cur.URL, header)
		}

		bodyStream, contentLength := responseBodyStream(conn.Reader, header)
		reusable := requestKeepAlive(cur.Header) && keepAlive(proto, header)
		resp = &Response{
			StatusCode:    statusCode,
			Status:        status,
			Proto:         proto,
			Header:        header,
			Body:          c.wrapBody(bodyStream, conn, reusable),
			ContentLength: contentLength,
			Request:       cur,
		}

		switch statusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusSeeOther:
			_ = resp.Body.Close()
			redirects++
			if redirects > c.params.MaxRedirectDepth {
				return nil, cur.URL.String(), nil, &Error{Op: cur.Method, URL: cur.URL.String(), Tag: ErrRedirectDepthExceeded}
			}
			next, lerr := cur.URL.Parse(header.Get("Location"))
			if lerr != nil {
				return nil, cur.URL.String(), nil, &Error{Op: cur.Method, URL: cur.URL.String(), Tag: ErrUnexpectedServerResp, Err: lerr}
			}
			nextReq := cur.clone()
			nextReq.URL = next
			if statusCode == http.StatusSeeOther {
				nextReq.Method = http.MethodGet
				nextReq.WriteBody = nil
				nextReq.ContentLength = 0
				nextReq.Header.Del("Content-Type")
			}
			cur = nextReq
			continue

		case http.StatusUseProxy:
			_ = resp.Body.Close()
			next, lerr := cur.URL.Parse(header.Get("Location"))
			if lerr != nil {
				return nil, cur.URL.String(), nil, &Error{Op: cur.Method, URL: cur.URL.String(), Tag: ErrUnexpectedServerResp, Err: lerr}
			}
			override.url = next
			continue

		case http.StatusUnauthorized, http.StatusProxyAuthRequired:
			next, done, val, derr := c.authenticate(cur, resp, reader, &attempts)
			if done {
				return val, cur.URL.String(), resp, derr
			}
			cur = next
			continue

		default:
			val, rerr2 := reader(resp)
			if rerr2 == nil {
				if tag := classifyStatus(statusCode); tag != "" {
					rerr2 = &Error{Op: cur.Method, URL: cur.URL.String(), Tag: tag, Context: map[string]string{"status": status}}
				}
			}
			return val, cur.URL.String(), resp, rerr2
		}
	}
}

// authenticate implements spec §4.1's 401/407 dispatch row: look up an
// authenticator for the challenge scheme, resolve credentials, and
// either produce a retried request (done=false, next is the request to
// reissue) or hand the response to reader as a terminal result
// (done=true).
func (c *Client) authenticate(cur *Request, resp *Response, reader ResponseReader, attempts *int) (next *Request, done bool, value any, err error) {
	challengeHeader, responseHeader := auth.HeaderName(resp.StatusCode)
	challenge, ok := auth.ParseChallenge(resp.Header.Get(challengeHeader))
	if !ok {
		v, e := c.terminal(cur, resp, reader)
		return nil, true, v, e
	}

	authenticator, ok := c.params.Authenticators.Lookup(challenge.Scheme)
	if !ok {
		_ = resp.Body.Close()
		return nil, true, nil, &Error{Op: cur.Method, URL: cur.URL.String(), Tag: ErrUnknownAuthType, Context: map[string]string{"authtype": challenge.Scheme}}
	}

	var resolve auth.Resolver
	if resp.StatusCode == http.StatusProxyAuthRequired {
		resolve = c.params.ProxyCredentials
	} else {
		resolve = c.params.ServerCredentials
	}
	if resolve == nil {
		v, e := c.terminal(cur, resp, reader)
		return nil, true, v, e
	}
	creds, ok := resolve(cur.URL, challenge.Params["realm"])
	if !ok {
		v, e := c.terminal(cur, resp, reader)
		return nil, true, v, e
	}

	digestBody := func() ([]byte, error) {
		h := md5.New()
		if cur.WriteBody != nil {
			if derr := cur.WriteBody(h); derr != nil {
				return nil, derr
			}
		}
		return h.Sum(nil), nil
	}
	headerValue, aerr := authenticator.Authenticate(challenge, cur.Method, cur.URL, creds, digestBody)
	if aerr != nil {
		_ = resp.Body.Close()
		return nil, true, nil, aerr
	}

	if *attempts > c.params.MaxRetryAttempts {
		v, e := c.terminal(cur, resp, reader)
		return nil, true, v, e
	}
	_ = resp.Body.Close()
	*attempts++
	retry := cur.clone()
	retry.Header.Set(responseHeader, headerValue)
	return retry, false, nil, nil
}

// terminal hands resp to reader, classifying its status into the
// error taxonomy when reader itself returns no error. The pooled
// connection backing resp.Body is released once reader has drained or
// closed it, not before — see wrapBody.
func (c *Client) terminal(cur *Request, resp *Response, reader ResponseReader) (any, error) {
	val, err := reader(resp)
	if err == nil {
		if tag := classifyStatus(resp.StatusCode); tag != "" {
			err = &Error{Op: cur.Method, URL: cur.URL.String(), Tag: tag, Context: map[string]string{"status": resp.Status}}
		}
	}
	return val, err
}

// backoff pauses before a retried attempt per c.params.RetryBackoff,
// returning early if cur's context is cancelled first.
func (c *Client) backoff(cur *Request, attempt int) {
	d := c.params.RetryBackoff(attempt)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-cur.Context().Done():
	}
}

func (c *Client) release(conn *pool.Conn, reusable bool) {
	if reusable {
		c.pool.Put(conn)
		return
	}
	_ = c.pool.Close(conn)
}

// responseBody wraps a connection's raw body stream as the
// io.ReadCloser handed out on Response.Body, deferring the pooled
// connection's release until the stream is read to EOF or explicitly
// closed — never at the moment the dispatch loop hands the Response
// back. Grounded in the teacher's body.go bodyEOFSignal: reading to
// EOF recycles the connection without requiring an explicit Close,
// and Close drains and releases it otherwise.
type responseBody struct {
	r       io.Reader
	once    sync.Once
	release func()
}

func (b *responseBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		b.once.Do(b.release)
	}
	return n, err
}

func (b *responseBody) Close() error {
	_ = bodyio.Discard(b.r, -1)
	b.once.Do(b.release)
	return nil
}

func (c *Client) wrapBody(r io.Reader, conn *pool.Conn, reusable bool) io.ReadCloser {
	return &responseBody{r: r, release: func() { c.release(conn, reusable) }}
}

func sameProxy(a, b *url.URL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Scheme == b.Scheme && a.Host == b.Host
}

// requestKeepAlive reports whether the outbound request itself
// declined persistence via an explicit "Connection: close".
func requestKeepAlive(header http.Header) bool {
	for _, v := range header["Connection"] {
		for _, f := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(f), "close") {
				return false
			}
		}
	}
	return true
}

func applyBodyFraming(cur *Request) {
	switch {
	case cur.WriteBody == nil:
		cur.Header.Del("Content-Length")
		cur.Header.Del("Transfer-Encoding")
	case cur.ContentLength >= 0:
		cur.Header.Set("Content-Length", strconv.FormatInt(cur.ContentLength, 10))
		cur.Header.Del("Transfer-Encoding")
	default:
		cur.Header.Set("Transfer-Encoding", "chunked")
		cur.Header.Del("Content-Length")
	}
}

func responseBodyStream(r *bufio.Reader, header http.Header) (io.Reader, int64) {
	if isChunked(header) {
		return bodyio.NewChunkedReader(r), -1
	}
	cl := parseContentLengthHeader(header)
	return bodyio.Delimited(r, cl), cl
}

// classifyStatus maps a final status code to the error-taxonomy tag of
// spec §7, or "" for 2xx/3xx which are not treated as errors.
func classifyStatus(code int) ErrorTag {
	switch {
	case code >= 200 && code < 400:
		return ""
	case code >= 400 && code < 500:
		return ErrClientError
	case code >= 500 && code < 600:
		return ErrServerError
	default:
		return ErrUnexpectedServerResp
	}
}
