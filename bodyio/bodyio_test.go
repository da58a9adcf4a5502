/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bodyio

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelimitedReadByte(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("abcdef"))
	lim := Delimited(r, 3).(*limited)

	b, err := lim.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)

	b, err = lim.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('b'), b)

	b, err = lim.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('c'), b)

	_, err = lim.ReadByte()
	assert.Equal(t, io.EOF, err)
}

func TestDelimitedPeekBoundedByRemaining(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("abcdef"))
	lim := Delimited(r, 2).(*limited)

	peeked, err := lim.Peek(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), peeked)
}

func TestDelimitedReadLineTruncatesAtBoundary(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("abcdef\n"))
	lim := Delimited(r, 3).(*limited)

	line, isPrefix, err := lim.ReadLine()
	require.NoError(t, err)
	assert.False(t, isPrefix)
	assert.Equal(t, []byte("abc"), line)
}

func TestDelimitedBulkRead(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("hello world"))
	lim := Delimited(r, 5)

	buf := make([]byte, 16)
	n, err := lim.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = lim.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestDelimitedUnknownLengthPassesThrough(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("whatever"))
	got := Delimited(r, -1)
	assert.Same(t, r, got)
}

func TestDiscardKnownLength(t *testing.T) {
	r := strings.NewReader("abcdefgh")
	err := Discard(r, 4)
	require.NoError(t, err)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "efgh", string(rest))
}

func TestDiscardToEOF(t *testing.T) {
	r := strings.NewReader("abcdefgh")
	err := Discard(r, -1)
	require.NoError(t, err)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestChunkedRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewChunkedWriter(&buf)

	_, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	_, err = w.Write([]byte(", world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := NewChunkedReader(bufio.NewReader(&buf))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(got))
}

func TestChunkedReaderEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	w := NewChunkedWriter(&buf)
	require.NoError(t, w.Close())

	r := NewChunkedReader(bufio.NewReader(&buf))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestURLEncoded(t *testing.T) {
	got := URLEncoded(map[string]string{"a": "1"})
	assert.Equal(t, "a=1", got)
	assert.Equal(t, "application/x-www-form-urlencoded", URLEncodedContentType)
}

func TestMultipartContentLengthLiteralFields(t *testing.T) {
	w := NewMultipartWriter([]Field{
		{Name: "a", Value: "hello"},
		{Name: "b", Value: "world"},
	})

	length, ok := w.ContentLength()
	require.True(t, ok)

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, length, n)
	assert.EqualValues(t, buf.Len(), length)
}

func TestMultipartContentLengthUnknownWithStream(t *testing.T) {
	w := NewMultipartWriter([]Field{
		{Name: "a", Value: "hello"},
		{Name: "b", Stream: strings.NewReader("opaque")},
	})

	_, ok := w.ContentLength()
	assert.False(t, ok)
}

func TestMultipartContentLengthWithFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bodyio-*")
	require.NoError(t, err)
	_, err = f.WriteString("file contents")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w := NewMultipartWriter([]Field{
		{Name: "file", FilePath: f.Name(), Filename: "x.txt"},
	})

	length, ok := w.ContentLength()
	require.True(t, ok)

	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, length, n)
	assert.Contains(t, buf.String(), "file contents")
	assert.Contains(t, buf.String(), `filename="x.txt"`)
	assert.Contains(t, buf.String(), w.Boundary)
}

func TestMultipartContentTypeCarriesBoundary(t *testing.T) {
	w := NewMultipartWriter([]Field{{Name: "a", Value: "1"}})
	assert.Contains(t, w.ContentType(), w.Boundary)
	assert.Contains(t, w.ContentType(), "multipart/form-data")
}
