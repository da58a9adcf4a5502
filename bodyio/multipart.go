/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bodyio

import (
	"fmt"
	"io"
	"net/textproto"
	"os"
	"time"

	"github.com/google/uuid"
)

// Field is one multipart form field, per spec §4.6: a literal value, a
// file path to stream from disk, or an already-open stream — exactly
// one of Value, FilePath, or Stream should be set.
type Field struct {
	Name     string
	Value    string
	FilePath string
	Filename string
	Stream   io.Reader
	Headers  textproto.MIMEHeader // user headers; override the computed defaults
}

// isFile reports whether the field carries file-like content (a path
// on disk or an explicit filename), which defaults Content-Type to
// application/octet-stream and sets Content-Disposition's filename.
func (f Field) isFile() bool {
	return f.FilePath != "" || f.Filename != ""
}

// MultipartWriter streams a multipart/form-data body from a fixed set
// of Fields, generating a boundary once at construction.
type MultipartWriter struct {
	Boundary string
	fields   []Field
}

// NewMultipartWriter builds a writer over fields with a fresh boundary
// in the style "----------------Multipart-=_<unique>=_=<pid>=-=<time>".
func NewMultipartWriter(fields []Field) *MultipartWriter {
	boundary := fmt.Sprintf("----------------Multipart-=_%s=_=%d=-=%d",
		uuid.NewString(), os.Getpid(), time.Now().UnixNano())
	return &MultipartWriter{Boundary: boundary, fields: fields}
}

// ContentType is the value to set on the outgoing request's
// Content-Type header.
func (w *MultipartWriter) ContentType() string {
	return `multipart/form-data; boundary="` + w.Boundary + `"`
}

// ContentLength precomputes the total body size when every field's size
// is knowable up front (literals and on-disk files); it reports ok=false
// when any field is an opaque stream, per spec §4.6.
func (w *MultipartWriter) ContentLength() (length int64, ok bool) {
	for _, f := range w.fields {
		switch {
		case f.Stream != nil:
			return 0, false
		case f.FilePath != "":
			fi, err := os.Stat(f.FilePath)
			if err != nil {
				return 0, false
			}
			length += w.partOverhead(f) + fi.Size()
		default:
			length += w.partOverhead(f) + int64(len(f.Value))
		}
	}
	length += int64(len("--" + w.Boundary + "--\r\n"))
	return length, true
}

func (w *MultipartWriter) partOverhead(f Field) int64 {
	var buf []byte
	buf = appendPartHeader(buf, w.Boundary, f)
	return int64(len(buf)) + int64(len("\r\n"))
}

// WriteTo streams every field to out in order, terminated by the
// closing boundary. Files are opened and closed per field; a stream
// field is copied through without being closed (the caller owns it).
func (w *MultipartWriter) WriteTo(out io.Writer) (int64, error) {
	var total int64
	for _, f := range w.fields {
		header := appendPartHeader(nil, w.Boundary, f)
		n, err := out.Write(header)
		total += int64(n)
		if err != nil {
			return total, err
		}

		switch {
		case f.FilePath != "":
			file, err := os.Open(f.FilePath)
			if err != nil {
				return total, err
			}
			n64, err := io.Copy(out, file)
			total += n64
			closeErr := file.Close()
			if err != nil {
				return total, err
			}
			if closeErr != nil {
				return total, closeErr
			}
		case f.Stream != nil:
			n64, err := io.Copy(out, f.Stream)
			total += n64
			if err != nil {
				return total, err
			}
		default:
			n, err := io.WriteString(out, f.Value)
			total += int64(n)
			if err != nil {
				return total, err
			}
		}

		n, err = out.Write([]byte("\r\n"))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := io.WriteString(out, "--"+w.Boundary+"--\r\n")
	total += int64(n)
	return total, err
}

// appendPartHeader renders "--boundary\r\n" plus the part's headers
// plus a blank line, honoring user-supplied header overrides.
func appendPartHeader(buf []byte, boundary string, f Field) []byte {
	buf = append(buf, "--"+boundary+"\r\n"...)

	headers := textproto.MIMEHeader{}
	disposition := fmt.Sprintf(`form-data; name=%q`, f.Name)
	if f.isFile() {
		name := f.Filename
		if name == "" {
			name = f.FilePath
		}
		disposition += fmt.Sprintf(`; filename=%q`, name)
	}
	headers.Set("Content-Disposition", disposition)
	if f.isFile() {
		headers.Set("Content-Type", "application/octet-stream")
	}
	for k, vv := range f.Headers {
		headers.Del(k)
		for _, v := range vv {
			headers.Add(k, v)
		}
	}

	for k, vv := range headers {
		for _, v := range vv {
			buf = append(buf, k+": "+v+"\r\n"...)
		}
	}
	buf = append(buf, "\r\n"...)
	return buf
}
