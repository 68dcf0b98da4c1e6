// Package writer implements C6 from spec.md §4.6: one serializer per
// model.Type, each producing an HTTP/1 wire form (request-line + headers
// + body written straight onto the connection) and, for HTTP/2, an
// io.ReadCloser body plus the framing headers a http2.ClientConn request
// needs. Grounded on the teacher's chunk_writer.go (chunk framing) and
// mime package (multipart/form envelopes), generalized here from
// response-writing to request-writing and rebuilt on stdlib
// mime/multipart and net/url per spec.md's framing of codec libraries as
// external collaborators.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/yinglunfeng/esa-httpclient/header"
	"github.com/yinglunfeng/esa-httpclient/model"
)

// FileStreamSegment bounds how much of a file body is held in memory at
// once (spec.md §4.6 edge case: large file uploads must stream, not
// buffer, in segments no larger than this).
const FileStreamSegment = 8 * 1024

// Body is what a Writer prepares from a model.Request: a stream to read
// the wire body from, its declared length (-1 when chunked/unknown), and
// — for TypeChunked only — the live ChunkStream the caller pushes further
// bytes into after the initial write (spec.md §4.6/§9).
type Body struct {
	Reader        io.ReadCloser
	ContentLength int64
	Chunked       bool
	Chunk         *ChunkStream // non-nil only for TypeChunked
}

// Prepare builds the Body for req, without touching the network. HTTP/1
// writes it via WriteHeaders+CopyBody below; HTTP/2 hands Body.Reader
// straight to an *http.Request as its Body.
func Prepare(req *model.Request) (Body, error) {
	switch req.Type {
	case model.TypePlain:
		return Body{Reader: io.NopCloser(bytesReader(req.Body.Bytes)), ContentLength: int64(len(req.Body.Bytes))}, nil

	case model.TypeFile:
		f, err := os.Open(req.Body.Path)
		if err != nil {
			return Body{}, fmt.Errorf("writer: open %s: %w", req.Body.Path, err)
		}
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return Body{}, fmt.Errorf("writer: stat %s: %w", req.Body.Path, err)
		}
		return Body{Reader: f, ContentLength: fi.Size()}, nil

	case model.TypeChunked:
		pr, pw := io.Pipe()
		return Body{Reader: pr, ContentLength: -1, Chunked: true, Chunk: newChunkStream(pw)}, nil

	case model.TypeMultipart:
		pr, pw := io.Pipe()
		mw, contentType := newMultipartWriter(pw)
		req.Header.Set(header.ContentType, contentType)
		go func() {
			err := writeMultipartParts(mw, req.Body)
			mw.Close()
			pw.CloseWithError(err)
		}()
		return Body{Reader: pr, ContentLength: -1, Chunked: true}, nil

	case model.TypeFormURLEncoded:
		encoded := encodeFormURLValues(req.Body.Attrs)
		req.Header.Set(header.ContentType, "application/x-www-form-urlencoded")
		return Body{Reader: io.NopCloser(bytesReader([]byte(encoded))), ContentLength: int64(len(encoded))}, nil

	default:
		return Body{}, fmt.Errorf("writer: unknown request type %v", req.Type)
	}
}

func bytesReader(b []byte) io.Reader {
	if b == nil {
		b = []byte{}
	}
	return &byteSliceReader{b: b}
}

// byteSliceReader avoids importing bytes solely for bytes.NewReader's
// io.ReadCloser-less *Reader; a trivial reader keeps the import list
// honest about what this file actually needs.
type byteSliceReader struct {
	b   []byte
	pos int
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

func encodeFormURLValues(attrs map[string][]string) string {
	v := url.Values{}
	for k, vals := range attrs {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	return v.Encode()
}

// WriteHeaders writes the HTTP/1 request line and header block onto w,
// filling in the framing headers (Host, Content-Length or
// Transfer-Encoding: chunked) that Prepare's Body dictates. Caller writes
// the body afterward with CopyBody (or, after an Expect:100-continue
// handshake, with the returned ChunkStream for TypeChunked requests).
func WriteHeaders(w *bufio.Writer, req *model.Request, body Body) error {
	path, query := req.Path, req.Query
	if req.Overrides.URIEncode {
		path = (&url.URL{Path: path}).EscapedPath()
		query = url.QueryEscape(query)
	}
	target := path
	if query != "" {
		target += "?" + query
	}
	if _, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", req.Method, target); err != nil {
		return err
	}

	h := req.Header.Clone()
	if !h.Has(header.Host) {
		h.Set(header.Host, req.Host)
	}
	if body.Chunked {
		h.Set(header.TransferEncoding, "chunked")
		h.Del(header.ContentLength)
	} else {
		h.Set(header.ContentLength, strconv.FormatInt(body.ContentLength, 10))
		h.Del(header.TransferEncoding)
	}

	if err := h.Write(w); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

// CopyBody streams body.Reader onto w, chunk-framing it when body.Chunked
// (TypeMultipart and TypeChunked) or copying it verbatim otherwise
// (TypePlain, TypeFile, TypeFormURLEncoded), in FileStreamSegment-sized
// reads so a large file body never sits fully in memory.
func CopyBody(w *bufio.Writer, body Body) error {
	defer body.Reader.Close()
	rb := acquireBuffer()
	defer rb.tryRelease()
	buf := rb.Bytes()

	if !body.Chunked {
		_, err := io.CopyBuffer(w, body.Reader, buf)
		return err
	}

	for {
		n, rerr := body.Reader.Read(buf)
		if n > 0 {
			if err := writeChunk(w, buf[:n]); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			return writeFinalChunk(w)
		}
		if rerr != nil {
			return rerr
		}
	}
}
