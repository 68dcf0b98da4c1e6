/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package header implements the case-insensitive, order-preserving header
// multimap required by the request/response data model: unlike net/http's
// map[string][]string, insertion order of distinct keys must survive so
// that the wire form a RequestWriter emits matches what the caller built.
package header

import (
	"io"
	"net/textproto"
)

// Well-known header names, canonicalized. Kept narrow to what the core
// transceiver touches directly; everything else flows through untouched.
const (
	Host              = "Host"
	Authority         = ":authority"
	ContentLength     = "Content-Length"
	ContentType       = "Content-Type"
	ContentEncoding   = "Content-Encoding"
	ContentDisposition = "Content-Disposition"
	TransferEncoding  = "Transfer-Encoding"
	Connection        = "Connection"
	Expect            = "Expect"
	AcceptEncoding    = "Accept-Encoding"
	UserAgent         = "User-Agent"
	StreamID          = "Stream-Id"
)

type entry struct {
	key    string
	values []string
}

// Header is a case-insensitive multimap that preserves the order in which
// distinct keys were first inserted (spec data model §3). Canonicalization
// follows textproto.CanonicalMIMEHeaderKey, the same algorithm net/http
// itself uses, treated here as the external collaborator it is.
type Header struct {
	entries []entry
	index   map[string]int // canonical key -> index into entries
}

// New returns an empty Header ready for use.
func New() *Header {
	return &Header{index: make(map[string]int)}
}

func canon(key string) string {
	if len(key) > 0 && key[0] == ':' {
		return key // HTTP/2 pseudo-headers are already canonical and case-sensitive
	}
	return textproto.CanonicalMIMEHeaderKey(key)
}

// Add appends value to any values already associated with key, preserving
// the position of key's first occurrence.
func (h *Header) Add(key, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	k := canon(key)
	if i, ok := h.index[k]; ok {
		h.entries[i].values = append(h.entries[i].values, value)
		return
	}
	h.index[k] = len(h.entries)
	h.entries = append(h.entries, entry{key: k, values: []string{value}})
}

// Set replaces any existing values for key with the single value given.
func (h *Header) Set(key, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	k := canon(key)
	if i, ok := h.index[k]; ok {
		h.entries[i].values = []string{value}
		return
	}
	h.index[k] = len(h.entries)
	h.entries = append(h.entries, entry{key: k, values: []string{value}})
}

// Get returns the first value associated with key, or "" if absent.
func (h *Header) Get(key string) string {
	if h == nil || h.index == nil {
		return ""
	}
	if i, ok := h.index[canon(key)]; ok && len(h.entries[i].values) > 0 {
		return h.entries[i].values[0]
	}
	return ""
}

// Values returns every value associated with key, in insertion order.
func (h *Header) Values(key string) []string {
	if h == nil || h.index == nil {
		return nil
	}
	if i, ok := h.index[canon(key)]; ok {
		return h.entries[i].values
	}
	return nil
}

// Has reports whether key has any associated values.
func (h *Header) Has(key string) bool {
	if h == nil || h.index == nil {
		return false
	}
	_, ok := h.index[canon(key)]
	return ok
}

// Del removes every value associated with key. Later keys keep their
// relative order; the removed slot is tombstoned rather than shifted so
// indices stay valid.
func (h *Header) Del(key string) {
	if h.index == nil {
		return
	}
	k := canon(key)
	i, ok := h.index[k]
	if !ok {
		return
	}
	delete(h.index, k)
	h.entries[i].values = nil
	h.entries[i].key = ""
}

// Keys returns the distinct keys still holding values, in first-insertion
// order.
func (h *Header) Keys() []string {
	keys := make([]string, 0, len(h.entries))
	for _, e := range h.entries {
		if e.key != "" {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Clone returns a deep copy preserving order.
func (h *Header) Clone() *Header {
	if h == nil {
		return New()
	}
	c := &Header{
		entries: make([]entry, 0, len(h.entries)),
		index:   make(map[string]int, len(h.index)),
	}
	for _, e := range h.entries {
		if e.key == "" {
			continue
		}
		vv := make([]string, len(e.values))
		copy(vv, e.values)
		c.index[e.key] = len(c.entries)
		c.entries = append(c.entries, entry{key: e.key, values: vv})
	}
	return c
}

// Write serializes the header in wire order ("Key: value\r\n" per value),
// the form the HTTP/1 RequestWriter emits directly onto the connection.
func (h *Header) Write(w io.Writer) error {
	for _, e := range h.entries {
		if e.key == "" {
			continue
		}
		for _, v := range e.values {
			if _, err := io.WriteString(w, e.key); err != nil {
				return err
			}
			if _, err := io.WriteString(w, ": "); err != nil {
				return err
			}
			if _, err := io.WriteString(w, v); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "\r\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// StandardHeaders removes the HTTP/2 pseudo-headers from a header set,
// leaving every other entry untouched. Grounded on spec.md §8's
// `standardHeaders` utility-level test requirement.
func StandardHeaders(h *Header) *Header {
	out := h.Clone()
	for _, pseudo := range []string{":method", ":scheme", ":path", ":status", ":authority"} {
		out.Del(pseudo)
	}
	return out
}
