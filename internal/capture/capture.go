// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records driver station traffic as a CBOR item stream.
//
// A capture starts with a Header item followed by one Record item per
// datagram. Items are self-delimiting, so a capture cut short by a crash is
// readable up to the last complete record.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

// Magic identifies a capture stream
const Magic = "stationlink-capture"

// Version is the current capture format version
const Version = 1

var (
	ErrBadMagic    = errors.New("capture: not a capture stream")
	ErrBadVersion  = errors.New("capture: unsupported version")
	ErrWriterClose = errors.New("capture: writer closed")
)

// Header opens a capture stream
type Header struct {
	Magic      string    `cbor:"1,keyasint"`
	Version    int       `cbor:"2,keyasint"`
	Session    uuid.UUID `cbor:"3,keyasint"`
	Generation uint8     `cbor:"4,keyasint"`
	Started    int64     `cbor:"5,keyasint"` // unix nanoseconds
}

// Record is one captured datagram
type Record struct {
	Time      int64  `cbor:"1,keyasint"` // unix nanoseconds
	Channel   uint8  `cbor:"2,keyasint"`
	Direction uint8  `cbor:"3,keyasint"`
	Data      []byte `cbor:"4,keyasint"`
}

// Timestamp returns the capture time of the record
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// PacketChannel returns the record channel
func (r Record) PacketChannel() dsproto.Channel {
	return dsproto.Channel(r.Channel)
}

// PacketDirection returns the record direction
func (r Record) PacketDirection() dsproto.Direction {
	return dsproto.Direction(r.Direction)
}

// Writer appends records to a capture stream. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	closer  io.Closer
	header  Header
	records int
	closed  bool
}

// NewWriter writes a header for a fresh session and returns the writer
func NewWriter(w io.Writer, gen dsproto.Generation, started time.Time) (*Writer, error) {
	header := Header{
		Magic:      Magic,
		Version:    Version,
		Session:    uuid.New(),
		Generation: uint8(gen),
		Started:    started.UnixNano(),
	}

	enc := cbor.NewEncoder(w)
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}

	cw := &Writer{enc: enc, header: header}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw, nil
}

// Create creates (or truncates) a capture file
func Create(path string, gen dsproto.Generation) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture %s: %w", path, err)
	}
	w, err := NewWriter(f, gen, time.Now())
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Session returns the session ID written in the header
func (w *Writer) Session() uuid.UUID {
	return w.header.Session
}

// Records returns the number of records written
func (w *Writer) Records() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// WritePacket appends one datagram
func (w *Writer) WritePacket(ch dsproto.Channel, dir dsproto.Direction, data []byte, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClose
	}
	rec := Record{
		Time:      at.UnixNano(),
		Channel:   uint8(ch),
		Direction: uint8(dir),
		Data:      data,
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	w.records++
	return nil
}

// Close closes the underlying writer when it is an io.Closer
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Reader iterates over a capture stream
type Reader struct {
	dec    *cbor.Decoder
	closer io.Closer
	header Header
}

// NewReader reads and checks the stream header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)

	var header Header
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if header.Magic != Magic {
		return nil, ErrBadMagic
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, header.Version)
	}

	cr := &Reader{dec: dec, header: header}
	if c, ok := r.(io.Closer); ok {
		cr.closer = c
	}
	return cr, nil
}

// Open opens a capture file
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Header returns the stream header
func (r *Reader) Header() Header {
	return r.header
}

// Generation returns the protocol generation of the capture
func (r *Reader) Generation() dsproto.Generation {
	return dsproto.Generation(r.header.Generation)
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to read capture record: %w", err)
	}
	return rec, nil
}

// Close closes the underlying reader when it is an io.Closer
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
