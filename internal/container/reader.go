package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/sarc/internal/sarctype"
)

// reader is a positioned reader over one container.
//
// Offsets are relative to the container start (base). The byte order is set
// once the order mark has been read and applies to every later multi-byte
// field of the same decode; it is never shared between decodes.
type reader struct {
	rs    io.ReadSeeker
	base  int64
	size  int64
	off   int64
	order binary.ByteOrder
	buf   [4]byte
}

// newReader records the current stream position as the container start and
// measures the remaining length.
func newReader(rs io.ReadSeeker) (*reader, error) {
	base, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("sarc: locate stream start: %w", err)
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("sarc: measure stream: %w", err)
	}
	if _, err := rs.Seek(base, io.SeekStart); err != nil {
		return nil, fmt.Errorf("sarc: rewind stream: %w", err)
	}
	return &reader{
		rs:    rs,
		base:  base,
		size:  end - base,
		order: binary.BigEndian,
	}, nil
}

func (r *reader) seek(off int64) error {
	if _, err := r.rs.Seek(r.base+off, io.SeekStart); err != nil {
		return fmt.Errorf("sarc: seek to %#x: %w", off, err)
	}
	r.off = off
	return nil
}

func (r *reader) skip(n int64) error {
	return r.seek(r.off + n)
}

// at runs fn with the cursor at off and restores the previous cursor
// afterwards, whether or not fn succeeds.
func (r *reader) at(off int64, fn func() error) (err error) {
	saved := r.off
	if err := r.seek(off); err != nil {
		return err
	}
	defer func() {
		if serr := r.seek(saved); serr != nil && err == nil {
			err = serr
		}
	}()
	return fn()
}

func (r *reader) fail(field string, off int64, sentinel error, detail string) error {
	return &sarctype.FormatError{Field: field, Offset: off, Detail: detail, Err: sentinel}
}

func (r *reader) readFull(field string, p []byte) error {
	start := r.off
	n, err := io.ReadFull(r.rs, p)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return r.fail(field, start, sarctype.ErrTruncated,
				fmt.Sprintf("need %d bytes, have %d", len(p), n))
		}
		return fmt.Errorf("sarc: read %s: %w", field, err)
	}
	return nil
}

func (r *reader) magic(field string) (string, error) {
	if err := r.readFull(field, r.buf[:4]); err != nil {
		return "", err
	}
	return string(r.buf[:4]), nil
}

func (r *reader) raw16(field string) ([2]byte, error) {
	if err := r.readFull(field, r.buf[:2]); err != nil {
		return [2]byte{}, err
	}
	return [2]byte{r.buf[0], r.buf[1]}, nil
}

func (r *reader) u16(field string) (uint16, error) {
	if err := r.readFull(field, r.buf[:2]); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.buf[:2]), nil
}

func (r *reader) u32(field string) (uint32, error) {
	if err := r.readFull(field, r.buf[:4]); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.buf[:4]), nil
}

// block reads exactly n bytes into a new slice.
func (r *reader) block(field string, n int) ([]byte, error) {
	p := make([]byte, n)
	if err := r.readFull(field, p); err != nil {
		return nil, err
	}
	return p, nil
}

// cstring reads a zero-terminated string. It reads ahead in chunks, so the
// stream cursor is left past the terminator; call it inside at.
func (r *reader) cstring(field string) (string, error) {
	start := r.off
	var out []byte
	var chunk [64]byte
	for {
		n, err := r.rs.Read(chunk[:])
		if i := bytes.IndexByte(chunk[:n], 0); i >= 0 {
			out = append(out, chunk[:i]...)
			r.off += int64(i + 1)
			return string(out), nil
		}
		out = append(out, chunk[:n]...)
		r.off += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", r.fail(field, start, sarctype.ErrTruncated, "unterminated string")
			}
			return "", fmt.Errorf("sarc: read %s: %w", field, err)
		}
		if n == 0 && r.off >= r.size {
			return "", r.fail(field, start, sarctype.ErrTruncated, "unterminated string")
		}
	}
}
