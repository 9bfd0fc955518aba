package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/sarc/internal/sarctype"
	"github.com/meigma/sarc/internal/sizing"
)

// Format constants.
const (
	Magic     = "SARC"
	SFATMagic = "SFAT"
	SFNTMagic = "SFNT"

	// Version is the only supported container version.
	Version = 0x0100

	nodeNamed    = 0x01000000
	nodeNameMask = 0x0000FFFF
	nodeSize     = 16
)

// Table is the result of a successful decode.
type Table struct {
	// Entries holds one entry per distinct name, in on-disk table order.
	// A later node with an already-seen name replaces the earlier data but
	// keeps the earlier position.
	Entries []sarctype.Entry

	// Index maps entry names to positions in Entries.
	Index map[string]int

	// ByteOrder is the byte order selected by the order mark.
	ByteOrder binary.ByteOrder

	// HashKey is the SFAT hash multiplier.
	HashKey uint32

	// DataOffset is the start of the data region.
	DataOffset uint32

	// Size is the container length in bytes.
	Size int64
}

// node is one SFAT record.
type node struct {
	hash       uint32
	named      bool
	nameOffset int64
	dataBegin  uint32
	dataLength uint32
	offset     int64
}

type decoder struct {
	verifyHashes bool
	logger       *slog.Logger
}

// Option configures Decode.
type Option func(*decoder)

// WithVerifyHashes checks every stored name against its node hash.
func WithVerifyHashes(enabled bool) Option {
	return func(d *decoder) {
		d.verifyHashes = enabled
	}
}

// WithLogger sets the logger for decode diagnostics.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(d *decoder) {
		d.logger = logger
	}
}

func (d *decoder) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// Decode parses the container starting at the current position of rs.
// The container is expected to extend to the end of the stream.
func Decode(rs io.ReadSeeker, opts ...Option) (*Table, error) {
	d := &decoder{}
	for _, opt := range opts {
		opt(d)
	}

	r, err := newReader(rs)
	if err != nil {
		return nil, err
	}

	dataOffset, err := d.readHeader(r)
	if err != nil {
		return nil, err
	}
	hashKey, nodes, err := d.readSFAT(r, dataOffset)
	if err != nil {
		return nil, err
	}
	nameBase, err := d.readSFNTHeader(r)
	if err != nil {
		return nil, err
	}

	d.log().Debug("sarc header",
		"byte_order", r.order.String(),
		"size", r.size,
		"data_offset", dataOffset,
		"nodes", len(nodes),
		"hash_key", hashKey,
	)

	t := &Table{
		Entries:    make([]sarctype.Entry, 0, len(nodes)),
		Index:      make(map[string]int, len(nodes)),
		ByteOrder:  r.order,
		HashKey:    hashKey,
		DataOffset: dataOffset,
		Size:       r.size,
	}
	for i, n := range nodes {
		entry, err := d.readEntry(r, i, n, nameBase, dataOffset, hashKey)
		if err != nil {
			return nil, err
		}
		if pos, ok := t.Index[entry.Name]; ok {
			d.log().Debug("duplicate entry name, keeping later data", "name", entry.Name, "node", i)
			t.Entries[pos] = entry
			continue
		}
		t.Index[entry.Name] = len(t.Entries)
		t.Entries = append(t.Entries, entry)
	}
	return t, nil
}

// readHeader decodes the SARC header, selects the byte order and returns
// the data region offset.
func (d *decoder) readHeader(r *reader) (uint32, error) {
	magic, err := r.magic("magic")
	if err != nil {
		if r.size < 4 {
			return 0, r.fail("magic", 0, sarctype.ErrBadMagic, "stream too short")
		}
		return 0, err
	}
	if magic != Magic {
		return 0, r.fail("magic", 0, sarctype.ErrBadMagic,
			fmt.Sprintf("got %q, possible decompression error", magic))
	}

	// Header length is not validated.
	if err := r.skip(2); err != nil {
		return 0, err
	}

	bom, err := r.raw16("byte_order")
	if err != nil {
		return 0, err
	}
	if bom == [2]byte{0xFF, 0xFE} {
		r.order = binary.LittleEndian
	}

	lengthOff := r.off
	total, err := r.u32("file_length")
	if err != nil {
		return 0, err
	}
	if int64(total) != r.size {
		return 0, r.fail("file_length", lengthOff, sarctype.ErrLengthMismatch,
			fmt.Sprintf("declared %d, actual %d", total, r.size))
	}

	dataOffset, err := r.u32("data_offset")
	if err != nil {
		return 0, err
	}

	versionOff := r.off
	version, err := r.u16("version")
	if err != nil {
		return 0, err
	}
	if version != Version {
		return 0, r.fail("version", versionOff, sarctype.ErrUnsupportedVersion,
			fmt.Sprintf("0x%04x", version))
	}

	// Reserved.
	if err := r.skip(2); err != nil {
		return 0, err
	}
	return dataOffset, nil
}

// readSFAT decodes the file allocation table.
func (d *decoder) readSFAT(r *reader, dataOffset uint32) (uint32, []node, error) {
	sfatOff := r.off
	magic, err := r.magic("sfat_magic")
	if err != nil {
		return 0, nil, err
	}
	if magic != SFATMagic {
		return 0, nil, r.fail("sfat_magic", sfatOff, sarctype.ErrMissingSFAT, fmt.Sprintf("got %q", magic))
	}

	// SFAT header length is not validated.
	if err := r.skip(2); err != nil {
		return 0, nil, err
	}
	count, err := r.u16("node_count")
	if err != nil {
		return 0, nil, err
	}
	hashKey, err := r.u32("hash_key")
	if err != nil {
		return 0, nil, err
	}

	// A truncated table would fail on read anyway; checking first avoids
	// allocating for an impossible node count.
	if r.off+int64(count)*nodeSize > r.size {
		return 0, nil, r.fail("node_count", r.off-6, sarctype.ErrTruncated,
			fmt.Sprintf("%d nodes do not fit in %d bytes", count, r.size))
	}

	nodes := make([]node, count)
	for i := range nodes {
		n, err := d.readNode(r, i, dataOffset)
		if err != nil {
			return 0, nil, err
		}
		nodes[i] = n
	}
	return hashKey, nodes, nil
}

func (d *decoder) readNode(r *reader, i int, dataOffset uint32) (node, error) {
	n := node{offset: r.off}
	field := func(name string) string {
		return fmt.Sprintf("node[%d].%s", i, name)
	}

	hash, err := r.u32(field("hash"))
	if err != nil {
		return node{}, err
	}
	attrs, err := r.u32(field("attributes"))
	if err != nil {
		return node{}, err
	}
	begin, err := r.u32(field("data_begin"))
	if err != nil {
		return node{}, err
	}
	endOff := r.off
	end, err := r.u32(field("data_end"))
	if err != nil {
		return node{}, err
	}

	if end < begin {
		return node{}, r.fail(field("data_end"), endOff, sarctype.ErrLengthMismatch,
			fmt.Sprintf("end %#x before begin %#x", end, begin))
	}
	start := uint64(dataOffset) + uint64(begin)
	if _, ok := sizing.WindowEnd(start, uint64(end-begin), uint64(r.size)); !ok { //nolint:gosec // size is non-negative
		return node{}, r.fail(field("data_end"), endOff, sarctype.ErrLengthMismatch,
			fmt.Sprintf("data window [%#x, %#x) exceeds length %d", start, start+uint64(end-begin), r.size))
	}

	n.hash = hash
	n.named = attrs&nodeNamed == nodeNamed
	n.nameOffset = int64(attrs&nodeNameMask) * 4
	n.dataBegin = begin
	n.dataLength = end - begin
	return n, nil
}

// readSFNTHeader checks the name table marker and returns the name table base.
func (d *decoder) readSFNTHeader(r *reader) (int64, error) {
	sfntOff := r.off
	magic, err := r.magic("sfnt_magic")
	if err != nil {
		return 0, err
	}
	if magic != SFNTMagic {
		return 0, r.fail("sfnt_magic", sfntOff, sarctype.ErrMissingSFNT, fmt.Sprintf("got %q", magic))
	}
	// Header length and reserved.
	if err := r.skip(4); err != nil {
		return 0, err
	}
	return r.off, nil
}

// readEntry resolves a node's name and data without moving the table cursor.
func (d *decoder) readEntry(r *reader, i int, n node, nameBase int64, dataOffset, hashKey uint32) (sarctype.Entry, error) {
	entry := sarctype.Entry{Hash: n.hash, Named: n.named}

	if n.named {
		field := fmt.Sprintf("node[%d].name", i)
		off := nameBase + n.nameOffset
		if off >= r.size {
			return sarctype.Entry{}, r.fail(field, n.offset+4, sarctype.ErrTruncated,
				fmt.Sprintf("name offset %#x outside container", off))
		}
		err := r.at(off, func() error {
			name, err := r.cstring(field)
			entry.Name = name
			return err
		})
		if err != nil {
			return sarctype.Entry{}, err
		}
		if d.verifyHashes {
			if got := sarctype.NameHash(entry.Name, hashKey); got != n.hash {
				return sarctype.Entry{}, r.fail(fmt.Sprintf("node[%d].hash", i), n.offset, sarctype.ErrHashMismatch,
					fmt.Sprintf("%q hashes to 0x%08x, node has 0x%08x", entry.Name, got, n.hash))
			}
		}
	} else {
		entry.Name = sarctype.HashName(n.hash)
	}

	length, err := sizing.ToInt(uint64(n.dataLength), sarctype.ErrSizeOverflow)
	if err != nil {
		return sarctype.Entry{}, err
	}
	err = r.at(int64(dataOffset)+int64(n.dataBegin), func() error {
		data, err := r.block(fmt.Sprintf("node[%d].data", i), length)
		entry.Data = data
		return err
	})
	if err != nil {
		return sarctype.Entry{}, err
	}
	return entry, nil
}
