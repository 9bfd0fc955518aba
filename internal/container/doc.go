// Package container decodes raw (uncompressed) SARC containers.
//
// A container is a 0x14-byte header, an SFAT section listing one fixed-size
// node per file, an SFNT section of zero-terminated names and a data region.
// The byte order is chosen by the order mark at offset 6: bytes FF FE select
// little-endian, anything else leaves the default big-endian order.
package container
