package sarctype

import "fmt"

// UnnamedSuffix is appended to the hex hash of entries stored without a name.
const UnnamedSuffix = ".bin"

// Entry is one decoded archive member.
type Entry struct {
	// Name is the stored file name, or the synthesized "XXXXXXXX.bin" name
	// when the node carries no name.
	Name string

	// Hash is the node's 32-bit filename hash.
	Hash uint32

	// Named reports whether Name came from the name table.
	Named bool

	// Data is the entry content. It aliases archive memory and must be
	// treated as immutable.
	Data []byte
}

// HashName returns the fallback name for an entry stored without a name.
func HashName(hash uint32) string {
	return fmt.Sprintf("%08X%s", hash, UnnamedSuffix)
}
