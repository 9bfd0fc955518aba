package sarctype

// DefaultHashKey is the multiplier used by practically every SARC writer.
const DefaultHashKey = 0x65

// NameHash computes the SFAT filename hash of name with the given key.
// Bytes are sign-extended before accumulation, matching the reference writers.
func NameHash(name string, key uint32) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*key + uint32(int32(int8(name[i])))
	}
	return h
}
