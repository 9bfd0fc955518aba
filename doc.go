// Package sarc reads SARC archives, the container format that bundles
// named files into a single file, optionally wrapped in Yaz0 or zstd
// whole-file compression.
//
// Archives are decoded fully into memory and are read-only:
//
//	archive, err := sarc.OpenFile("Layout.sarc.zs")
//	if err != nil {
//	    return err
//	}
//	data, err := archive.Lookup("blyt/main.bflyt")
//
// The compression envelope is detected from the first four bytes, and the
// container's byte order from its order mark, so the same call handles big-
// and little-endian archives with or without compression.
//
// [Archive] implements fs.FS, fs.StatFS, fs.ReadFileFS and fs.ReadDirFS.
// Directories are synthesized from slash-separated entry names.
package sarc
