package keyfs

import (
	"strconv"
	"strings"
)

const (
	// MetadataLayoutVersion is the bucket metadata key holding the
	// namespace layout version token.
	MetadataLayoutVersion = "keyfs.layout.version"

	// MetadataFSPathsEnabled is the bucket metadata key holding the flag
	// that enables filesystem path semantics for a bucket.
	MetadataFSPathsEnabled = "keyfs.enable.filesystem.paths"

	// LayoutVersionV1 is the layout version under which buckets keep
	// their keys in filesystem-optimized form, with directory entries
	// materialized.
	LayoutVersionV1 = "V1"
)

// IsFSOptimizedBucket reports whether the bucket described by md uses the
// filesystem-optimized layout: the layout version must equal
// LayoutVersionV1 (compared case-insensitively) and the filesystem-paths
// flag must parse as true. Absent or unparseable values count as false;
// this never fails.
func IsFSOptimizedBucket(md map[string]string) bool {
	layoutEnabled := strings.EqualFold(LayoutVersionV1, md[MetadataLayoutVersion])
	fsEnabled, _ := strconv.ParseBool(md[MetadataFSPathsEnabled])
	return layoutEnabled && fsEnabled
}

// FSOptimizedMetadata returns a metadata mapping that marks a bucket as
// filesystem-optimized. Convenience for backends and tests.
func FSOptimizedMetadata() map[string]string {
	return map[string]string{
		MetadataLayoutVersion:  LayoutVersionV1,
		MetadataFSPathsEnabled: "true",
	}
}
