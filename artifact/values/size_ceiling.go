package values

import (
	"github.com/inhies/go-bytesize"
)

// SizeCeiling is the maximum accepted payload size in bytes.
type SizeCeiling int64

const (
	// PluginCeiling bounds plugin archives.
	PluginCeiling SizeCeiling = SizeCeiling(25 * bytesize.MB)

	// BundleCeiling bounds version and runtime bundles.
	BundleCeiling SizeCeiling = SizeCeiling(200 * bytesize.MB)

	// ImageCeiling bounds embedded descriptor images.
	ImageCeiling SizeCeiling = SizeCeiling(5 * bytesize.MB)
)

// Allows reports whether size fits; exactly the ceiling is accepted.
func (c SizeCeiling) Allows(size int64) bool {
	return size <= int64(c)
}

// Bytes returns the ceiling as an int64.
func (c SizeCeiling) Bytes() int64 {
	return int64(c)
}

// String renders the ceiling for humans ("25.00MB").
func (c SizeCeiling) String() string {
	return bytesize.New(float64(c)).String()
}

// Strictness selects how the verification routine reports rejections.
type Strictness int

const (
	// Permissive turns rejections into a ValidationOutcome value.
	Permissive Strictness = iota
	// Strict returns every rejection as an error.
	Strict
)

func (s Strictness) String() string {
	if s == Strict {
		return "strict"
	}
	return "permissive"
}
