// Package resolve turns backend artifact references into verified local
// paths.
//
// The generation backend reports output references in whatever form its own
// configuration produces: absolute paths, paths relative to its output root,
// or bare filenames that land in per-day subdirectories. The resolver tries
// each interpretation in a fixed order and returns the first file that
// exists.
package resolve
