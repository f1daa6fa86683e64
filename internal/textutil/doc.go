// Package textutil provides filename and path-segment sanitization for the
// organized project tree.
//
// Targets the most restrictive common filesystem (NTFS/exFAT as mounted by
// the editing workstation), so characters legal on Linux but not on Windows
// are replaced as well. Aspect-ratio tags such as "16:9" therefore never
// survive into a filename.
package textutil
