// Package organizer files generated artifacts into the versioned project
// tree.
//
// The layout mirrors what the editing suite imports directly:
//
//	ProjectRoot/
//	  Episode_{N}_{Title}/
//	    Assets/Images/
//	      Widescreen/Scene_{N}/
//	      ShortForm/Scene_{N}/
//
// Filenames carry the beat id, the format tag, and a two-digit version.
// Existing files are never overwritten; a re-run of the same beat lands as
// the next version.
package organizer
