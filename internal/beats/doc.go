// Package beats defines the narrative-beat domain model shared by the
// pipeline components: beat identifiers, target formats, and prompt records.
package beats
