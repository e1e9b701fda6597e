// Package chunking splits snippet code into bounded-length chunks for
// independent embedding. Chunking is a pure function of the text and the
// bound, which makes it safe to recompute during orchestration replay.
package chunking
