// Package niche maps an economic path and a free-form interest to a canonical
// niche of the seeded taxonomy and the keyword set tracked for it.
//
// The taxonomy is a forest: one root per path (depth 0) with children whose
// depth is parent depth + 1. It is seeded once and read-only at runtime.
// Resolution never fails; unmatched input or an unavailable store degrades to
// the path root, then to a synthetic "<path>.general" niche.
package niche
