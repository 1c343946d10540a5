// Package textnorm implements the deterministic text normalization shared
// by the coordinator and the workers: lowercase, Unicode word
// segmentation, stopword removal, and snowball stemming for English and
// Spanish.
//
// Adding a language means adding a stopword table and a stemmer mapping;
// nothing outside this package changes.
package textnorm
