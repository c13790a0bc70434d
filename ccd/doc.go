// Package ccd prepares raw detector frames for extraction.
//
// It covers the usual calibration chain of a small echelle reduction:
// master bias and flat construction ([ZeroCombine], [FlatCombine]), bias
// subtraction, flat division, trimming to an IRAF image section, repair of
// known bad columns, median based cosmic ray rejection and a vertical zoom
// that spreads closely packed orders over more rows.
//
// All functions return new frames; inputs are never modified.
package ccd
