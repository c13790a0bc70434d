// Package fitsframe reads and writes [frame.Frame] values as FITS primary
// images using github.com/astrogo/fitsio.
//
// Any integer or floating point BITPIX is accepted on input and scaled
// through BZERO and BSCALE. Output is always BITPIX -64 so that reduced data
// keeps full precision. Header cards travel with the frame; the structural
// keywords describing the pixel array are regenerated on write.
package fitsframe
