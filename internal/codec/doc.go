// Package codec implements the bi-level run-length video codec.
//
// Every pixel is reduced to black or white by thresholding its average RGB
// luminance, and every scanline is stored as a sequence of alternating run
// lengths, one byte per run, always starting with a (possibly empty) black
// run. Runs longer than 255 pixels are split into a 255 run followed by an
// empty run of the opposite colour, so strict alternation is never broken.
//
// The encoded stream carries no row or frame delimiters: rows end when their
// runs cover the frame width and frames end after the frame height in rows.
// An optional 8-byte little-endian header (width, height, frame rate and
// three reserved bytes) may precede the first frame.
package codec
