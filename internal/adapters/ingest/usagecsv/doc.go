// Package usagecsv streams delimited usage-record files in fixed size chunks
// and writes the per-chunk rejection exports.
//
// Files ending in .gz are decompressed transparently. Rows come out as
// cleaning.Batch values holding the raw strings; every row keeps the 1-based
// data line it starts on (header lines are not counted) so rejections can point
// back into the file even after a quoted field that spans lines
package usagecsv
