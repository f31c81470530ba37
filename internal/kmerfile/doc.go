// Package kmerfile reads the line-oriented k-mer input file and assigns
// each rank its partition of lines.
//
// This package is deliberately unglamorous: the file format itself is
// an external collaborator per the system's own scope (the hard
// engineering lives in internal/table, not here). Each line holds a
// K-base DNA sequence immediately followed by a forward extension byte
// and a backward extension byte: for K=3 the line "ACGTF" decodes to
// sequence "ACG", forward extension 'T', backward extension 'F'.
package kmerfile
