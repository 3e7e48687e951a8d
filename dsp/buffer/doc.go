// Package buffer provides the circular sample stores used by streaming
// processors: an input history that keeps the latest frame, an overlap-add
// accumulator, and a fixed delay line.
package buffer
