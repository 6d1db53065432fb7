// Package spectrum provides FFT-adjacent spectrum-domain utilities.
//
// The package intentionally does not implement FFT itself. It operates on
// complex spectrum bins produced by external FFT backends and provides
// helpers for magnitude/power/phase extraction, bin frequency vectors, and
// fast transform length selection.
package spectrum
