// Package design computes biquad coefficients for the filter shapes used in
// correlation display processing: RBJ cookbook lowpass/highpass/bandpass
// prototypes and Butterworth cascades of arbitrary order.
package design
