// Package poly fits and evaluates orthogonal polynomial series.
//
// Two bases are supported:
//
//   - [Chebyshev]: T0 = 1, T1 = t, T(k+1) = 2t*T(k) - T(k-1)
//   - [Legendre]:  P0 = 1, P1 = t, (k+1)*P(k+1) = (2k+1)*t*P(k) - k*P(k-1)
//
// A [Series] carries the x-domain it was fitted over; evaluation maps x
// linearly from that domain onto [-1, 1] before applying the recurrence. The
// mapping keeps high-degree fits over pixel coordinates (0..2047 and beyond)
// well conditioned without changing the fitted function.
//
// Least-squares fits are solved by QR factorisation of the basis matrix
// using gonum.
package poly
