// Package random provides a file-backed deterministic source of gaussian
// variates for offline debugging. It implements the same matrix.Gaussian
// interface that *math/rand.Rand satisfies, so a debugging session can
// replay the exact weight initialisation of an earlier run; it is never
// wired into normal training.
package random

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
)

// ErrExhausted indicates the variate file ran out of values.
var ErrExhausted = errors.New("random: variate file exhausted")

// File reads pre-generated uniform variates in [0,1), one decimal per line,
// and derives standard-normal values from them with the Marsaglia polar
// method.
//
// The error model follows bufio.Scanner: after a read or parse failure,
// NormFloat64 returns 0 and Err reports what went wrong.
type File struct {
	f       *os.File
	sc      *bufio.Scanner
	err     error
	hasNext bool
	next    float64
}

// Open opens the named variate file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("random: %w", err)
	}
	return &File{f: f, sc: bufio.NewScanner(f)}, nil
}

// Close releases the underlying file.
func (r *File) Close() error { return r.f.Close() }

// Err returns the first error encountered while reading variates, if any.
func (r *File) Err() error { return r.err }

func (r *File) uniform() float64 {
	if r.err != nil {
		return 0
	}
	if !r.sc.Scan() {
		if r.err = r.sc.Err(); r.err == nil {
			r.err = ErrExhausted
		}
		return 0
	}
	v, err := strconv.ParseFloat(r.sc.Text(), 64)
	if err != nil {
		r.err = fmt.Errorf("random: %w", err)
		return 0
	}
	return v
}

// NormFloat64 returns the next standard-normal variate. The polar method
// produces them in pairs; the second of each pair is held back for the next
// call.
func (r *File) NormFloat64() float64 {
	if r.hasNext {
		r.hasNext = false
		return r.next
	}
	var v1, v2, s float64
	for {
		v1 = 2*r.uniform() - 1
		v2 = 2*r.uniform() - 1
		s = v1*v1 + v2*v2
		if r.err != nil {
			return 0
		}
		if s < 1 && s != 0 {
			break
		}
	}
	multiplier := math.Sqrt(-2 * math.Log(s) / s)
	r.next = v2 * multiplier
	r.hasNext = true
	return v1 * multiplier
}
