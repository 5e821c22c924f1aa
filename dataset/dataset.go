// Package dataset reads the IDX binary sample format used by the MNIST
// database and pairs feature records with label records into labelled
// training points.
package dataset

import (
	"math/rand"

	"github.com/ldsec/mnistnn/matrix"
)

// DataPoint is one labelled example: a feature column vector and its one-hot
// label column. Both matrices are immutable after construction.
type DataPoint struct {
	Data  matrix.Matrix
	Label matrix.Matrix
}

// Set is an ordered collection of labelled examples.
type Set []DataPoint

// Shuffle permutes s in place, drawing from rng so runs are reproducible when
// the caller seeds the generator.
func (s Set) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}
