// Package network implements a fully-connected feed-forward classifier
// trained with mini-batch stochastic gradient descent, L2 weight decay and
// backpropagation, plus the binary codec that persists trained weights.
package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.dedis.ch/onet/v3/log"

	"github.com/ldsec/mnistnn/dataset"
	"github.com/ldsec/mnistnn/matrix"
)

// ErrWeightChain indicates weight matrices whose shapes do not chain: the
// column count of every layer must equal the row count of the layer before.
var ErrWeightChain = errors.New("network: weight matrix shapes do not chain")

// Network is an ordered sequence of weight matrices, one per layer
// transition. The first layer's input dimension already counts the constant
// 1.0 feature appended by the dataset loader, so weights[0]'s extra column
// carries a bias for the first affine map; later layers have no bias term.
//
// The weight matrices are owned exclusively by the Network and are replaced
// wholesale once per mini-batch during training; a single caller must drive
// training sequentially.
type Network struct {
	weights []matrix.Matrix
	rng     *rand.Rand
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func sigmoidPrime(z float64) float64 {
	s := sigmoid(z)
	return s * (1 - s)
}

// New creates a network with the given neuron count per layer, input layer
// first. Weights are initialised from N(0, 1/fanIn) so that weighted sums
// start small and no neuron begins saturated. rng also drives the per-epoch
// shuffle during training; seed it for reproducible runs.
func New(rng *rand.Rand, sizes ...int) *Network {
	weights := make([]matrix.Matrix, len(sizes)-1)
	for l := range weights {
		weights[l] = matrix.NewGaussian(sizes[l+1], sizes[l], 1/math.Sqrt(float64(sizes[l])), rng)
	}
	return &Network{weights: weights, rng: rng}
}

// FromWeights creates a network that adopts pre-trained weight matrices,
// typically produced by Load. Returns ErrWeightChain when the shapes do not
// line up.
func FromWeights(weights []matrix.Matrix) (*Network, error) {
	for i := 1; i < len(weights); i++ {
		if weights[i].Cols() != weights[i-1].Rows() {
			return nil, fmt.Errorf("%w: layer %d is %dx%d but layer %d is %dx%d",
				ErrWeightChain,
				i-1, weights[i-1].Rows(), weights[i-1].Cols(),
				i, weights[i].Rows(), weights[i].Cols())
		}
	}
	return &Network{weights: weights, rng: rand.New(rand.NewSource(0))}, nil
}

// Layers returns the number of layer transitions.
func (n *Network) Layers() int { return len(n.weights) }

// Sizes returns the neuron count of every layer, input layer first.
func (n *Network) Sizes() []int {
	sizes := make([]int, len(n.weights)+1)
	sizes[0] = n.weights[0].Cols()
	for l, w := range n.weights {
		sizes[l+1] = w.Rows()
	}
	return sizes
}

// FeedForward computes the network output for one input column. The input
// must be m×1 with m equal to the first layer's size (including the trailing
// constant feature); the result is a column with one activation per class.
// Pure with respect to the input and the current weights.
func (n *Network) FeedForward(input matrix.Matrix) matrix.Matrix {
	activation := input
	for _, w := range n.weights {
		activation = w.Mul(activation).Apply(sigmoid)
	}
	return activation
}

// Train runs mini-batch stochastic gradient descent over training for the
// given number of epochs, evaluating against test after every epoch (and
// once before any update, as the epoch-0 baseline). test never contributes
// to a weight update. The training set is reshuffled every epoch; any
// trailing slice shorter than batchSize is dropped.
//
// eta is the learning rate and lambda the L2 decay coefficient; the decay
// applied each update is proportional to the share of the full training set
// a batch represents.
func (n *Network) Train(training, test dataset.Set, epochs, batchSize int, eta, lambda float64) *History {
	hist := &History{}
	baseline := n.Evaluate(test)
	log.Lvl2("epoch 0:", baseline)
	hist.Record(0, baseline)

	for epoch := 1; epoch <= epochs; epoch++ {
		training.Shuffle(n.rng)
		for batch := 0; batch+batchSize <= len(training); batch += batchSize {
			n.trainMiniBatch(training[batch:batch+batchSize], len(training), eta, lambda)
		}
		res := n.Evaluate(test)
		log.Lvl2(fmt.Sprintf("epoch %d:", epoch), res)
		hist.Record(epoch, res)
	}
	return hist
}

// trainMiniBatch accumulates the gradient over one batch and applies a
// single regularized gradient-descent step:
//
//	w[l] ← w[l]·(1 − eta·lambda/total) − sum[l]·(eta/batchSize)
//
// total is the full training-set size, not the batch size, so the shrinkage
// of each step matches the fraction of the dataset the batch covers.
func (n *Network) trainMiniBatch(batch dataset.Set, total int, eta, lambda float64) {
	nabla := make([]matrix.Matrix, len(n.weights))
	for _, p := range batch {
		delta := n.backPropagate(p)
		for l := range nabla {
			nabla[l] = delta[l].Add(nabla[l])
		}
	}

	decay := 1 - eta*lambda/float64(total)
	step := eta / float64(len(batch))
	for l, w := range n.weights {
		n.weights[l] = w.Scale(decay).Sub(nabla[l].Scale(step))
	}
}

// backPropagate returns the gradient of the cross-entropy cost of one
// example with respect to every weight matrix.
//
// The forward pass records each layer's weighted input z and activation a.
// The output error is a_L − y: the cross-entropy cost is chosen so that the
// σ′(z_L) factor cancels, which keeps learning fast even when an output
// neuron is saturated. Inner errors propagate as
//
//	δ_l = (w[l+1]ᵀ·δ_{l+1}) ⊙ σ′(z_l)
//
// and the gradient for w[l] is δ_{l+1}·a_lᵀ.
func (n *Network) backPropagate(p dataset.DataPoint) []matrix.Matrix {
	layers := len(n.weights)
	a := make([]matrix.Matrix, layers+1)
	z := make([]matrix.Matrix, layers+1)
	d := make([]matrix.Matrix, layers+1)

	a[0] = p.Data
	for l, w := range n.weights {
		z[l+1] = w.Mul(a[l])
		a[l+1] = z[l+1].Apply(sigmoid)
	}

	d[layers] = a[layers].Sub(p.Label)
	for l := layers - 1; l > 0; l-- {
		d[l] = n.weights[l].T().Mul(d[l+1]).MulElem(z[l].Apply(sigmoidPrime))
	}

	nabla := make([]matrix.Matrix, layers)
	for l := range nabla {
		nabla[l] = d[l+1].Mul(a[l].T())
	}
	return nabla
}
