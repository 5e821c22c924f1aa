package network

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/ldsec/mnistnn/dataset"
)

// Result holds classification counts from one evaluation pass: per-class
// correct and total counts plus the aggregate number of hits.
type Result struct {
	Correct []int // correct predictions per true class
	Totals  []int // examples per true class
	Hits    int   // total correct predictions
	N       int   // total examples
}

// Evaluate classifies every example of test with the argmax decision rule
// (ties to the lowest index) and tallies per-class and overall counts. The
// network is not modified.
func (n *Network) Evaluate(test dataset.Set) Result {
	classes := n.weights[len(n.weights)-1].Rows()
	res := Result{
		Correct: make([]int, classes),
		Totals:  make([]int, classes),
		N:       len(test),
	}
	for _, p := range test {
		predicted, _ := n.FeedForward(p.Data).ArgMax()
		truth, _ := p.Label.ArgMax()
		res.Totals[truth]++
		if predicted == truth {
			res.Hits++
			res.Correct[truth]++
		}
	}
	return res
}

// Accuracy returns the overall percentage of correct predictions.
func (r Result) Accuracy() float64 {
	if r.N == 0 {
		return 0
	}
	return 100 * float64(r.Hits) / float64(r.N)
}

// ClassAccuracy returns the percentage of class-i examples classified
// correctly, or 0 when the test set had none.
func (r Result) ClassAccuracy(i int) float64 {
	if r.Totals[i] == 0 {
		return 0
	}
	return 100 * float64(r.Correct[i]) / float64(r.Totals[i])
}

// Summary condenses the per-class accuracies into mean, standard deviation,
// minimum and maximum. A large spread flags classes the network confuses
// even when the overall accuracy looks fine.
func (r Result) Summary() (mean, stddev, min, max float64) {
	acc := make([]float64, len(r.Totals))
	for i := range acc {
		acc[i] = r.ClassAccuracy(i)
	}
	mean, _ = stats.Mean(acc)
	stddev, _ = stats.StandardDeviation(acc)
	min, _ = stats.Min(acc)
	max, _ = stats.Max(acc)
	return mean, stddev, min, max
}

// String renders the per-class and overall percentages on one line.
func (r Result) String() string {
	var b strings.Builder
	b.WriteString("accuracy = {")
	for i := range r.Totals {
		fmt.Fprintf(&b, "%d: %.2f%%, ", i, r.ClassAccuracy(i))
	}
	fmt.Fprintf(&b, "total: %.2f%%}", r.Accuracy())
	return b.String()
}
