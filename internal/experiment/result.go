package experiment

import (
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Tally counts correct and incorrect responses per color.
type Tally struct {
	correct []int
	total   []int
}

// NewTally returns a tally over n colors.
func NewTally(n int) *Tally {
	return &Tally{correct: make([]int, n), total: make([]int, n)}
}

// Add records one response for color index i.
func (t *Tally) Add(i int, correct bool) {
	t.total[i]++
	if correct {
		t.correct[i]++
	}
}

// Merge adds other's counts into t.
func (t *Tally) Merge(other *Tally) {
	for i := range t.total {
		t.total[i] += other.total[i]
		t.correct[i] += other.correct[i]
	}
}

// Totals returns the number of responses per color.
func (t *Tally) Totals() []int {
	out := make([]int, len(t.total))
	copy(out, t.total)
	return out
}

// Errors returns the proportion of incorrect responses per color. Colors
// never shown report 0.
func (t *Tally) Errors() []float64 {
	out := make([]float64, len(t.total))
	for i, n := range t.total {
		if n > 0 {
			out[i] = float64(n-t.correct[i]) / float64(n)
		}
	}
	return out
}

// Result compares model output against human data.
type Result struct {
	Name  string
	Model []float64
	Human []float64
	// Trials is the number of responses behind each model value.
	Trials []int
}

func (r Result) paired() (model, human []float64) {
	n := min(len(r.Model), len(r.Human))
	return r.Model[:n], r.Human[:n]
}

// Correlation returns the Pearson correlation of model and human values, or
// NaN when either side has no variance.
func (r Result) Correlation() float64 {
	x, y := r.paired()
	if len(x) < 2 || stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// RMSE returns the root mean squared error between model and human values.
func (r Result) RMSE() float64 {
	x, y := r.paired()
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Distance(x, y, 2) / math.Sqrt(float64(len(x)))
}

// Write prints the model and human rows followed by the fit statistics.
func (r Result) Write(w io.Writer, decimals int) error {
	row := func(label string, vals []float64) string {
		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = fmt.Sprintf("%.*f", decimals, v)
		}
		return fmt.Sprintf("%-6s %s", label, strings.Join(cells, " "))
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n%s\nR=%.*f RMSE=%.*f\n",
		r.Name,
		row("model", r.Model),
		row("human", r.Human),
		decimals, r.Correlation(),
		decimals, r.RMSE())
	return err
}
