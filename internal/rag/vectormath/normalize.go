package vectormath

import "math"

// zeroNormGuard replaces a zero norm before division. The resulting vector is
// huge and effectively meaningless, which is the intended degenerate-input
// policy: never divide by zero, never crash.
const zeroNormGuard = 1e-8

// NormalizeRows L2-normalizes each vector in place so that a dot-product
// search over the rows is equivalent to cosine similarity.
func NormalizeRows(rows [][]float32) {
	for _, row := range rows {
		NormalizeRow(row)
	}
}

// NormalizeRow L2-normalizes a single vector in place.
func NormalizeRow(row []float32) {
	var sum float64
	for _, v := range row {
		sum += float64(v) * float64(v)
	}

	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = zeroNormGuard
	}

	for i := range row {
		row[i] = float32(float64(row[i]) / norm)
	}
}
