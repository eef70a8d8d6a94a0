package stats

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Number is a float64 that serializes NaN and ±Inf as JSON null and decodes
// null back to NaN, so an undefined statistic survives a round trip.
type Number float64

// NaN returns an undefined Number.
func NaN() Number { return Number(math.NaN()) }

// Valid reports whether n is a finite value.
func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) String() string {
	if !n.Valid() {
		return "NaN"
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = NaN()
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", b, err)
	}
	*n = Number(f)
	return nil
}
