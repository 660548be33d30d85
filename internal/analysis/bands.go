// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
)

// Band is one logarithmically spaced frequency range, in Hz.
type Band struct {
	Lower float64
	Upper float64
}

// Center returns the geometric centre of the band.
func (b Band) Center() float64 { return math.Sqrt(b.Lower * b.Upper) }

// BandTable is the ordered set of bands an analyzer reduces bins into. Bands
// are contiguous: each Upper is exactly the next band's Lower.
type BandTable []Band

// NewBandTable splits [start, end] into count bands with a constant
// upper/lower ratio of (end/start)^(1/count). The last upper edge is pinned
// to end so that accumulated rounding never moves the top of the range.
func NewBandTable(start, end float64, count int) (BandTable, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: band count must be positive, got %d", ErrConfiguration, count)
	}
	if start <= 0 || start >= end {
		return nil, fmt.Errorf("%w: invalid band range [%g, %g]", ErrConfiguration, start, end)
	}

	ratio := math.Pow(end/start, 1/float64(count))
	table := make(BandTable, count)
	lower := start
	for i := range table {
		upper := lower * ratio
		if i == count-1 {
			upper = end
		}
		table[i] = Band{Lower: lower, Upper: upper}
		lower = upper
	}
	return table, nil
}

// Index returns the band containing freq, or -1 when freq lies outside the
// table. A frequency on a shared edge belongs to the upper band.
func (t BandTable) Index(freq float64) int {
	if len(t) == 0 || freq < t[0].Lower || freq > t[len(t)-1].Upper {
		return -1
	}
	for i, b := range t {
		if freq < b.Upper {
			return i
		}
	}
	return len(t) - 1
}

// binRange is the inclusive bin index span a band reduces over.
type binRange struct {
	start int
	end   int
}

// newBinRange maps a band onto bin indices. start may exceed end for a band
// narrower than one bin near the top of the spectrum; peak handles that.
func newBinRange(b Band, binWidth float64, binCount int) binRange {
	start := int(math.Round(b.Lower / binWidth))
	end := min(int(math.Round(b.Upper/binWidth)), binCount-1)
	return binRange{start: start, end: end}
}

func (t BandTable) binRanges(binWidth float64, binCount int) []binRange {
	ranges := make([]binRange, len(t))
	for i, b := range t {
		ranges[i] = newBinRange(b, binWidth, binCount)
	}
	return ranges
}

// peak returns the largest magnitude in the range. A degenerate range falls
// back to the single bin at start, clamped into the slice.
func (r binRange) peak(mags []float64) float64 {
	if r.start > r.end {
		i := min(max(r.start, 0), len(mags)-1)
		return mags[i]
	}
	hi := mags[r.start]
	for _, m := range mags[r.start+1 : r.end+1] {
		if m > hi {
			hi = m
		}
	}
	return hi
}

// reduceBands writes the max-hold value of every range into dst.
func reduceBands(dst, mags []float64, ranges []binRange) {
	for i, r := range ranges {
		dst[i] = r.peak(mags)
	}
}
