package audio

import (
	"math"
	"math/big"
)

// NoPTS is FFmpeg's AV_NOPTS_VALUE.
const NoPTS int64 = math.MinInt64

// TimeBase is FFmpeg's AV_TIME_BASE, the container-level microsecond clock.
const TimeBase = 1000000

// Rational is a timebase expressed as Num/Den seconds.
type Rational struct {
	Num int32
	Den int32
}

// Valid reports whether the rational can be used as a timebase.
func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// Float returns the rational as seconds per tick.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Seconds converts ts in timebase tb to seconds. NoPTS converts to NaN.
func Seconds(ts int64, tb Rational) float64 {
	if ts == NoPTS {
		return math.NaN()
	}
	return float64(ts) * tb.Float()
}

// RescaleQ rescales a from timebase bq to timebase cq, rounding half away
// from zero. NoPTS passes through unchanged.
func RescaleQ(a int64, bq, cq Rational) int64 {
	if a == NoPTS || !bq.Valid() || !cq.Valid() {
		return a
	}
	if bq == cq {
		return a
	}

	num := big.NewInt(a)
	num.Mul(num, big.NewInt(int64(bq.Num)*int64(cq.Den)))
	den := big.NewInt(int64(bq.Den) * int64(cq.Num))

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	r.Abs(r).Lsh(r, 1)
	if r.Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}

	if !q.IsInt64() {
		if q.Sign() < 0 {
			return math.MinInt64 + 1
		}
		return math.MaxInt64
	}
	return q.Int64()
}

// SampleBudget returns the number of samples covering [start, end) at rate.
func SampleBudget(start, end float64, rate int) int64 {
	return int64(math.Round((end - start) * float64(rate)))
}
