package compute

import (
	"math"
	"math/rand"
	"time"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

// Baselines for lines without a power profile, and for voltage on every line.
const (
	fallbackPower   = 85.0
	fallbackCurrent = 180.0
	nominalVoltage  = 380.0

	// currentPerKW converts sampled active power to phase current.
	currentPerKW = 1.7
)

// Uniform is a source of uniformly distributed values in [0, 1).
// *rand.Rand satisfies it; tests inject fixed sequences.
type Uniform interface {
	Float64() float64
}

// NewSource returns a Uniform seeded with seed, or from the clock when seed
// is zero. The result is not safe for concurrent use.
func NewSource(seed int64) Uniform {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // simulation, not crypto
}

// Sampler draws synthetic electrical readings.
// It is not safe for concurrent use; Engine serialises access.
type Sampler struct {
	src Uniform
}

// NewSampler returns a Sampler drawing from src.
func NewSampler(src Uniform) *Sampler {
	return &Sampler{src: src}
}

// Generate draws one reading stamped with ts. A nil profile selects the
// fallback baselines.
//
// Draw order is fixed so a scripted Uniform yields exact values:
// configured lines consume two values for the normal draw, one for current
// jitter and one for voltage; unconfigured lines consume one each for power,
// current and voltage.
func (s *Sampler) Generate(p *config.LineConfig, ts time.Time) types.Metric {
	var power, current float64

	if p != nil {
		power = math.Max(0, s.normal(p.MeanPower, p.StdDevPower*0.5))
		current = power * currentPerKW
		current *= 0.95 + s.src.Float64()*0.1
	} else {
		power = math.Max(0, math.Floor(fallbackPower+s.jitter(10)))
		current = math.Max(0, math.Floor(fallbackCurrent+s.jitter(10)))
	}

	voltage := math.Max(0, math.Floor(nominalVoltage+s.jitter(5)))

	return types.Metric{
		Timestamp:   ts,
		Current:     round2(current),
		Voltage:     round2(voltage),
		ActivePower: round2(power),
	}
}

// normal draws from N(mean, stdDev) with the Box-Muller transform.
// u is mapped to (0, 1] so the logarithm stays finite.
func (s *Sampler) normal(mean, stdDev float64) float64 {
	u := 1 - s.src.Float64()
	v := s.src.Float64()
	z := math.Sqrt(-2.0*math.Log(u)) * math.Cos(2.0*math.Pi*v)
	return z*stdDev + mean
}

// jitter returns a uniform value in [-half, +half).
func (s *Sampler) jitter(half float64) float64 {
	return s.src.Float64()*2*half - half
}

// intn returns a uniform integer in [0, n).
func (s *Sampler) intn(n int) int {
	return int(math.Floor(s.src.Float64() * float64(n)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
