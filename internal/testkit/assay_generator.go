package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"assaykit/adapters/curve"
	"assaykit/domain/assay"
)

// ConditionSpec describes the true concentration distribution of one
// experimental condition.
type ConditionSpec struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// AssayGeneratorConfig configures the synthetic plate generator
type AssayGeneratorConfig struct {
	Params         assay.FourPLParams `json:"params"`
	Concentrations []float64          `json:"concentrations"`
	Replicates     int                `json:"replicates"`
	NoiseSD        float64            `json:"noise_sd"`
	Conditions     []ConditionSpec    `json:"conditions"`
	Days           []string           `json:"days"`
	SamplesPerCell int                `json:"samples_per_cell"`
	Seed           int64              `json:"seed"`
}

// DefaultAssayConfig returns a sandwich-ELISA-like plate: rising curve,
// duplicate standards and three conditions over three days.
func DefaultAssayConfig() AssayGeneratorConfig {
	return AssayGeneratorConfig{
		Params:         assay.FourPLParams{A: 0.1, B: 1.5, C: 50, D: 2.0},
		Concentrations: []float64{0, 1, 5, 25, 50, 100, 250, 500},
		Replicates:     2,
		NoiseSD:        0.01,
		Conditions: []ConditionSpec{
			{Name: "Control", Mean: 20, SD: 2},
			{Name: "Treatment A", Mean: 45, SD: 3},
			{Name: "Treatment B", Mean: 22, SD: 2},
		},
		Days:           []string{"1", "3", "7"},
		SamplesPerCell: 4,
		Seed:           42,
	}
}

// AssayDataGenerator generates synthetic standards and samples
type AssayDataGenerator struct {
	config AssayGeneratorConfig
	rng    *rand.Rand
}

// NewAssayDataGenerator creates a new generator
func NewAssayDataGenerator(config AssayGeneratorConfig) *AssayDataGenerator {
	return &AssayDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Standards returns replicate standard points with Gaussian absorbance noise.
func (g *AssayDataGenerator) Standards() []assay.DataPoint {
	replicates := g.config.Replicates
	if replicates < 1 {
		replicates = 1
	}
	points := make([]assay.DataPoint, 0, len(g.config.Concentrations)*replicates)
	for _, x := range g.config.Concentrations {
		for r := 0; r < replicates; r++ {
			y := curve.Evaluate(x, g.config.Params) + g.rng.NormFloat64()*g.config.NoiseSD
			points = append(points, assay.DataPoint{X: x, Y: y})
		}
	}
	return points
}

// Samples returns unknown wells for every condition and day. True
// concentrations are drawn per condition and shifted by 10% per day index,
// then mapped through the curve.
func (g *AssayDataGenerator) Samples() []assay.Sample {
	var samples []assay.Sample
	for dayIdx, day := range g.config.Days {
		drift := 1 + 0.1*float64(dayIdx)
		for _, cond := range g.config.Conditions {
			for i := 0; i < g.config.SamplesPerCell; i++ {
				conc := math.Max(0, (cond.Mean+g.rng.NormFloat64()*cond.SD)*drift)
				y := curve.Evaluate(conc, g.config.Params) + g.rng.NormFloat64()*g.config.NoiseSD
				samples = append(samples, assay.Sample{Condition: cond.Name, Day: day, Absorbance: y})
			}
		}
	}
	return samples
}

// ConditionNames lists the configured conditions in order.
func (g *AssayDataGenerator) ConditionNames() []string {
	names := make([]string, len(g.config.Conditions))
	for i, c := range g.config.Conditions {
		names[i] = c.Name
	}
	return names
}

// Describe returns a one-line summary of the configuration.
func (g *AssayDataGenerator) Describe() string {
	return fmt.Sprintf("%d standards x%d, %d conditions, %d days, seed %d (%s)",
		len(g.config.Concentrations), g.config.Replicates, len(g.config.Conditions),
		len(g.config.Days), g.config.Seed, g.config.Params)
}

// Plate returns standards followed by samples from the same stream.
func (g *AssayDataGenerator) Plate() *assay.Plate {
	standards := g.Standards()
	return &assay.Plate{Standards: standards, Samples: g.Samples()}
}
