package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"featuregraph/domain/dataset"
)

// ShoppingGeneratorConfig configures the synthetic order table
type ShoppingGeneratorConfig struct {
	Orders         int       `json:"orders"`
	Segments       []string  `json:"segments"`
	ReturnRateBase float64   `json:"return_rate_base"`
	MissingRate    float64   `json:"missing_rate"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Seed           int64     `json:"seed"`
}

// DefaultShoppingConfig returns sensible defaults for order generation
func DefaultShoppingConfig() ShoppingGeneratorConfig {
	return ShoppingGeneratorConfig{
		Orders:         300,
		Segments:       []string{"bargain", "regular", "premium"},
		ReturnRateBase: 0.08,
		MissingRate:    0,
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		Seed:           42,
	}
}

// ShoppingColumns are the generated columns in order
var ShoppingColumns = []string{"order_date", "segment", "basket_size", "unit_price", "discount", "spend", "returned"}

// ShoppingTypes are the feature types of ShoppingColumns
var ShoppingTypes = []dataset.FeatureType{
	dataset.Categorical, dataset.Categorical, dataset.Numerical, dataset.Numerical,
	dataset.Numerical, dataset.Numerical, dataset.Categorical,
}

// ShoppingDataGenerator generates e-commerce orders whose return label
// depends on the segment, a periodic price effect and the order month, so
// grouped, numeric and time transformations all carry signal.
type ShoppingDataGenerator struct {
	config ShoppingGeneratorConfig
	rng    *rand.Rand
}

// NewShoppingDataGenerator creates a new generator
func NewShoppingDataGenerator(config ShoppingGeneratorConfig) *ShoppingDataGenerator {
	return &ShoppingDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateTable generates the order table
func (g *ShoppingDataGenerator) GenerateTable() (*dataset.Table, error) {
	if g.config.Orders <= 0 {
		return nil, fmt.Errorf("orders must be positive, got %d", g.config.Orders)
	}
	if len(g.config.Segments) == 0 {
		return nil, fmt.Errorf("at least one segment is required")
	}
	if !g.config.EndDate.After(g.config.StartDate) {
		return nil, fmt.Errorf("end date must be after start date")
	}

	rows := make([][]string, g.config.Orders)
	for i := range rows {
		rows[i] = g.order()
	}
	return dataset.NewTable(append([]string(nil), ShoppingColumns...), rows), nil
}

func (g *ShoppingDataGenerator) order() []string {
	segIdx := g.rng.Intn(len(g.config.Segments))
	when := g.randomTimeInRange(g.config.StartDate, g.config.EndDate)

	basket := 1 + g.rng.Intn(8)
	price := math.Round((5+float64(segIdx)*20+g.rng.ExpFloat64()*15)*100) / 100
	discount := math.Round(g.rng.Float64()*0.3*100) / 100
	spend := math.Round(float64(basket)*price*(1-discount)*100) / 100

	// returns grow with segment, peak after the holidays and oscillate with price
	p := g.config.ReturnRateBase +
		0.1*float64(segIdx) +
		0.2*math.Max(0, math.Sin(price/4)) +
		0.15*boolFloat(when.Month() == time.January)
	returned := "no"
	if g.rng.Float64() < p {
		returned = "yes"
	}

	row := []string{
		when.Format("2006-01-02 15:04:05"),
		g.config.Segments[segIdx],
		fmt.Sprint(basket),
		dataset.FormatNumber(price),
		dataset.FormatNumber(discount),
		dataset.FormatNumber(spend),
		returned,
	}
	if g.config.MissingRate > 0 {
		for j := 2; j <= 4; j++ {
			if g.rng.Float64() < g.config.MissingRate {
				row[j] = ""
			}
		}
	}
	return row
}

func (g *ShoppingDataGenerator) randomTimeInRange(start, end time.Time) time.Time {
	span := end.Sub(start)
	return start.Add(time.Duration(g.rng.Int63n(int64(span)))).Truncate(time.Second)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
