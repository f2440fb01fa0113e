// Package nutrition holds the reference data and meal plan types shared by
// the planning core.
package nutrition

import "math"

// Macros describes nutritional content. Calories are kcal, everything else grams.
type Macros struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
	Fiber    float64 `json:"fiber,omitempty" yaml:"fiber,omitempty"`
}

// Add returns the componentwise sum m + o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
	}
}

// Sub returns the componentwise difference m - o.
func (m Macros) Sub(o Macros) Macros {
	return Macros{
		Calories: m.Calories - o.Calories,
		Protein:  m.Protein - o.Protein,
		Carbs:    m.Carbs - o.Carbs,
		Fat:      m.Fat - o.Fat,
		Fiber:    m.Fiber - o.Fiber,
	}
}

// Scale multiplies every axis by f.
func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
		Fiber:    m.Fiber * f,
	}
}

// Round rounds every axis to the nearest integer. Only call this at a
// meal, day or week aggregation boundary.
func (m Macros) Round() Macros {
	return Macros{
		Calories: math.Round(m.Calories),
		Protein:  math.Round(m.Protein),
		Carbs:    math.Round(m.Carbs),
		Fat:      math.Round(m.Fat),
		Fiber:    math.Round(m.Fiber),
	}
}

// Sum adds up a list of macro vectors without rounding.
func Sum(ms ...Macros) Macros {
	var total Macros
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
