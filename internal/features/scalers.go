// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package features turns customer profiles into the numeric matrices the
// segmentation and offer engines consume, with the scaling applied at
// training time reproducible at prediction time.
package features

import (
	"math"

	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
)

// StandardScaler centers each column to zero mean and unit variance.
// Fitted parameters are exported so they persist alongside the model and
// prediction uses the training-time distribution.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Fit computes per-column mean and standard deviation. A zero-variance
// column gets scale 1 so transformed values collapse to zero instead of NaN.
func (s *StandardScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return models.NewTransformationError("standard scaler: empty matrix")
	}
	cols := len(matrix[0])
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)

	n := float64(len(matrix))
	for _, row := range matrix {
		if len(row) != cols {
			return models.NewTransformationError("standard scaler: ragged matrix")
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range matrix {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return nil
}

// Transform applies the fitted scaling to a matrix.
func (s *StandardScaler) Transform(matrix [][]float64) ([][]float64, error) {
	if len(s.Mean) == 0 {
		return nil, models.NewTransformationError("standard scaler not fitted")
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.Mean) {
			return nil, models.NewTransformationError(
				"standard scaler: row has %d columns, fitted for %d", len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// InverseTransform maps scaled values back to the original units. Used to
// describe cluster centroids in interpretable terms.
func (s *StandardScaler) InverseTransform(matrix [][]float64) ([][]float64, error) {
	if len(s.Mean) == 0 {
		return nil, models.NewTransformationError("standard scaler not fitted")
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.Mean) {
			return nil, models.NewTransformationError(
				"standard scaler: row has %d columns, fitted for %d", len(row), len(s.Mean))
		}
		orig := make([]float64, len(row))
		for j, v := range row {
			orig[j] = v*s.Scale[j] + s.Mean[j]
		}
		out[i] = orig
	}
	return out, nil
}

// MinMaxScaler rescales each column into [0, 1].
type MinMaxScaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// Fit records per-column minima and maxima.
func (s *MinMaxScaler) Fit(matrix [][]float64) error {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return models.NewTransformationError("min-max scaler: empty matrix")
	}
	cols := len(matrix[0])
	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)
	copy(s.Min, matrix[0])
	copy(s.Max, matrix[0])
	for _, row := range matrix {
		if len(row) != cols {
			return models.NewTransformationError("min-max scaler: ragged matrix")
		}
		for j, v := range row {
			if v < s.Min[j] {
				s.Min[j] = v
			}
			if v > s.Max[j] {
				s.Max[j] = v
			}
		}
	}
	return nil
}

// Transform rescales a matrix into [0, 1]. A constant column maps to zero.
func (s *MinMaxScaler) Transform(matrix [][]float64) ([][]float64, error) {
	if len(s.Min) == 0 {
		return nil, models.NewTransformationError("min-max scaler not fitted")
	}
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(s.Min) {
			return nil, models.NewTransformationError(
				"min-max scaler: row has %d columns, fitted for %d", len(row), len(s.Min))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			span := s.Max[j] - s.Min[j]
			if span == 0 {
				scaled[j] = 0
				continue
			}
			scaled[j] = (v - s.Min[j]) / span
		}
		out[i] = scaled
	}
	return out, nil
}
