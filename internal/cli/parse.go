package cli

import (
	"fmt"
	"strconv"
	"strings"

	"iogtransforms/pkg/geometry"
)

// parseNumbers splits a comma-separated list of n numbers.
func parseNumbers(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// parsePoint parses "x,y" into an image-frame point.
func parsePoint(s string) (geometry.Point, error) {
	v, err := parseNumbers(s, 2)
	if err != nil {
		return geometry.Point{}, err
	}
	return geometry.ImagePoint(v[0], v[1]), nil
}

func parsePoints(values []string) ([]geometry.Point, error) {
	points := make([]geometry.Point, 0, len(values))
	for _, s := range values {
		p, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// parseROI parses "x,y,width,height" into a validated ROI.
func parseROI(s string) (geometry.ROI, error) {
	v, err := parseNumbers(s, 4)
	if err != nil {
		return geometry.ROI{}, err
	}
	r := geometry.ROI{X: int(v[0]), Y: int(v[1]), Width: int(v[2]), Height: int(v[3])}
	if err := r.Validate(); err != nil {
		return geometry.ROI{}, err
	}
	return r, nil
}
