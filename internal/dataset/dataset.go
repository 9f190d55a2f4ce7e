// Package dataset reads labeled vitals from CSV.
//
// The header must name the columns temperature, hydration_level,
// skin_condition, dizziness and urgency_level, in any order. Extra columns are
// ignored. Dizziness accepts 0/1 or true/false.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/training"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

const (
	colTemperature = "temperature"
	colHydration   = "hydration_level"
	colSkin        = "skin_condition"
	colDizziness   = "dizziness"
	colUrgency     = "urgency_level"
)

var requiredColumns = []string{colTemperature, colHydration, colSkin, colDizziness, colUrgency}

// ReadFile opens path and parses it with ReadCSV.
func ReadFile(path string) ([]training.Example, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	ex, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ex, nil
}

// ReadCSV parses labeled examples. Range validation is left to the feature
// builder; only syntax is checked here.
func ReadCSV(r io.Reader) ([]training.Example, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	var out []training.Example
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ex, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, ex)
	}
	return out, nil
}

func parseRow(row []string, idx map[string]int) (training.Example, error) {
	var ex training.Example
	get := func(col string) string { return strings.TrimSpace(row[idx[col]]) }

	temp, err := strconv.ParseFloat(get(colTemperature), 64)
	if err != nil {
		return ex, fmt.Errorf("%s: %w", colTemperature, err)
	}
	hyd, err := strconv.Atoi(get(colHydration))
	if err != nil {
		return ex, fmt.Errorf("%s: %w", colHydration, err)
	}
	skin, err := strconv.Atoi(get(colSkin))
	if err != nil {
		return ex, fmt.Errorf("%s: %w", colSkin, err)
	}
	dizzy, err := parseBool(get(colDizziness))
	if err != nil {
		return ex, fmt.Errorf("%s: %w", colDizziness, err)
	}
	u, err := label.Parse(strings.ToLower(get(colUrgency)))
	if err != nil {
		return ex, fmt.Errorf("%s: %w", colUrgency, err)
	}

	ex.Record = vitals.Record{
		Temperature:    temp,
		HydrationLevel: hyd,
		SkinCondition:  skin,
		Dizziness:      dizzy,
	}
	ex.Urgency = u
	return ex, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
