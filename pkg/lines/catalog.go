package lines

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

var (
	ErrLineNotFound   = errors.New("line not found")
	ErrInvalidCatalog = errors.New("lines file is not a GeoJSON FeatureCollection")
)

type catalogLine struct {
	code    int64
	hasCode bool
	feature json.RawMessage
}

// Catalog is the set of line geometries loaded at startup. It is never modified
// after loading so it can be shared between requests without locking.
type Catalog struct {
	lines []catalogLine
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lines file %s: %w", path, err)
	}

	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing lines file %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("lines", catalog.Len()).Msg("Loaded lines catalog")

	return catalog, nil
}

// Parse keeps every feature exactly as written in the document, so lookups return
// all of its coordinates and members. Each feature is still checked to be valid GeoJSON.
func Parse(data []byte) (*Catalog, error) {
	var collection struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, err
	}
	if collection.Type != "FeatureCollection" {
		return nil, ErrInvalidCatalog
	}

	catalog := &Catalog{
		lines: make([]catalogLine, 0, len(collection.Features)),
	}
	for i, feature := range collection.Features {
		if _, err := geojson.UnmarshalFeature(feature); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		code, hasCode, err := featureCode(feature)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		catalog.lines = append(catalog.lines, catalogLine{
			code:    code,
			hasCode: hasCode,
			feature: feature,
		})
	}

	return catalog, nil
}

// FindByCode returns the first feature, in file order, whose integer code property matches.
// The returned feature is shared and must not be modified.
func (c *Catalog) FindByCode(code int64) (json.RawMessage, error) {
	for _, line := range c.lines {
		if line.hasCode && line.code == code {
			return line.feature, nil
		}
	}

	return nil, ErrLineNotFound
}

func (c *Catalog) Len() int {
	return len(c.lines)
}

// Codes lists the distinct integer codes present, sorted.
func (c *Catalog) Codes() []int64 {
	var codes []int64
	for _, line := range c.lines {
		if line.hasCode && !slices.Contains(codes, line.code) {
			codes = append(codes, line.code)
		}
	}
	slices.Sort(codes)

	return codes
}

// Uncoded counts features that cannot be looked up because they carry no integer code.
func (c *Catalog) Uncoded() int {
	count := 0
	for _, line := range c.lines {
		if !line.hasCode {
			count++
		}
	}

	return count
}

// featureCode reads properties.code without going through float64 so that every
// int64 compares exactly. Decimals, strings and out of range numbers are not codes.
func featureCode(feature json.RawMessage) (int64, bool, error) {
	var header struct {
		Properties struct {
			Code interface{} `json:"code"`
		} `json:"properties"`
	}

	decoder := json.NewDecoder(bytes.NewReader(feature))
	decoder.UseNumber()
	if err := decoder.Decode(&header); err != nil {
		return 0, false, err
	}

	number, ok := header.Properties.Code.(json.Number)
	if !ok {
		return 0, false, nil
	}

	code, err := number.Int64()
	if err != nil {
		return 0, false, nil
	}

	return code, true, nil
}
