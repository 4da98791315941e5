// Package importer loads customer portfolios from files into the
// store. An import is atomic: one bad row rejects the whole file so the
// store never holds a half-applied portfolio.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CustomerImport is one portfolio row as it appears on disk. Optional
// fields are pointers; validation decides what absence means.
type CustomerImport struct {
	Code             string   `json:"code"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Area             string   `json:"area"`
	Lat              *float64 `json:"lat,omitempty"`
	Lon              *float64 `json:"lon,omitempty"`
	Tier             int      `json:"tier"`
	LastVisitAt      *string  `json:"last_visit_at,omitempty"`
	OrdersCount      int      `json:"orders_count"`
	SalesAmount      float64  `json:"sales_amount"`
	ConversionRate   float64  `json:"conversion_rate"`
	VisitFrequency   int      `json:"visit_frequency"`
	VisitDurationMin int      `json:"visit_duration_min"`
}

// PortfolioFile is the parsed content of one import file.
type PortfolioFile struct {
	AgentID   string           `json:"agent_id"`
	Customers []CustomerImport `json:"customers"`
}

// Load parses a portfolio file by extension: .json or .csv.
func Load(path string) (*PortfolioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(f)
	case ".csv":
		return loadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported import format %q", filepath.Ext(path))
	}
}

func loadJSON(r io.Reader) (*PortfolioFile, error) {
	var pf PortfolioFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("parsing JSON import: %w", err)
	}
	return &pf, nil
}

// csvColumns is the required header, in order. agent_id rides in every
// row since CSV has no document-level envelope.
var csvColumns = []string{
	"agent_id", "code", "name", "type", "area", "lat", "lon", "tier",
	"last_visit_at", "orders_count", "sales_amount", "conversion_rate",
	"visit_frequency", "visit_duration_min",
}

func loadCSV(r io.Reader) (*PortfolioFile, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	pf := &PortfolioFile{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line+1, err)
		}
		line++

		ci, agentID, err := parseCSVRow(record)
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		if pf.AgentID == "" {
			pf.AgentID = agentID
		} else if pf.AgentID != agentID {
			return nil, fmt.Errorf("CSV line %d: mixed agent ids %q and %q in one file", line, pf.AgentID, agentID)
		}
		pf.Customers = append(pf.Customers, *ci)
	}
	return pf, nil
}

func checkHeader(header []string) error {
	if len(header) != len(csvColumns) {
		return fmt.Errorf("CSV header has %d columns, want %d", len(header), len(csvColumns))
	}
	for i, want := range csvColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("CSV column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseCSVRow(record []string) (*CustomerImport, string, error) {
	if len(record) != len(csvColumns) {
		return nil, "", fmt.Errorf("row has %d fields, want %d", len(record), len(csvColumns))
	}

	ci := &CustomerImport{
		Code: record[1],
		Name: record[2],
		Type: record[3],
		Area: record[4],
	}

	var err error
	if ci.Lat, err = optFloat(record[5]); err != nil {
		return nil, "", fmt.Errorf("lat: %w", err)
	}
	if ci.Lon, err = optFloat(record[6]); err != nil {
		return nil, "", fmt.Errorf("lon: %w", err)
	}
	if ci.Tier, err = strconv.Atoi(record[7]); err != nil {
		return nil, "", fmt.Errorf("tier: %w", err)
	}
	if v := strings.TrimSpace(record[8]); v != "" {
		ci.LastVisitAt = &v
	}
	if ci.OrdersCount, err = strconv.Atoi(record[9]); err != nil {
		return nil, "", fmt.Errorf("orders_count: %w", err)
	}
	if ci.SalesAmount, err = strconv.ParseFloat(record[10], 64); err != nil {
		return nil, "", fmt.Errorf("sales_amount: %w", err)
	}
	if ci.ConversionRate, err = strconv.ParseFloat(record[11], 64); err != nil {
		return nil, "", fmt.Errorf("conversion_rate: %w", err)
	}
	if ci.VisitFrequency, err = strconv.Atoi(record[12]); err != nil {
		return nil, "", fmt.Errorf("visit_frequency: %w", err)
	}
	if ci.VisitDurationMin, err = strconv.Atoi(record[13]); err != nil {
		return nil, "", fmt.Errorf("visit_duration_min: %w", err)
	}
	return ci, record[0], nil
}

func optFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
