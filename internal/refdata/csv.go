package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names accepted by the loaders
const (
	EncodingLatin1 = "latin1"
	EncodingUTF8   = "utf-8"
)

// Column names of the pincode table
var locationColumns = []string{"Pincode", "Latitude", "Longitude", "Placename", "District", "StateName"}

// Column names of the crop yield table
var yieldColumns = []string{"Crop", "Average_Yield"}

// Load reads both reference tables from disk and builds a Store
func Load(locationsPath, yieldsPath, encoding string) (*Store, error) {
	locations, err := LoadLocations(locationsPath, encoding)
	if err != nil {
		return nil, err
	}
	yields, err := LoadYields(yieldsPath, encoding)
	if err != nil {
		return nil, err
	}

	store := NewStore(locations, yields)
	log.Printf("Loaded %d pincodes and %d crop yields", store.LocationCount(), len(store.yields))
	return store, nil
}

// LoadLocations parses the pincode table. Rows whose pincode or coordinates
// cannot be parsed are skipped; a missing file or column is an error.
func LoadLocations(path, encoding string) ([]LocationRecord, error) {
	rows, idx, err := readTable(path, encoding, locationColumns)
	if err != nil {
		return nil, err
	}

	var (
		records []LocationRecord
		skipped int
	)
	for _, row := range rows {
		pincode, err := strconv.Atoi(strings.TrimSpace(row[idx["Pincode"]]))
		if err != nil {
			skipped++
			continue
		}
		lat, errLat := parseFloat(row[idx["Latitude"]])
		lon, errLon := parseFloat(row[idx["Longitude"]])
		if errLat != nil || errLon != nil {
			skipped++
			continue
		}
		records = append(records, LocationRecord{
			Pincode:   pincode,
			Latitude:  lat,
			Longitude: lon,
			PlaceName: strings.TrimSpace(row[idx["Placename"]]),
			District:  strings.TrimSpace(row[idx["District"]]),
			StateName: strings.TrimSpace(row[idx["StateName"]]),
		})
	}

	if skipped > 0 {
		log.Printf("Warning: skipped %d unparsable rows in %s", skipped, path)
	}
	return records, nil
}

// LoadYields parses the crop yield table
func LoadYields(path, encoding string) ([]YieldRecord, error) {
	rows, idx, err := readTable(path, encoding, yieldColumns)
	if err != nil {
		return nil, err
	}

	var (
		records []YieldRecord
		skipped int
	)
	for _, row := range rows {
		crop := strings.TrimSpace(row[idx["Crop"]])
		y, err := parseFloat(row[idx["Average_Yield"]])
		if crop == "" || err != nil {
			skipped++
			continue
		}
		records = append(records, YieldRecord{Crop: crop, AverageYieldPerAcre: y})
	}

	if skipped > 0 {
		log.Printf("Warning: skipped %d unparsable rows in %s", skipped, path)
	}
	return records, nil
}

// readTable opens a CSV file, decodes it and returns its data rows along
// with the index of every required column.
func readTable(path, encoding string, required []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	r, err := decoder(f, encoding)
	if err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	idx := make(map[string]int, len(required))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for _, col := range required {
			if strings.EqualFold(name, col) {
				idx[col] = i
			}
		}
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rows = append(rows, row)
	}

	return rows, idx, nil
}

// decoder wraps r so that it yields UTF-8
func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8, "utf8":
		return r, nil
	case EncodingLatin1, "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported reference file encoding: %s", encoding)
	}
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
