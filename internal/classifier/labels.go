package classifier

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
)

// LabelEncoder maps crop names to class indices. Classes are kept sorted,
// so index i is the i-th name in lexical order.
type LabelEncoder struct {
	Classes []string
}

// FitLabelEncoder collects the distinct labels in sorted order
func FitLabelEncoder(labels []string) *LabelEncoder {
	seen := make(map[string]bool, len(labels))
	var classes []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Encode returns the index of a label
func (e *LabelEncoder) Encode(label string) (int, error) {
	i := sort.SearchStrings(e.Classes, label)
	if i == len(e.Classes) || e.Classes[i] != label {
		return 0, fmt.Errorf("unknown label %q", label)
	}
	return i, nil
}

// Transform encodes every label
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// Decode returns the label for an index
func (e *LabelEncoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(e.Classes) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(e.Classes))
	}
	return e.Classes[index], nil
}

// Save writes the encoder to disk
func (e *LabelEncoder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(e); err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}
	return f.Close()
}

// LoadLabelEncoder reads an encoder written by Save
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var e LabelEncoder
	if err := gob.NewDecoder(f).Decode(&e); err != nil {
		return nil, fmt.Errorf("failed to decode labels %s: %w", path, err)
	}
	if len(e.Classes) == 0 {
		return nil, fmt.Errorf("label encoder %s has no classes", path)
	}
	if !sort.StringsAreSorted(e.Classes) {
		return nil, fmt.Errorf("label encoder %s classes are not sorted", path)
	}
	return &e, nil
}
