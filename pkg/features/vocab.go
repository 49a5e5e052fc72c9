// Package features turns demand tables into the numeric feature matrix used
// by the trainer and all prediction paths.
package features

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

// Vocabulary is a fitted label encoder: a closed mapping from categorical
// values to integer indices. Built once from training data; unseen values at
// inference fail, never default.
type Vocabulary struct {
	column string
	values []string
	index  map[string]int
}

// FitVocabulary builds a vocabulary from the observed values of a column.
// Values are deduplicated and sorted so that indices are stable across runs.
func FitVocabulary(column string, observed []string) *Vocabulary {
	seen := make(map[string]struct{}, len(observed))
	for _, v := range observed {
		seen[v] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)

	index := make(map[string]int, len(values))
	for i, v := range values {
		index[v] = i
	}
	return &Vocabulary{column: column, values: values, index: index}
}

// Encode returns the index of a value, or an UnseenCategoryError if the value
// was not part of the fitted vocabulary.
func (v *Vocabulary) Encode(value string) (int, error) {
	i, ok := v.index[value]
	if !ok {
		return 0, &blood.UnseenCategoryError{Column: v.column, Value: value}
	}
	return i, nil
}

// Decode returns the value at an index.
func (v *Vocabulary) Decode(i int) (string, error) {
	if i < 0 || i >= len(v.values) {
		return "", fmt.Errorf("index %d out of range for %s vocabulary (%d values)", i, v.column, len(v.values))
	}
	return v.values[i], nil
}

// Len returns the number of fitted values.
func (v *Vocabulary) Len() int { return len(v.values) }

type vocabJSON struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	return json.Marshal(vocabJSON{Column: v.column, Values: v.values})
}

func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var raw vocabJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.column = raw.Column
	v.values = raw.Values
	v.index = make(map[string]int, len(raw.Values))
	for i, val := range raw.Values {
		v.index[val] = i
	}
	return nil
}

// Vocabularies bundles the three categorical encoders fitted at training
// time.
type Vocabularies struct {
	City      *Vocabulary `json:"city"`
	BloodType *Vocabulary `json:"blood_type"`
	Season    *Vocabulary `json:"season"`
}
