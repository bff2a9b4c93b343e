package mdp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ErrInvalidRecord is wrapped by every decoding failure of a saved model.
var ErrInvalidRecord = errors.New("invalid model record")

// Metadata is caller supplied data stored next to the table. The agent does
// not interpret it.
type Metadata map[string]any

// record is the on-disk layout of a model.
type record struct {
	Alpha           float64              `json:"alpha"`
	Gamma           float64              `json:"gamma"`
	Epsilon         float64              `json:"epsilon"`
	MinEpsilon      float64              `json:"min_epsilon"`
	EpsilonDecay    float64              `json:"epsilon_decay"`
	NumActions      int                  `json:"num_actions"`
	LearningEnabled bool                 `json:"learning_enabled"`
	QTable          map[string][]float64 `json:"q_table"`
	Metadata        Metadata             `json:"metadata"`
}

// Encode serializes the parameters, the learning flag, the whole table and md
// as indented JSON. State keys are written in decimal.
func (a *Agent) Encode(md Metadata) ([]byte, error) {
	rec := record{
		Alpha:           a.alpha,
		Gamma:           a.gamma,
		Epsilon:         a.epsilon,
		MinEpsilon:      a.minEpsilon,
		EpsilonDecay:    a.epsilonDecay,
		NumActions:      a.numActions,
		LearningEnabled: a.learning,
		QTable:          make(map[string][]float64, len(a.q)),
		Metadata:        Metadata{},
	}
	for s, v := range a.q {
		rec.QTable[strconv.FormatUint(uint64(s), 10)] = v
	}
	for k, v := range md {
		rec.Metadata[k] = v
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return data, nil
}

// Decode replaces the agent's state with the record in data. Parameters
// missing from the record keep their current value; a missing
// learning_enabled means true. Nothing is changed unless the whole record is
// valid.
func (a *Agent) Decode(data []byte) (Metadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: record is not an object", ErrInvalidRecord)
	}

	next := *a
	floats := []struct {
		name string
		dst  *float64
	}{
		{"alpha", &next.alpha},
		{"gamma", &next.gamma},
		{"epsilon", &next.epsilon},
		{"min_epsilon", &next.minEpsilon},
		{"epsilon_decay", &next.epsilonDecay},
	}
	for _, f := range floats {
		if err := decodeField(fields, f.name, f.dst); err != nil {
			return nil, err
		}
	}
	if err := decodeField(fields, "num_actions", &next.numActions); err != nil {
		return nil, err
	}
	if next.numActions <= 0 {
		return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidRecord, "num_actions", ErrInvalidActions)
	}
	next.learning = true
	if err := decodeField(fields, "learning_enabled", &next.learning); err != nil {
		return nil, err
	}

	var rawTable map[string]json.RawMessage
	if err := decodeField(fields, "q_table", &rawTable); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rawTable))
	for k := range rawTable {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next.q = make(QTable, len(rawTable))
	for _, k := range keys {
		s, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: q_table key %q: %v", ErrInvalidRecord, k, err)
		}
		var values []float64
		if err := json.Unmarshal(rawTable[k], &values); err != nil {
			return nil, fmt.Errorf("%w: q_table[%q]: %v", ErrInvalidRecord, k, err)
		}
		if len(values) != next.numActions {
			return nil, fmt.Errorf("%w: q_table[%q]: want %d values, got %d",
				ErrInvalidRecord, k, next.numActions, len(values))
		}
		next.q[State(s)] = values
	}

	var md Metadata
	if err := decodeField(fields, "metadata", &md); err != nil {
		return nil, err
	}

	*a = next
	return md, nil
}

func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("%w: field %q: null value", ErrInvalidRecord, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrInvalidRecord, name, err)
	}
	return nil
}

// Save writes the model to path, creating parent directories. The file is
// written next to its final name and renamed into place.
func (a *Agent) Save(path string, md Metadata) error {
	data, err := a.Encode(md)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save model %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save model %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save model %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save model %s: %w", path, err)
	}
	return nil
}

// Load reads a model written by Save. On error the agent is unchanged.
func (a *Agent) Load(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	md, err := a.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return md, nil
}

// LoadOrInitialize loads path when it names an existing file. An empty path
// or a missing file leaves the agent as it is and returns nil metadata.
func (a *Agent) LoadOrInitialize(path string) (Metadata, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return a.Load(path)
}
