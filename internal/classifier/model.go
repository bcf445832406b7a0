package classifier

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"

	"github.com/kartoza/crop-recommender/internal/apperr"
)

const modelFormat = "gbm-multinomial/v1"

// GradientBoostedClassifier is a multi-class gradient boosting model with
// one regression tree per class per stage (multinomial deviance).
type GradientBoostedClassifier struct {
	FeatureNames []string
	NumClasses   int
	LearningRate float64
	InitScores   []float64
	// Stages[m][k] is the tree fitted for class k at boosting stage m
	Stages [][]Tree
}

// NumFeatures returns the expected input length
func (m *GradientBoostedClassifier) NumFeatures() int {
	return len(m.FeatureNames)
}

// checkInput verifies length and that every value is a finite number
func (m *GradientBoostedClassifier) checkInput(x []float64) error {
	if len(x) != m.NumFeatures() {
		return fmt.Errorf("expected %d features, got %d: %w", m.NumFeatures(), len(x), apperr.ErrInvalidFeatureShape)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %s is not a finite number: %w", m.FeatureNames[i], apperr.ErrInvalidFeatureShape)
		}
	}
	return nil
}

// DecisionFunction returns the raw per-class scores
func (m *GradientBoostedClassifier) DecisionFunction(x []float64) ([]float64, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	return m.rawScores(x), nil
}

func (m *GradientBoostedClassifier) rawScores(x []float64) []float64 {
	scores := make([]float64, m.NumClasses)
	copy(scores, m.InitScores)
	for _, stage := range m.Stages {
		for k := range stage {
			scores[k] += m.LearningRate * stage[k].predict(x)
		}
	}
	return scores
}

// PredictProba returns class probabilities (softmax of the raw scores)
func (m *GradientBoostedClassifier) PredictProba(x []float64) ([]float64, error) {
	scores, err := m.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	return softmax(scores), nil
}

// Predict returns the index of the most likely class. Ties resolve to the
// lowest index.
func (m *GradientBoostedClassifier) Predict(x []float64) (int, error) {
	scores, err := m.DecisionFunction(x)
	if err != nil {
		return 0, err
	}
	return argmax(scores), nil
}

// Info returns a summary of the model
func (m *GradientBoostedClassifier) Info() map[string]interface{} {
	return map[string]interface{}{
		"features":      m.FeatureNames,
		"num_classes":   m.NumClasses,
		"num_stages":    len(m.Stages),
		"learning_rate": m.LearningRate,
	}
}

// Save writes the model to disk
func (m *GradientBoostedClassifier) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := struct {
		Format string
		Model  *GradientBoostedClassifier
	}{
		Format: modelFormat,
		Model:  m,
	}

	if err := gob.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return f.Close()
}

// LoadModel reads a model written by Save
func LoadModel(path string) (*GradientBoostedClassifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var data struct {
		Format string
		Model  *GradientBoostedClassifier
	}
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if data.Format != modelFormat {
		return nil, fmt.Errorf("unsupported model format %q in %s", data.Format, path)
	}

	m := data.Model
	if m == nil || m.NumClasses < 2 || len(m.InitScores) != m.NumClasses || len(m.FeatureNames) == 0 {
		return nil, fmt.Errorf("model %s is incomplete", path)
	}
	for i, stage := range m.Stages {
		if len(stage) != m.NumClasses {
			return nil, fmt.Errorf("model %s: stage %d has %d trees, expected %d", path, i, len(stage), m.NumClasses)
		}
		for _, tree := range stage {
			if err := validateTree(tree, len(m.FeatureNames)); err != nil {
				return nil, fmt.Errorf("model %s: stage %d: %w", path, i, err)
			}
		}
	}
	return m, nil
}

// validateTree guards against corrupt artifacts that would panic or loop at inference
func validateTree(t Tree, numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, n.Feature)
		}
	}
	return nil
}

func softmax(scores []float64) []float64 {
	maxScore := scores[argmax(scores)]
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
