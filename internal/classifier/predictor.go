package classifier

import (
	"fmt"
	"log"

	"github.com/kartoza/crop-recommender/internal/apperr"
	"github.com/kartoza/crop-recommender/internal/features"
)

// Predictor pairs a trained model with its label encoder. It is immutable
// after construction and safe for concurrent use.
type Predictor struct {
	model  *GradientBoostedClassifier
	labels *LabelEncoder
}

// NewPredictor checks that the model and encoder agree with each other and
// with the feature vector layout.
func NewPredictor(model *GradientBoostedClassifier, labels *LabelEncoder) (*Predictor, error) {
	if model == nil || labels == nil {
		return nil, apperr.ErrModelNotLoaded
	}
	if model.NumClasses != len(labels.Classes) {
		return nil, fmt.Errorf("model has %d classes but label encoder has %d", model.NumClasses, len(labels.Classes))
	}
	if len(model.FeatureNames) != features.Count {
		return nil, fmt.Errorf("model expects %d features, vector has %d: %w", len(model.FeatureNames), features.Count, apperr.ErrInvalidFeatureShape)
	}
	for i, name := range model.FeatureNames {
		if name != features.Names[i] {
			return nil, fmt.Errorf("model feature %d is %q, expected %q: %w", i, name, features.Names[i], apperr.ErrInvalidFeatureShape)
		}
	}
	return &Predictor{model: model, labels: labels}, nil
}

// LoadPredictor reads both artifacts from disk
func LoadPredictor(modelPath, labelsPath string) (*Predictor, error) {
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	labels, err := LoadLabelEncoder(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load label encoder: %w", err)
	}

	p, err := NewPredictor(model, labels)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded crop model: %d classes, %d stages", model.NumClasses, len(model.Stages))
	return p, nil
}

// Predict returns the most likely class index and its crop name
func (p *Predictor) Predict(v features.Vector) (int, string, error) {
	if p == nil || p.model == nil || p.labels == nil {
		return 0, "", apperr.ErrModelNotLoaded
	}
	return p.predict(v.Slice())
}

// PredictRaw is Predict for an unchecked slice
func (p *Predictor) PredictRaw(x []float64) (int, string, error) {
	if p == nil || p.model == nil || p.labels == nil {
		return 0, "", apperr.ErrModelNotLoaded
	}
	return p.predict(x)
}

func (p *Predictor) predict(x []float64) (int, string, error) {
	idx, err := p.model.Predict(x)
	if err != nil {
		return 0, "", err
	}
	crop, err := p.labels.Decode(idx)
	if err != nil {
		return 0, "", fmt.Errorf("%v: %w", err, apperr.ErrInvalidFeatureShape)
	}
	return idx, crop, nil
}

// Classes returns the crop names the model can predict
func (p *Predictor) Classes() []string {
	if p == nil || p.labels == nil {
		return nil
	}
	return append([]string(nil), p.labels.Classes...)
}

// IsLoaded reports whether a model is available
func (p *Predictor) IsLoaded() bool {
	return p != nil && p.model != nil
}

// Info returns a summary of the loaded model
func (p *Predictor) Info() map[string]interface{} {
	if !p.IsLoaded() {
		return map[string]interface{}{"loaded": false}
	}
	info := p.model.Info()
	info["loaded"] = true
	info["classes"] = p.Classes()
	return info
}
