package classifier

import (
	"fmt"
	"log"
	"math"
)

// TrainConfig holds the boosting hyperparameters
type TrainConfig struct {
	NumEstimators   int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// LogEvery prints the training loss every n stages; 0 disables it
	LogEvery int
}

// DefaultTrainConfig returns the settings the shipped model is trained with
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		NumEstimators:   100,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// Train fits a classifier on rows x with class indices y in [0, numClasses).
// Training uses every row at every stage, so the result is deterministic.
func Train(x [][]float64, y []int, numClasses int, featureNames []string, cfg TrainConfig) (*GradientBoostedClassifier, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("got %d rows but %d labels", len(x), len(y))
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", numClasses)
	}
	if cfg.NumEstimators < 1 || cfg.LearningRate <= 0 || cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("invalid training config: %+v", cfg)
	}
	for i, row := range x {
		if len(row) != len(featureNames) {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), len(featureNames))
		}
		if y[i] < 0 || y[i] >= numClasses {
			return nil, fmt.Errorf("row %d has label %d outside [0,%d)", i, y[i], numClasses)
		}
	}

	n := len(x)
	K := numClasses

	m := &GradientBoostedClassifier{
		FeatureNames: append([]string(nil), featureNames...),
		NumClasses:   K,
		LearningRate: cfg.LearningRate,
		InitScores:   priorScores(y, K),
		Stages:       make([][]Tree, 0, cfg.NumEstimators),
	}

	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = append([]float64(nil), m.InitScores...)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	residual := make([]float64, n)
	prob := make([][]float64, n)
	kFactor := float64(K-1) / float64(K)

	for stage := 0; stage < cfg.NumEstimators; stage++ {
		for i := range raw {
			prob[i] = softmax(raw[i])
		}

		trees := make([]Tree, K)
		for k := 0; k < K; k++ {
			for i := 0; i < n; i++ {
				target := 0.0
				if y[i] == k {
					target = 1
				}
				residual[i] = target - prob[i][k]
			}

			class := k
			b := &treeBuilder{
				x:        x,
				residual: residual,
				maxDepth: cfg.MaxDepth,
				minSplit: max(cfg.MinSamplesSplit, 2),
				minLeaf:  max(cfg.MinSamplesLeaf, 1),
				// One Newton-Raphson step for the multinomial deviance
				leafValue: func(leaf []int) float64 {
					var num, den float64
					for _, i := range leaf {
						num += residual[i]
						p := prob[i][class]
						den += p * (1 - p)
					}
					if math.Abs(den) < 1e-150 {
						return 0
					}
					return kFactor * num / den
				},
			}
			trees[k] = b.fit(idx)
		}

		for i := 0; i < n; i++ {
			for k := 0; k < K; k++ {
				raw[i][k] += cfg.LearningRate * trees[k].predict(x[i])
			}
		}
		m.Stages = append(m.Stages, trees)

		if cfg.LogEvery > 0 && (stage+1)%cfg.LogEvery == 0 {
			log.Printf("Stage %d, loss: %.6f", stage+1, deviance(raw, y))
		}
	}

	return m, nil
}

// priorScores returns log class priors, clipped away from zero
func priorScores(y []int, numClasses int) []float64 {
	counts := make([]float64, numClasses)
	for _, label := range y {
		counts[label]++
	}
	scores := make([]float64, numClasses)
	for k, c := range counts {
		scores[k] = math.Log(math.Max(c/float64(len(y)), 1e-15))
	}
	return scores
}

// deviance is the mean multinomial negative log-likelihood
func deviance(raw [][]float64, y []int) float64 {
	var total float64
	for i, scores := range raw {
		p := softmax(scores)
		total -= math.Log(math.Max(p[y[i]], 1e-15))
	}
	return total / float64(len(raw))
}

// Accuracy returns the fraction of rows predicted correctly
func Accuracy(m *GradientBoostedClassifier, x [][]float64, y []int) (float64, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("no rows")
	}
	correct := 0
	for i, row := range x {
		pred, err := m.Predict(row)
		if err != nil {
			return 0, err
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}
