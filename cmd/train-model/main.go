// Command train-model fits the crop classifier on a synthetic dataset and
// writes model.gob and label_encoder.gob for the server to load.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/kartoza/crop-recommender/internal/classifier"
	"github.com/kartoza/crop-recommender/internal/features"
)

func main() {
	outDir := flag.String("out-dir", "./data", "Directory to write the model artifacts to")
	seed := flag.Int64("seed", 42, "Random seed for data generation and the split")
	samples := flag.Int("samples", 500, "Number of synthetic rows")
	testFraction := flag.Float64("test-fraction", 0.2, "Fraction of rows held out for evaluation")
	estimators := flag.Int("estimators", 100, "Number of boosting stages")
	learningRate := flag.Float64("learning-rate", 0.1, "Shrinkage applied to each stage")
	maxDepth := flag.Int("max-depth", 3, "Maximum depth of each regression tree")
	logEvery := flag.Int("log-every", 10, "Log training loss every n stages (0 disables)")
	flag.Parse()

	x, labels := classifier.SyntheticDataset(*seed, *samples)
	encoder := classifier.FitLabelEncoder(labels)
	y, err := encoder.Transform(labels)
	if err != nil {
		log.Fatalf("Failed to encode labels: %v", err)
	}

	trainIdx, testIdx := classifier.TrainTestSplit(len(x), *testFraction, *seed)
	xTrain, yTrain := subset(x, y, trainIdx)
	xTest, yTest := subset(x, y, testIdx)
	log.Printf("Training on %d rows, evaluating on %d rows, %d classes", len(xTrain), len(xTest), len(encoder.Classes))

	cfg := classifier.DefaultTrainConfig()
	cfg.NumEstimators = *estimators
	cfg.LearningRate = *learningRate
	cfg.MaxDepth = *maxDepth
	cfg.LogEvery = *logEvery

	model, err := classifier.Train(xTrain, yTrain, len(encoder.Classes), features.Names[:], cfg)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	if len(xTest) > 0 {
		acc, err := classifier.Accuracy(model, xTest, yTest)
		if err != nil {
			log.Fatalf("Evaluation failed: %v", err)
		}
		// Labels are random, so accuracy near 1/classes is expected
		log.Printf("Held-out accuracy: %.3f", acc)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *outDir, err)
	}
	modelPath := filepath.Join(*outDir, "model.gob")
	labelsPath := filepath.Join(*outDir, "label_encoder.gob")
	if err := model.Save(modelPath); err != nil {
		log.Fatalf("Failed to save model: %v", err)
	}
	if err := encoder.Save(labelsPath); err != nil {
		log.Fatalf("Failed to save label encoder: %v", err)
	}
	log.Printf("Wrote %s and %s", modelPath, labelsPath)
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
