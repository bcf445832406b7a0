package classifier

import (
	"math"
	"math/rand"

	"github.com/kartoza/crop-recommender/internal/features"
)

// SyntheticCrops are the labels of the generated training set
var SyntheticCrops = []string{"Rice", "Wheat", "Maize", "Sugarcane", "Cotton", "Millet", "Barley"}

// featureRange is the uniform sampling range of one feature
type featureRange struct{ lo, hi float64 }

// Ranges in features.Names order
var syntheticRanges = [features.Count]featureRange{
	{8, 28},   // Latitude
	{72, 88},  // Longitude
	{20, 40},  // Avg_temp
	{30, 90},  // Avg_humidity
	{50, 150}, // N
	{20, 100}, // P
	{20, 120}, // K
}

// SyntheticDataset draws rows uniformly within agronomic ranges for India
// and assigns each a random crop.
func SyntheticDataset(seed int64, samples int) ([][]float64, []string) {
	rng := rand.New(rand.NewSource(seed))

	x := make([][]float64, samples)
	for i := range x {
		x[i] = make([]float64, features.Count)
	}
	// Column-wise sampling keeps each feature's stream independent of the others
	for f, r := range syntheticRanges {
		for i := 0; i < samples; i++ {
			x[i][f] = r.lo + rng.Float64()*(r.hi-r.lo)
		}
	}

	labels := make([]string, samples)
	for i := range labels {
		labels[i] = SyntheticCrops[rng.Intn(len(SyntheticCrops))]
	}
	return x, labels
}

// TrainTestSplit shuffles row indices and returns the train and test sets
func TrainTestSplit(n int, testFraction float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	testSize := int(math.Ceil(float64(n) * testFraction))
	if testSize > n {
		testSize = n
	}
	return perm[testSize:], perm[:testSize]
}
