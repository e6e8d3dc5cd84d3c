package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/crimson-sun/reviewclf/internal/model"
)

// ErrTooFewSamples is returned when a stratified split is impossible.
var ErrTooFewSamples = errors.New("dataset: too few samples to stratify")

// Split is a train/test partition of a dataset.
type Split struct {
	Train []model.Review
	Test  []model.Review
}

// StratifiedSplit holds out ceil(testFrac*n) records so that every rating
// keeps its share of the data in both partitions. Per-rating test counts
// use largest-remainder allocation. The same seed always yields the same
// partition.
func StratifiedSplit(records []model.Review, testFrac float64, seed int64) (Split, error) {
	if testFrac <= 0 || testFrac >= 1 {
		return Split{}, fmt.Errorf("dataset: test fraction %v must be in (0,1)", testFrac)
	}
	n := len(records)

	byClass := map[int][]int{}
	for i, r := range records {
		byClass[r.Rating] = append(byClass[r.Rating], i)
	}
	classes := make([]int, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return Split{}, fmt.Errorf("%w: rating %d has %d member", ErrTooFewSamples, c, len(idx))
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(testFrac * float64(n)))
	nTrain := n - nTest
	if nTest < len(classes) || nTrain < len(classes) {
		return Split{}, fmt.Errorf("%w: %d train / %d test for %d ratings", ErrTooFewSamples, nTrain, nTest, len(classes))
	}

	alloc := allocate(classes, byClass, nTest, n)

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	var split Split
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for k, i := range idx {
			if k < alloc[c] {
				split.Test = append(split.Test, records[i])
			} else {
				split.Train = append(split.Train, records[i])
			}
		}
	}
	rng.Shuffle(len(split.Train), func(i, j int) { split.Train[i], split.Train[j] = split.Train[j], split.Train[i] })
	rng.Shuffle(len(split.Test), func(i, j int) { split.Test[i], split.Test[j] = split.Test[j], split.Test[i] })
	return split, nil
}

// allocate distributes nTest across classes proportionally: floors first,
// then the leftover units go to the largest fractional parts, ties to the
// lower rating.
func allocate(classes []int, byClass map[int][]int, nTest, n int) map[int]int {
	type share struct {
		class int
		frac  float64
	}
	alloc := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	given := 0
	for _, c := range classes {
		exact := float64(len(byClass[c])) * float64(nTest) / float64(n)
		floor := math.Floor(exact)
		alloc[c] = int(floor)
		given += int(floor)
		shares = append(shares, share{class: c, frac: exact - floor})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; given < nTest; i++ {
		alloc[shares[i%len(shares)].class]++
		given++
	}
	return alloc
}

// ValidationTail holds out the last frac of records, in order, the way a
// Keras validation_split does.
func ValidationTail(records []model.Review, frac float64) (train, val []model.Review) {
	at := int(math.Floor(float64(len(records)) * (1 - frac)))
	at = max(0, min(at, len(records)))
	return records[:at], records[at:]
}
