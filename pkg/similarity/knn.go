package similarity

import (
	"sort"

	"github.com/agentci/agentci/pkg/signature"
)

const defaultK = 5

// DefaultAnomalyThreshold is the default anomaly score threshold, per
// spec.md §4.11.
const DefaultAnomalyThreshold = 0.7

// Neighbor is one result of a nearest-neighbor search.
type Neighbor struct {
	RunID      string  `json:"run_id"`
	Similarity float64 `json:"similarity"`
}

// Corpus is a named collection of signatures to search against, e.g. the
// contents of a runs directory.
type Corpus struct {
	vocab   *Vocabulary
	entries []corpusEntry
}

type corpusEntry struct {
	runID  string
	vector *Vector
}

// BuildCorpus constructs a searchable corpus from run-id-to-signature pairs.
// The vocabulary is built once over the full collection so all vectors share
// the same index space.
func BuildCorpus(sigs map[string]*signature.Signature) *Corpus {
	all := make([]*signature.Signature, 0, len(sigs))
	ids := make([]string, 0, len(sigs))
	for id, sig := range sigs {
		ids = append(ids, id)
		all = append(all, sig)
	}
	sort.Strings(ids) // deterministic entry order for stable tie-breaking

	vocab := BuildVocabulary(all)
	entries := make([]corpusEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, corpusEntry{runID: id, vector: Vectorize(sigs[id], vocab)})
	}
	return &Corpus{vocab: vocab, entries: entries}
}

// Len reports the corpus size.
func (c *Corpus) Len() int { return len(c.entries) }

// NearestNeighbors returns the top-K most similar corpus entries to query,
// via brute-force scan, per spec.md §4.11. query is vectorized against the
// corpus's own vocabulary so indices line up.
func (c *Corpus) NearestNeighbors(query *signature.Signature, k int) []Neighbor {
	if k <= 0 {
		k = defaultK
	}
	qv := Vectorize(query, c.vocab)

	neighbors := make([]Neighbor, 0, len(c.entries))
	for _, e := range c.entries {
		neighbors = append(neighbors, Neighbor{RunID: e.runID, Similarity: CosineSimilarity(qv, e.vector)})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k]
}

// AnomalyResult is the outcome of an anomaly check, per spec.md §4.11.
type AnomalyResult struct {
	Score     float64    `json:"score"`
	Anomalous bool       `json:"anomalous"`
	Neighbors []Neighbor `json:"neighbors"`
}

// Anomaly computes the mean similarity of query to its K nearest corpus
// neighbors (K default 5) and flags it anomalous iff that score is below
// threshold (default 0.7). An empty corpus is never anomalous and scores
// 1.0, per spec.md §4.11.
func Anomaly(c *Corpus, query *signature.Signature, k int, threshold float64) AnomalyResult {
	if c.Len() == 0 {
		return AnomalyResult{Score: 1.0, Anomalous: false}
	}
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}

	neighbors := c.NearestNeighbors(query, k)
	var sum float64
	for _, n := range neighbors {
		sum += n.Similarity
	}
	score := sum / float64(len(neighbors))

	return AnomalyResult{
		Score:     score,
		Anomalous: score < threshold,
		Neighbors: neighbors,
	}
}
