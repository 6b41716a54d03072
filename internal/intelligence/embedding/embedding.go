// Package embedding derives dense node vectors from snapshot topology via
// truncated random walks. Walk randomness is seeded from the snapshot's
// structural hash, so a given topology always produces the same vectors and
// downstream similarity blends stay reproducible across runs and hosts.
package embedding

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/corpgraph/CorpRisk-Insight/internal/domain/graph"
)

// Params controls walk generation and vector size.
type Params struct {
	Dim          int
	WalkLength   int
	WalksPerNode int
}

// Embedder computes and caches vectors for a single snapshot.
type Embedder struct {
	snap    *graph.Snapshot
	params  Params
	vectors map[string][]float64
}

// New builds an embedder over the given snapshot. Vectors are computed lazily
// per node and memoized; the embedder is not safe for concurrent use.
func New(snap *graph.Snapshot, params Params) *Embedder {
	if params.Dim <= 0 {
		params.Dim = 32
	}
	if params.WalkLength <= 0 {
		params.WalkLength = 10
	}
	if params.WalksPerNode <= 0 {
		params.WalksPerNode = 20
	}
	return &Embedder{
		snap:    snap,
		params:  params,
		vectors: make(map[string][]float64),
	}
}

// Vector returns the embedding for the given node id, or nil when the node is
// not in the snapshot.
func (e *Embedder) Vector(id string) []float64 {
	if v, ok := e.vectors[id]; ok {
		return v
	}
	if _, ok := e.snap.Node(id); !ok {
		return nil
	}
	v := e.computeVector(id)
	e.vectors[id] = v
	return v
}

// Similarity returns the cosine similarity of two node embeddings, mapped to
// [0, 1]. Unknown nodes and degenerate (zero) vectors yield 0.
func (e *Embedder) Similarity(a, b string) float64 {
	va, vb := e.Vector(a), e.Vector(b)
	if va == nil || vb == nil {
		return 0
	}
	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	cos := floats.Dot(va, vb) / (na * nb)
	// cosine lands in [-1, 1]; weight blending wants [0, 1]
	return (cos + 1) / 2
}

// computeVector runs WalksPerNode truncated walks from the node and folds the
// visited ids into Dim buckets by feature hashing, then L2-normalizes.
func (e *Embedder) computeVector(id string) []float64 {
	vec := make([]float64, e.params.Dim)
	rng := rand.New(rand.NewSource(e.walkSeed(id)))

	for w := 0; w < e.params.WalksPerNode; w++ {
		cur := id
		for step := 0; step < e.params.WalkLength; step++ {
			vec[bucket(cur, e.params.Dim)]++
			out := e.snap.OutEdges(cur)
			if len(out) == 0 {
				break
			}
			cur = out[rng.Intn(len(out))].TargetID
		}
	}

	if n := floats.Norm(vec, 2); n > 0 {
		floats.Scale(1/n, vec)
	}
	return vec
}

// walkSeed derives a per-node seed from the structural hash so that adding an
// unrelated node elsewhere in the graph does not perturb this node's walks.
func (e *Embedder) walkSeed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(e.snap.StructuralHash()))
	h.Write([]byte{0})
	h.Write([]byte(id))
	return int64(binary.BigEndian.Uint64(h.Sum(nil)))
}

func bucket(id string, dim int) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(dim))
}
