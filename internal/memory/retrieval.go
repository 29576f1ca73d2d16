package memory

import (
	"math"

	"github.com/rcliao/think/internal/model"
	"github.com/rcliao/think/internal/query"
)

type candidate struct {
	chunk *model.Chunk
	score float64
}

// scoreCandidates draws a transient activation for every candidate and
// applies the partial-match penalty using fns. Without a match scale only
// chunks satisfying q compete; with one, every chunk does. Callers hold m.mu.
func (m *Memory) scoreCandidates(q *query.Query, now float64, fns query.Distances) []candidate {
	var out []candidate
	for _, c := range m.chunks {
		if m.cfg.MatchScale == 0 && !q.Matches(&c.Item) {
			continue
		}
		act := m.computeTransient(c, now)
		score := act
		if m.cfg.MatchScale > 0 {
			sim := q.Distance(&c.Item, fns)
			score += m.cfg.MatchScale * math.Exp(act-m.cfg.RetrievalThreshold) * sim
		}
		out = append(out, candidate{chunk: c, score: score})
	}
	return out
}

// best returns the chunk with the highest score strictly above the
// threshold. Ties keep the earlier stored chunk.
func (m *Memory) best(cands []candidate) *model.Chunk {
	var (
		winner *model.Chunk
		top    float64
	)
	for _, cand := range cands {
		if cand.score <= m.cfg.RetrievalThreshold {
			continue
		}
		if winner == nil || cand.score > top {
			winner, top = cand.chunk, cand.score
		}
	}
	return winner
}

type weighted struct {
	value  model.Value
	weight float64
	count  int
}

type slotBlend struct {
	values     []weighted
	numeric    bool
	continuous bool
}

func (s *slotBlend) add(v model.Value, w float64) {
	if !model.IsNumeric(v) {
		s.numeric = false
	}
	if model.IsContinuous(v) {
		s.continuous = true
	}
	for i := range s.values {
		if model.ValuesEqual(s.values[i].value, v) {
			s.values[i].weight += w
			s.values[i].count++
			return
		}
	}
	s.values = append(s.values, weighted{value: v, weight: w, count: 1})
}

func (s *slotBlend) result() model.Value {
	total := 0.0
	for _, wv := range s.values {
		total += wv.weight
	}
	equal := total <= 0
	if s.numeric {
		num, den := 0.0, 0.0
		for _, wv := range s.values {
			f, _ := model.ToFloat(wv.value)
			w := wv.weight
			if equal {
				w = float64(wv.count)
			}
			num += w * f
			den += w
		}
		avg := num / den
		if s.continuous {
			return avg
		}
		return int(math.RoundToEven(avg))
	}
	var (
		pick model.Value
		top  = math.Inf(-1)
	)
	for _, wv := range s.values {
		w := wv.weight
		if equal {
			w = float64(wv.count)
		}
		if w > top {
			pick, top = wv.value, w
		}
	}
	return pick
}

// blend synthesizes one chunk from every candidate scoring at or above the
// threshold, weighting each contributor by its margin over the threshold.
func (m *Memory) blend(cands []candidate) *model.Chunk {
	var (
		bestC *model.Chunk
		top   float64
		order []string
		slots = map[string]*slotBlend{}
	)
	for _, cand := range cands {
		if cand.score < m.cfg.RetrievalThreshold {
			continue
		}
		if bestC == nil || cand.score > top {
			bestC, top = cand.chunk, cand.score
		}
		w := cand.score - m.cfg.RetrievalThreshold
		for _, slot := range cand.chunk.Slots() {
			sb, ok := slots[slot]
			if !ok {
				sb = &slotBlend{numeric: true}
				slots[slot] = sb
				order = append(order, slot)
			}
			sb.add(cand.chunk.Value(slot), w)
		}
	}
	if bestC == nil {
		return nil
	}

	item := model.NewItem()
	for _, slot := range order {
		item.Set(slot, slots[slot].result())
	}
	out := model.NewChunk(item)
	out.CreationTime = bestC.CreationTime
	out.Activation = bestC.Activation
	out.TransientActivation = bestC.TransientActivation
	out.UseCount = bestC.UseCount
	out.Uses = append([]float64(nil), bestC.Uses...)
	out.BlendedFrom = bestC
	return out
}

// retrieve runs the configured strategy against q at time now. Distance
// functions in extra override the registry for this attempt only.
func (m *Memory) retrieve(q *query.Query, now float64, extra query.Distances) *model.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	fns := m.distances
	if len(extra) > 0 {
		fns = m.distances.Clone()
		for slot, fn := range extra {
			fns[slot] = fn
		}
	}
	cands := m.scoreCandidates(q, now, fns)
	if m.cfg.UseBlending {
		return m.blend(cands)
	}
	return m.best(cands)
}
