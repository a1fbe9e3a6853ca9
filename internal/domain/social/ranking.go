// Package social ranks peers and candidate movies over the User-[:LIKES]->Movie graph.
//
// Peers are ranked by Jaccard similarity of liked-movie sets; candidates are the movies liked by the
// top peers that the user has not liked, ranked by how many of those peers like them.
package social

import "sort"

// Set is a set of graph movie ids.
type Set map[string]struct{}

// NewSet builds a Set from ids, ignoring duplicates.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b Set) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for id := range small {
		if large.Has(id) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Peer is another user with the Jaccard similarity of their likes to the target user's.
type Peer struct {
	Username   string
	Similarity float64
}

// RankPeers scores every user in others against mine and returns the top limit by similarity.
// Users with zero similarity are not peers. Ties break by username for a deterministic order.
func RankPeers(mine Set, others map[string]Set, limit int) []Peer {
	if len(mine) == 0 || limit <= 0 {
		return nil
	}
	peers := make([]Peer, 0, len(others))
	for name, liked := range others {
		sim := Jaccard(mine, liked)
		if sim <= 0 {
			continue
		}
		peers = append(peers, Peer{Username: name, Similarity: sim})
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Similarity != peers[j].Similarity {
			return peers[i].Similarity > peers[j].Similarity
		}
		return peers[i].Username < peers[j].Username
	})
	if len(peers) > limit {
		peers = peers[:limit]
	}
	return peers
}

// Candidate is a movie liked by peers, with the number of distinct peers liking it.
type Candidate struct {
	MovieID       string
	NeighborLikes int
}

// AggregateCandidates counts, for each movie liked by a peer and not in mine, the distinct peers
// liking it. The top limit by count are returned; ties break by movie id.
func AggregateCandidates(mine Set, peers []Peer, likes map[string]Set, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, p := range peers {
		for id := range likes[p.Username] {
			if mine.Has(id) {
				continue
			}
			counts[id]++
		}
	}
	out := make([]Candidate, 0, len(counts))
	for id, n := range counts {
		out = append(out, Candidate{MovieID: id, NeighborLikes: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NeighborLikes != out[j].NeighborLikes {
			return out[i].NeighborLikes > out[j].NeighborLikes
		}
		return out[i].MovieID < out[j].MovieID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
