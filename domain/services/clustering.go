package services

import (
	"fmt"
	"math"
	"strings"

	"nodal/domain/config"
	"nodal/domain/core/entities"
	"nodal/domain/core/valueobjects"
	pkgerrors "nodal/pkg/errors"
)

// EmptyNoteText is embedded for notes without any text
const EmptyNoteText = "Empty Note"

// VirtualZone is a cluster laid out by Smart View. It is never stored in
// the canvas document.
type VirtualZone struct {
	ID      string                `json:"id"`
	Title   string                `json:"title"`
	Bounds  valueobjects.Rect     `json:"bounds"`
	NoteIDs []valueobjects.NoteID `json:"noteIds"`
}

// ClusterResult is the read-only projection produced by Smart View
type ClusterResult struct {
	Zones  []VirtualZone                            `json:"zones"`
	Layout map[valueobjects.NoteID]valueobjects.Rect `json:"layout"`
}

// Clusterer groups notes by hard links (shared zone, connections) and then
// attaches lone notes to semantically similar groups.
type Clusterer struct {
	threshold float64
	layout    config.SmartViewLayout
}

// NewClusterer creates a clusterer for the given configuration
func NewClusterer(cfg *config.DomainConfig) *Clusterer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Clusterer{threshold: cfg.SimilarityThreshold, layout: cfg.SmartViewLayout}
}

type cluster struct {
	noteIDs  []valueobjects.NoteID
	title    string
	centroid []float64
}

func (c *cluster) isOrphan() bool {
	return len(c.noteIDs) == 1 && c.title == ""
}

// Cluster partitions notes and lays the groups out on a grid. embeddings maps
// note ids to vectors; notes without a vector take part in hard-link groups
// only. Fewer than two notes is reported as ErrNotEnoughNotes.
func (c *Clusterer) Cluster(
	notes []*entities.Note,
	zones []*entities.Zone,
	connections []*entities.Connection,
	embeddings map[valueobjects.NoteID][]float64,
) (*ClusterResult, error) {
	if len(notes) < 2 {
		return nil, pkgerrors.ErrNotEnoughNotes
	}

	clusters := c.hardLinkClusters(notes, zones, connections)
	for _, cl := range clusters {
		cl.centroid = centroid(cl.noteIDs, embeddings)
	}
	merged := c.softMerge(clusters)
	return c.layoutClusters(merged), nil
}

// hardLinkClusters unions notes sharing a zone and notes joined by a
// connection, returning groups in order of first appearance.
func (c *Clusterer) hardLinkClusters(
	notes []*entities.Note,
	zones []*entities.Zone,
	connections []*entities.Connection,
) []*cluster {
	ids := make([]valueobjects.NoteID, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	uf := NewUnionFind(ids)

	zoneTitles := make(map[valueobjects.ZoneID]string, len(zones))
	zoneExists := make(map[valueobjects.ZoneID]bool, len(zones))
	for _, z := range zones {
		zoneTitles[z.ID] = z.Title
		zoneExists[z.ID] = true
	}

	firstInZone := make(map[valueobjects.ZoneID]valueobjects.NoteID)
	for _, n := range notes {
		if n.ZoneID.IsZero() || !zoneExists[n.ZoneID] {
			continue
		}
		if first, ok := firstInZone[n.ZoneID]; ok {
			uf.Union(n.ID, first)
		} else {
			firstInZone[n.ZoneID] = n.ID
		}
	}

	for _, conn := range connections {
		if uf.Has(conn.FromID) && uf.Has(conn.ToID) {
			uf.Union(conn.FromID, conn.ToID)
		}
	}

	byLeader := make(map[valueobjects.NoteID]*cluster)
	var ordered []*cluster
	for _, n := range notes {
		leader := uf.Find(n.ID)
		cl, ok := byLeader[leader]
		if !ok {
			cl = &cluster{}
			byLeader[leader] = cl
			ordered = append(ordered, cl)
		}
		cl.noteIDs = append(cl.noteIDs, n.ID)
		if cl.title == "" && zoneExists[n.ZoneID] {
			cl.title = zoneTitles[n.ZoneID]
		}
	}
	return ordered
}

// softMerge attaches every orphan whose best match reaches the threshold.
// Each orphan is scored against the unmerged snapshot and moves into its own
// best match only. An orphan that another orphan picked as its best match
// stays where it is and hosts that merge, so merges never chain. Two orphans
// that pick each other pair up in the earlier one's slot.
func (c *Clusterer) softMerge(clusters []*cluster) []*cluster {
	n := len(clusters)
	best := make([]int, n)
	for i, a := range clusters {
		best[i] = -1
		if !a.isOrphan() || a.centroid == nil {
			continue
		}
		bestSim := -1.0
		for j, b := range clusters {
			if i == j || b.centroid == nil {
				continue
			}
			if sim := CosineSimilarity(a.centroid, b.centroid); sim > bestSim {
				best[i], bestSim = j, sim
			}
		}
		if bestSim < c.threshold {
			best[i] = -1
		}
	}

	// anchored clusters receive a merge from an orphan other than their own
	// partner and therefore never move
	anchored := make([]bool, n)
	for i, a := range clusters {
		if !a.isOrphan() {
			anchored[i] = true
		}
	}
	for k, j := range best {
		if j >= 0 && best[j] != k {
			anchored[j] = true
		}
	}

	into := make([]int, n)
	for i := range into {
		into[i] = -1
	}
	for i, j := range best {
		if j < 0 || anchored[i] {
			continue
		}
		if best[j] == i && !anchored[j] && j > i {
			continue
		}
		into[i] = j
	}

	var result []*cluster
	for i, cl := range clusters {
		if into[i] >= 0 {
			continue
		}
		merged := &cluster{
			noteIDs:  append([]valueobjects.NoteID(nil), cl.noteIDs...),
			title:    cl.title,
			centroid: cl.centroid,
		}
		for m, host := range into {
			if host == i {
				merged.noteIDs = append(merged.noteIDs, clusters[m].noteIDs...)
			}
		}
		result = append(result, merged)
	}
	return result
}

func (c *Clusterer) layoutClusters(clusters []*cluster) *ClusterResult {
	l := c.layout
	result := &ClusterResult{
		Zones:  make([]VirtualZone, 0, len(clusters)),
		Layout: make(map[valueobjects.NoteID]valueobjects.Rect),
	}

	pitch := l.CardHeight + l.CardGap
	for i, cl := range clusters {
		col := i % l.Columns
		row := i / l.Columns
		x := float64(col)*(l.ZoneWidth+l.ZoneGap) + l.OriginX
		y := float64(row)*l.RowHeight + l.OriginY

		title := cl.title
		if title == "" {
			title = fmt.Sprintf("Group %d", i+1)
		}

		result.Zones = append(result.Zones, VirtualZone{
			ID:    fmt.Sprintf("virtual-zone-%d", i),
			Title: title,
			Bounds: valueobjects.Rect{
				X:      x,
				Y:      y,
				Width:  l.ZoneWidth,
				Height: l.HeaderHeight + float64(len(cl.noteIDs))*pitch + l.ZonePadding,
			},
			NoteIDs: cl.noteIDs,
		})

		for j, id := range cl.noteIDs {
			result.Layout[id] = valueobjects.Rect{
				X:      x + l.ZonePadding,
				Y:      y + l.HeaderHeight + float64(j)*pitch,
				Width:  l.CardWidth,
				Height: l.CardHeight,
			}
		}
	}
	return result
}

// centroid is the element-wise mean of the members' vectors. Vectors whose
// length differs from the first one found are ignored. Returns nil when no
// member has a vector.
func centroid(ids []valueobjects.NoteID, embeddings map[valueobjects.NoteID][]float64) []float64 {
	var sum []float64
	count := 0
	for _, id := range ids {
		vec := embeddings[id]
		if len(vec) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		for i, v := range vec {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}

// CosineSimilarity returns dot(a,b)/(|a||b|). Mismatched lengths and zero
// vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EmbeddingText picks the text representing a note for embedding: title,
// then summary, then the first message, truncated to limit runes.
func EmbeddingText(n *entities.Note, limit int) string {
	text := strings.TrimSpace(n.Title)
	if text == "" {
		text = strings.TrimSpace(n.Summary)
	}
	if text == "" && len(n.Messages) > 0 {
		text = strings.TrimSpace(n.Messages[0].Content)
	}
	if text == "" {
		text = EmptyNoteText
	}
	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit])
		}
	}
	return text
}

// UnionFind is a disjoint set over note ids with path compression
type UnionFind struct {
	parent map[valueobjects.NoteID]valueobjects.NoteID
}

// NewUnionFind creates singleton sets for ids
func NewUnionFind(ids []valueobjects.NoteID) *UnionFind {
	parent := make(map[valueobjects.NoteID]valueobjects.NoteID, len(ids))
	for _, id := range ids {
		parent[id] = id
	}
	return &UnionFind{parent: parent}
}

// Has reports whether id is tracked
func (u *UnionFind) Has(id valueobjects.NoteID) bool {
	_, ok := u.parent[id]
	return ok
}

// Find returns the representative of id's set
func (u *UnionFind) Find(id valueobjects.NoteID) valueobjects.NoteID {
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[id] != root {
		next := u.parent[id]
		u.parent[id] = root
		id = next
	}
	return root
}

// Union merges the sets containing a and b
func (u *UnionFind) Union(a, b valueobjects.NoteID) {
	ra, rb := u.Find(a), u.Find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}
