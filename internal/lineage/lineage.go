// Package lineage provides traversals over the batch derivation graph.
// Edges always point parent = derived batch, child = source batch.
package lineage

import (
	"fmt"

	"github.com/ayusetu/setu/internal/models"
	"gorm.io/gorm"
)

// Neighbors returns every link touching the batch row, either direction.
func Neighbors(db *gorm.DB, internalID string) ([]models.BatchLink, error) {
	var links []models.BatchLink
	err := db.Where("parent_id = ? OR child_id = ?", internalID, internalID).Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("lineage: neighbors of %s: %w", internalID, err)
	}
	return links, nil
}

// Component returns the internal IDs of every batch in the connected
// lineage component of the given batch, including the batch itself.
// Traversal is breadth-first over the undirected view of the link graph;
// the visited set guards against malformed cyclic data.
func Component(db *gorm.DB, internalID string) ([]string, error) {
	visited := map[string]bool{internalID: true}
	order := []string{internalID}
	queue := []string{internalID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		links, err := Neighbors(db, current)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			for _, next := range []string{l.ParentID, l.ChildID} {
				if !visited[next] {
					visited[next] = true
					order = append(order, next)
					queue = append(queue, next)
				}
			}
		}
	}
	return order, nil
}

// Upstream returns the source batches the given batch derives from,
// transitively, nearest first.
func Upstream(db *gorm.DB, internalID string) ([]models.Batch, error) {
	return walk(db, internalID, "parent_id", "child_id")
}

// Downstream returns the batches derived from the given batch,
// transitively, nearest first.
func Downstream(db *gorm.DB, internalID string) ([]models.Batch, error) {
	return walk(db, internalID, "child_id", "parent_id")
}

// walk performs a BFS following links from fromCol to toCol and loads
// the batches encountered, excluding the starting batch.
func walk(db *gorm.DB, internalID, fromCol, toCol string) ([]models.Batch, error) {
	visited := map[string]bool{internalID: true}
	var found []string
	queue := []string{internalID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var links []models.BatchLink
		if err := db.Where(fromCol+" = ?", current).Find(&links).Error; err != nil {
			return nil, fmt.Errorf("lineage: walk from %s: %w", current, err)
		}
		for _, l := range links {
			next := l.ChildID
			if toCol == "parent_id" {
				next = l.ParentID
			}
			if !visited[next] {
				visited[next] = true
				found = append(found, next)
				queue = append(queue, next)
			}
		}
	}

	if len(found) == 0 {
		return nil, nil
	}
	var batches []models.Batch
	if err := db.Where("id IN ?", found).Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("lineage: load batches: %w", err)
	}
	// Preserve BFS order.
	byID := make(map[string]models.Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	ordered := make([]models.Batch, 0, len(found))
	for _, id := range found {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}
