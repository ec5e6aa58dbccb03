package domain

import "github.com/google/uuid"

// NeighborFunc returns the direct prerequisites of a topic
type NeighborFunc func(topicID uuid.UUID) ([]uuid.UUID, error)

// PathExists reports whether target is reachable from start by following
// prerequisite edges. It walks the graph with an explicit stack and a
// visited set, so every node is expanded at most once.
func PathExists(start, target uuid.UUID, neighbors NeighborFunc) (bool, error) {
	visited := make(map[uuid.UUID]struct{})
	stack := []uuid.UUID{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == target {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		next, err := neighbors(current)
		if err != nil {
			return false, err
		}
		for _, id := range next {
			if _, seen := visited[id]; !seen {
				stack = append(stack, id)
			}
		}
	}

	return false, nil
}

// WouldCreateCycle reports whether adding the edge topicID -> prerequisiteID
// closes a cycle, i.e. whether topicID is already reachable from prerequisiteID.
func WouldCreateCycle(topicID, prerequisiteID uuid.UUID, neighbors NeighborFunc) (bool, error) {
	if topicID == prerequisiteID {
		return true, nil
	}
	return PathExists(prerequisiteID, topicID, neighbors)
}
