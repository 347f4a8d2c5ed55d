package engine

import "github.com/ternarybob/netopscore/internal/models"

// orderedActions returns job's actions in execution order: definition
// order is the default total order; when job.Edges is non-empty, a
// topological order derived from the edges takes precedence (§4.8 step
// 2). Edge labels themselves are consulted by outcomeHandles per action
// after it runs, not during ordering — ordering only needs a valid total
// order that respects edge direction.
func orderedActions(job models.JobDefinition) []models.Action {
	if len(job.Edges) == 0 {
		return job.Actions
	}

	indexByID := make(map[string]int, len(job.Actions))
	for i, a := range job.Actions {
		indexByID[a.ID] = i
	}

	indegree := make(map[string]int, len(job.Actions))
	adj := make(map[string][]string)
	for _, a := range job.Actions {
		indegree[a.ID] = 0
	}
	for _, e := range job.Edges {
		adj[e.From] = append(adj[e.From], e.To)
		indegree[e.To]++
	}

	var queue []string
	for _, a := range job.Actions {
		if indegree[a.ID] == 0 {
			queue = append(queue, a.ID)
		}
	}

	var order []string
	visited := make(map[string]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	// A cycle or disconnected node falls back to definition order for
	// whatever the topological pass didn't place, preserving forward
	// progress over a strict error (§4.8 is silent on malformed DAGs).
	for _, a := range job.Actions {
		if !visited[a.ID] {
			order = append(order, a.ID)
		}
	}

	out := make([]models.Action, 0, len(order))
	for _, id := range order {
		out = append(out, job.Actions[indexByID[id]])
	}
	return out
}

// outcomeHandles computes the set of outbound edge labels an action's
// result satisfies (§4.8 step 4). Generic actions expose the full
// success/failure handle set so edges labeled "trigger", "results",
// "online", "offline", or "data" can all gate on the same outcome.
func outcomeHandles(action models.Action, result models.NodeResult) []models.EdgeLabel {
	switch action.CustomType {
	case "logic:if":
		conditionResult, _ := result.OutputData.Map()
		if v, ok := conditionResult["condition_result"]; ok {
			if b, ok := v.Bool(); ok && b {
				return []models.EdgeLabel{models.EdgeTrue}
			}
		}
		return []models.EdgeLabel{models.EdgeFalse}

	case "logic:switch":
		m, _ := result.OutputData.Map()
		if v, ok := m["matched_case"]; ok {
			if s, ok := v.String(); ok {
				return []models.EdgeLabel{models.EdgeLabel(s), models.EdgeDefault}
			}
		}
		return []models.EdgeLabel{models.EdgeDefault}

	case "logic:loop":
		m, _ := result.OutputData.Map()
		if v, ok := m["loop_completed"]; ok {
			if b, ok := v.Bool(); ok && b {
				return []models.EdgeLabel{models.EdgeComplete, models.EdgeLabel("done")}
			}
		}
		return []models.EdgeLabel{models.EdgeEach, models.EdgeLabel("iteration")}

	default:
		if result.Status == "failure" {
			return []models.EdgeLabel{models.EdgeFailure}
		}
		return []models.EdgeLabel{
			models.EdgeSuccess, models.EdgeLabel("trigger"), models.EdgeLabel("results"),
			models.EdgeLabel("online"), models.EdgeLabel("offline"), models.EdgeLabel("data"),
		}
	}
}
