package stats

import (
	"math"
	"sort"

	"github.com/alexanderramin/tally/internal/domain"
)

// TaskStatusCounts counts tasks per status. Every known status is present,
// zero when unused.
func TaskStatusCounts(tasks []domain.Task) map[domain.TaskStatus]int {
	out := make(map[domain.TaskStatus]int, len(domain.TaskStatuses))
	for _, s := range domain.TaskStatuses {
		out[s] = 0
	}
	for _, t := range tasks {
		out[t.Status]++
	}
	return out
}

// CompletionRate is the percentage of done tasks, rounded to one decimal.
// It is 0 for no tasks.
func CompletionRate(tasks []domain.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.IsDone() {
			done++
		}
	}
	return math.Round(float64(done)/float64(len(tasks))*1000) / 10
}

// Velocity is the throughput of one sprint.
type Velocity struct {
	SprintID string
	Name     string
	Status   domain.SprintStatus
	Done     int
	Total    int
}

// SprintVelocity counts total and done tasks per sprint, ordered by sprint
// start date. Tasks outside the given sprints are ignored.
func SprintVelocity(sprints []domain.Sprint, tasks []domain.Task) []Velocity {
	ordered := make([]domain.Sprint, len(sprints))
	copy(ordered, sprints)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate.Before(ordered[j].StartDate)
	})

	out := make([]Velocity, 0, len(ordered))
	index := make(map[string]int, len(ordered))
	for _, s := range ordered {
		index[s.ID] = len(out)
		out = append(out, Velocity{SprintID: s.ID, Name: s.Name, Status: s.Status})
	}
	for _, t := range tasks {
		i, ok := index[t.SprintID]
		if !ok || t.SprintID == "" {
			continue
		}
		out[i].Total++
		if t.IsDone() {
			out[i].Done++
		}
	}
	return out
}
