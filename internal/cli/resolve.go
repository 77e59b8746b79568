package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/reconcile"
)

// resolveID resolves a full ID or a unique ID prefix against the records the
// resource currently knows, from the server when reachable and otherwise
// from the mirror.
func resolveID[T domain.Record](ctx context.Context, r *reconcile.Resource[T], input, noun string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%s ID is required", noun)
	}

	items := r.Query(ctx).Data

	// 1. Exact ID match
	for _, it := range items {
		if it.GetID() == input {
			return input, nil
		}
	}

	// 2. Case-insensitive prefix match
	lower := strings.ToLower(input)
	var matches []string
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.GetID()), lower) {
			matches = append(matches, it.GetID())
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s not found: %q", noun, input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s ID prefix %q is ambiguous (%d matches)", noun, input, len(matches))
	}
}

// resolveRef resolves a foreign key flag such as --project or --sprint.
func resolveRef(ctx context.Context, ws *reconcile.Workspace, resource, input string) (string, error) {
	switch resource {
	case domain.ResourceProjects:
		return resolveID(ctx, ws.Projects, input, "project")
	case domain.ResourceTasks:
		return resolveID(ctx, ws.Tasks, input, "task")
	case domain.ResourceSprints:
		return resolveID(ctx, ws.Sprints, input, "sprint")
	case domain.ResourceUsers:
		return resolveID(ctx, ws.Users, input, "user")
	case domain.ResourceTeamSpaces:
		return resolveID(ctx, ws.TeamSpaces, input, "team space")
	default:
		return "", fmt.Errorf("cannot resolve references to %s", resource)
	}
}
