package scrape

import "jobscout-engine/internal/domain"

// BuildTasks expands the search plan into its cartesian product, role-major,
// then country, then source priority order.
func BuildTasks(roles, countries []string, sources []domain.SourceID) []domain.SearchTask {
	out := make([]domain.SearchTask, 0, len(roles)*len(countries)*len(sources))
	for _, role := range roles {
		for _, country := range countries {
			for _, src := range sources {
				out = append(out, domain.SearchTask{Role: role, Country: country, Source: src})
			}
		}
	}
	return out
}
