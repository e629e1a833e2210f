package domain

// RunStatistics accumulates counts over one aggregation run.
// PerSource/PerCountry count accepted records only.
type RunStatistics struct {
	PerSource         map[SourceID]int `json:"per_source"`
	PerCountry        map[string]int   `json:"per_country"`
	TotalFetched      int              `json:"total_fetched"`
	TotalFiltered     int              `json:"total_filtered"`
	TotalDeduplicated int              `json:"total_deduplicated"`
	Malformed         int              `json:"malformed"`
	Failures          []TaskFailure    `json:"failures,omitempty"`
}

func NewRunStatistics() *RunStatistics {
	return &RunStatistics{
		PerSource:  make(map[SourceID]int),
		PerCountry: make(map[string]int),
	}
}

func (s *RunStatistics) Accepted() int {
	n := 0
	for _, c := range s.PerSource {
		n += c
	}
	return n
}

func (s *RunStatistics) Fail(t SearchTask, reason string) {
	s.Failures = append(s.Failures, TaskFailure{Task: t, Reason: reason})
}
