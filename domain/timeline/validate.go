package timeline

import (
	"strings"
	"time"

	"github.com/Tatenda/fullstori/pkg/apperror"
)

// eventFields is the resolved scalar state of an event before it is written.
type eventFields struct {
	title         string
	description   *string
	date          *string
	seriesDay     *int
	sourceGraphID *string
	sourceNodeID  *string
	targetNodeID  *string
	participants  []string
}

func (f *eventFields) validate(hasNewTarget bool) error {
	if f.title == "" {
		return apperror.NewValidation("title", "title is required")
	}
	if f.date != nil {
		if _, err := time.Parse(time.DateOnly, *f.date); err != nil {
			return apperror.NewValidation("date", "date must be formatted as YYYY-MM-DD")
		}
	}
	if f.seriesDay != nil && *f.seriesDay < 0 {
		return apperror.NewValidation("seriesDay", "series day must not be negative")
	}
	if f.date == nil && f.seriesDay == nil && f.sourceGraphID == nil {
		return apperror.NewValidation("date", "one of date, seriesDay and sourceGraphId is required")
	}
	if f.sourceNodeID == nil && f.targetNodeID == nil && len(f.participants) == 0 && !hasNewTarget {
		return apperror.NewValidation("participantNodeIds", "an event must reference at least one node")
	}
	return nil
}

// nodeIDs lists every referenced node once.
func (f *eventFields) nodeIDs() []string {
	e := Event{SourceNodeID: f.sourceNodeID, TargetNodeID: f.targetNodeID, ParticipantNodeIDs: f.participants}
	return e.NodeIDs()
}

func (f *eventFields) group() Group {
	return Group{Date: f.date, SeriesDay: f.seriesDay}.normalize()
}

// optional trims s and maps blank values to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// dedupe trims ids and drops blanks and repeats, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
