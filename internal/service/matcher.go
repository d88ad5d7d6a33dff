package service

import (
	"sort"

	"github.com/dosewatch/dosewatch/internal/domain"
)

// MatchDue computes the occurrences due at exactly (d, t) from the given
// schedules. Matching is exact on (hour, minute); no tolerance window is
// applied here. The result is ordered by schedule id so audit output is
// reproducible for a fixed input set.
//
// Pure function: schedules outside their active range are skipped even if
// the store query already filtered them.
func MatchDue(d domain.Date, t domain.TimeOfDay, schedules []domain.Schedule) []domain.Occurrence {
	due := make([]domain.Occurrence, 0, len(schedules))
	for i := range schedules {
		schedule := &schedules[i]
		if !schedule.ActiveOn(d) {
			continue
		}
		if !schedule.DueAt(t) {
			continue
		}
		due = append(due, domain.Occurrence{
			ScheduleID: schedule.ID,
			Date:       d,
			Time:       t,
		})
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduleID < due[j].ScheduleID
	})

	return due
}
