package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "portfolio/internal/log"
	"portfolio/internal/model"
)

const defaultMaxPerEvent = 1000

// Window selects occurrences overlapping [From, To).
type Window struct {
	From time.Time
	To   time.Time

	// Location is the display timezone for the output. Nil means time.Local.
	Location *time.Location

	// MaxPerEvent caps instances produced by one recurring event.
	MaxPerEvent int
}

// Expansion is the result of ExpandOccurrences.
type Expansion struct {
	// Occurrences ordered by start time, then summary.
	Occurrences []model.Occurrence
	// Truncated lists UIDs that hit MaxPerEvent.
	Truncated []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete instances inside w.
// RRULE and EXDATE are applied, and a RECURRENCE-ID override replaces the
// instance it names.
func ExpandOccurrences(events []VEvent, w Window) (Expansion, error) {
	var res Expansion
	if !w.To.After(w.From) {
		return res, errors.New("ics: window end must be after start")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxPerEvent <= 0 {
		w.MaxPerEvent = defaultMaxPerEvent
	}

	masters := map[string][]VEvent{}
	overrides := map[string][]VEvent{}
	var uids []string
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := masters[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		masters[ev.UID] = append(masters[ev.UID], ev)
	}

	for _, uid := range uids {
		for _, ev := range masters[uid] {
			var occ []model.Occurrence
			capped := false
			if ev.RRule == "" {
				occ = expandSingle(ev, overrides[uid], w)
			} else {
				occ, capped = expandRecurring(ev, overrides[uid], w)
			}
			res.Occurrences = append(res.Occurrences, occ...)
			if capped {
				res.Truncated = append(res.Truncated, uid)
				appLog.Warn("ics expansion truncated", "uid", uid, "cap", w.MaxPerEvent)
			}
		}
	}

	sort.SliceStable(res.Occurrences, func(i, j int) bool {
		a, b := res.Occurrences[i], res.Occurrences[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.Summary < b.Summary
	})
	return res, nil
}

func expandSingle(ev VEvent, overrides []VEvent, w Window) []model.Occurrence {
	inst, start, end, _ := applyOverride(ev, overrides, ev.Start, ev.End)
	if !overlaps(start, end, w) {
		return nil
	}
	return []model.Occurrence{occurrence(inst, start, end, w.Location)}
}

func expandRecurring(ev VEvent, overrides []VEvent, w Window) ([]model.Occurrence, bool) {
	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("ics bad RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	// an instance that started before From can still overlap it
	starts := set.Between(w.From.Add(-dur).In(loc), w.To.In(loc), true)

	capped := false
	if len(starts) > w.MaxPerEvent {
		starts = starts[:w.MaxPerEvent]
		capped = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	used := make([]bool, len(overrides))
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			// all-day instances keep whole days even across DST changes
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			days := int(dur.Hours()/24 + 0.5)
			if days < 1 {
				days = 1
			}
			e = s.AddDate(0, 0, days)
		}
		inst, start, end, idx := applyOverride(ev, overrides, s, e)
		if idx >= 0 {
			used[idx] = true
		}
		if !overlaps(start, end, w) {
			continue
		}
		out = append(out, occurrence(inst, start, end, w.Location))
	}

	// An instance originally outside the window may have been moved into it.
	for i, o := range overrides {
		if used[i] || !overlaps(o.Start, o.End, w) {
			continue
		}
		rid := o.RecurrenceID.In(loc)
		if len(set.Between(rid, rid, true)) == 0 {
			continue
		}
		out = append(out, occurrence(o, o.Start, o.End, w.Location))
	}
	return out, capped
}

// applyOverride returns the override replacing the instance at start and
// its index, or ev unchanged and -1.
func applyOverride(ev VEvent, overrides []VEvent, start, end time.Time) (VEvent, time.Time, time.Time, int) {
	for i, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return o, o.Start, o.End, i
		}
	}
	return ev, start, end, -1
}

// overlaps reports whether [start, end) meets [w.From, w.To). A zero-length
// event counts when its instant falls inside the window.
func overlaps(start, end time.Time, w Window) bool {
	if !end.After(start) {
		return !start.Before(w.From) && start.Before(w.To)
	}
	return start.Before(w.To) && end.After(w.From)
}

func occurrence(ev VEvent, start, end time.Time, loc *time.Location) model.Occurrence {
	s := start.In(loc)
	return model.Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: ev.UID + "@" + s.Format(time.RFC3339),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       s,
		End:         end.In(loc),
	}
}
