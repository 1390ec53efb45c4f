// Package service holds the roster snapshot loaded at startup and answers
// read-only queries over it.
//
// A Roster is built once, before the HTTP server starts, and is never
// modified afterwards, so handlers share a single *Roster without locking.
package service

import "rollcall-roster/models"

// Filter restricts a query to a set of class labels. The zero value is the
// absent filter and matches every student.
type Filter struct {
	classes map[string]struct{}
	set     bool
}

// AllClasses returns the absent filter.
func AllClasses() Filter {
	return Filter{}
}

// OnlyClasses returns a filter matching students whose class equals one of
// labels exactly. Duplicates are harmless. With no labels nothing matches.
func OnlyClasses(labels ...string) Filter {
	classes := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		classes[l] = struct{}{}
	}
	return Filter{classes: classes, set: true}
}

// IsSet reports whether the filter restricts results at all.
func (f Filter) IsSet() bool { return f.set }

// Matches reports whether class passes the filter.
func (f Filter) Matches(class string) bool {
	if !f.set {
		return true
	}
	_, ok := f.classes[class]
	return ok
}

// Roster is the immutable, ordered student list.
type Roster struct {
	students []models.Student
	classes  []string
}

// NewRoster copies students into a new Roster, keeping their order.
func NewRoster(students []models.Student) *Roster {
	r := &Roster{
		students: make([]models.Student, len(students)),
	}
	copy(r.students, students)

	seen := make(map[string]struct{})
	for _, s := range r.students {
		if _, ok := seen[s.Class]; ok {
			continue
		}
		seen[s.Class] = struct{}{}
		r.classes = append(r.classes, s.Class)
	}
	return r
}

// Len returns the number of loaded students.
func (r *Roster) Len() int { return len(r.students) }

// Query returns the students passing f in load order. The result is never
// nil and is a fresh slice the caller may keep or modify.
func (r *Roster) Query(f Filter) []models.Student {
	if !f.IsSet() {
		out := make([]models.Student, len(r.students))
		copy(out, r.students)
		return out
	}

	out := []models.Student{}
	for _, s := range r.students {
		if f.Matches(s.Class) {
			out = append(out, s)
		}
	}
	return out
}

// Classes returns the distinct class labels in order of first appearance.
func (r *Roster) Classes() []string {
	out := make([]string, len(r.classes))
	copy(out, r.classes)
	return out
}
