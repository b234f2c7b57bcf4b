package store

import (
	"slices"
	"strings"
	"time"

	"github.com/starford/daily/internal/models"
)

// DateLayout is the date key format.
const DateLayout = "2006-01-02"

// NormalizeDateKey returns the YYYY-MM-DD key at the start of value, or the
// local date of now when value is missing or not a valid date.
func NormalizeDateKey(value string, now time.Time) string {
	v := strings.TrimSpace(value)
	if len(v) >= len(DateLayout) {
		v = v[:len(DateLayout)]
		if _, err := time.Parse(DateLayout, v); err == nil {
			return v
		}
	}
	return now.Format(DateLayout)
}

// NormalizeTags trims, drops empties and removes duplicates, keeping first
// occurrences in order. It returns nil when nothing is left.
func NormalizeTags(tags []string) []string {
	var out []string
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// normalizeIDs keeps the distinct ids present in allowed.
func normalizeIDs(ids []string, allowed map[string]struct{}) []string {
	var out []string
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		if _, ok := allowed[id]; !ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func cloneTask(t models.Task) models.Task {
	t.Tags = slices.Clone(t.Tags)
	if t.ClosedAt != nil {
		c := *t.ClosedAt
		t.ClosedAt = &c
	}
	return t
}

func cloneTasks(tasks []models.Task) []models.Task {
	if tasks == nil {
		return nil
	}
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = cloneTask(t)
	}
	return out
}

func cloneGlobals(globals []models.Global) []models.Global {
	return slices.Clone(globals)
}

func cloneSparks(sparks []models.Spark) []models.Spark {
	if sparks == nil {
		return nil
	}
	out := make([]models.Spark, len(sparks))
	for i, sp := range sparks {
		sp.GlobalIDs = slices.Clone(sp.GlobalIDs)
		sp.TaskIDs = slices.Clone(sp.TaskIDs)
		out[i] = sp
	}
	return out
}
