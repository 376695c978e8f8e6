// Package unknown names speakers that no enrolled identity matched.
//
// A Tracker maps each diarization cluster label to a placeholder such as
// "Unknown Speaker 1", numbered in the order clusters are first seen.
// A cluster keeps its placeholder for the whole run and numbers are
// never reused.
package unknown

import (
	"fmt"
	"strings"
)

// DefaultPrefix is the placeholder prefix.
const DefaultPrefix = "Unknown Speaker"

// Entry is one cluster's placeholder.
type Entry struct {
	Cluster string `json:"cluster"`
	Label   string `json:"label"`
}

// Tracker assigns placeholders for one run. It is not safe for
// concurrent use; runs decide segments sequentially.
type Tracker struct {
	prefix string
	labels map[string]string
	order  []string
}

// NewTracker creates a tracker. An empty prefix uses DefaultPrefix.
func NewTracker(prefix string) *Tracker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Tracker{prefix: prefix, labels: map[string]string{}}
}

// Label returns the placeholder for cluster, assigning the next number
// on first sight.
func (t *Tracker) Label(cluster string) string {
	if l, ok := t.labels[cluster]; ok {
		return l
	}
	l := fmt.Sprintf("%s %d", t.prefix, len(t.order)+1)
	t.labels[cluster] = l
	t.order = append(t.order, cluster)
	return l
}

// Lookup returns the placeholder of a cluster seen before.
func (t *Tracker) Lookup(cluster string) (string, bool) {
	l, ok := t.labels[cluster]
	return l, ok
}

// Mapping returns the assignments in first-seen order.
func (t *Tracker) Mapping() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, c := range t.order {
		out = append(out, Entry{Cluster: c, Label: t.labels[c]})
	}
	return out
}

// Labels returns the assigned placeholders in first-seen order.
func (t *Tracker) Labels() []string {
	out := make([]string, 0, len(t.order))
	for _, c := range t.order {
		out = append(out, t.labels[c])
	}
	return out
}

// Len returns the number of placeholders assigned.
func (t *Tracker) Len() int { return len(t.order) }

// Prefix returns the placeholder prefix.
func (t *Tracker) Prefix() string { return t.prefix }
