// Package ident allocates the human-readable business identifiers
// (RISK-0007, AUD-0001, POL-0012, AUD-0001-F03).
package ident

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the identifier prefix of an entity type.
type Kind string

const (
	KindRisk   Kind = "RISK"
	KindAudit  Kind = "AUD"
	KindPolicy Kind = "POL"
)

const (
	Width        = 4
	FindingWidth = 2
)

// Format renders n as <PREFIX>-<n zero-padded to Width>.
func Format(kind Kind, n int) string {
	return fmt.Sprintf("%s-%0*d", kind, Width, n)
}

// Parse extracts the numeric suffix of an identifier of the given kind.
func Parse(kind Kind, id string) (int, error) {
	prefix := string(kind) + "-"
	if !strings.HasPrefix(id, prefix) {
		return 0, fmt.Errorf("ident: %q has no %s prefix", id, prefix)
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("ident: %q has no numeric suffix", id)
	}
	return n, nil
}

// FindingID numbers a finding within its parent audit.
func FindingID(auditID string, n int) string {
	return fmt.Sprintf("%s-F%0*d", auditID, FindingWidth, n)
}

// LastNumber parses the identifier of the most recently created record.
// An empty id means no record exists yet.
func LastNumber(kind Kind, lastID string) (int, error) {
	if lastID == "" {
		return 0, nil
	}
	return Parse(kind, lastID)
}

// LatestFunc returns the identifier of the most recently created record of a
// kind, or "" when the collection is empty.
type LatestFunc func(ctx context.Context) (string, error)

// Sequencer atomically increments a named counter. When the counter does not
// exist yet it is created at floor(ctx) before incrementing.
type Sequencer interface {
	NextSequence(ctx context.Context, name string, floor func(context.Context) (int, error)) (int, error)
}

// Allocator hands out identifiers from per-kind counters. The counters are
// seeded from the newest existing record so numbering continues over data
// that predates them.
type Allocator struct {
	seq    Sequencer
	latest map[Kind]LatestFunc
}

func NewAllocator(seq Sequencer, latest map[Kind]LatestFunc) *Allocator {
	return &Allocator{seq: seq, latest: latest}
}

// Next returns the next identifier for kind. Store errors are returned unchanged.
func (a *Allocator) Next(ctx context.Context, kind Kind) (string, error) {
	floor := func(ctx context.Context) (int, error) {
		fn, ok := a.latest[kind]
		if !ok {
			return 0, nil
		}
		last, err := fn(ctx)
		if err != nil {
			return 0, err
		}
		return LastNumber(kind, last)
	}

	n, err := a.seq.NextSequence(ctx, string(kind), floor)
	if err != nil {
		return "", err
	}
	return Format(kind, n), nil
}
