package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/models"
	"grc-isms/internal/store"
)

type entity[T any] interface {
	*T
	GetID() uint
	SetID(uint)
	Touch(time.Time)
	Created() time.Time
}

// table is one collection. All tables of a Store share the Store mutex.
type table[T any, P entity[T]] struct {
	s       *Store
	name    string
	rows    map[uint]T
	order   []uint
	columns map[string]func(*T) any
	key     func(*T) string
	clone   func(T) T
	// keep copies fields that Update must not overwrite from the stored row
	keep func(stored T, v *T)
}

func newTable[T any, P entity[T]](s *Store, name string, columns map[string]func(*T) any) *table[T, P] {
	return &table[T, P]{s: s, name: name, rows: map[uint]T{}, columns: columns}
}

func (t *table[T, P]) copyOf(v T) T {
	if t.clone != nil {
		return t.clone(v)
	}
	return v
}

func (t *table[T, P]) match(v *T, filters map[string]any, since, until *time.Time) (bool, error) {
	for col, want := range filters {
		get, ok := t.columns[col]
		if !ok {
			return false, fmt.Errorf("memstore: %s has no column %q", t.name, col)
		}
		if fmt.Sprint(get(v)) != fmt.Sprint(want) {
			return false, nil
		}
	}
	created := P(v).Created()
	if since != nil && created.Before(*since) {
		return false, nil
	}
	if until != nil && created.After(*until) {
		return false, nil
	}
	return true, nil
}

func (t *table[T, P]) filter(filters map[string]any, since, until *time.Time) ([]T, error) {
	var out []T
	for _, id := range t.order {
		v := t.rows[id]
		ok, err := t.match(&v, filters, since, until)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *table[T, P]) sortRows(rows []T, by string, desc bool) error {
	get, ok := t.columns[by]
	if by == "created_at" {
		get = func(v *T) any { return P(v).Created() }
		ok = true
	}
	if !ok {
		return fmt.Errorf("memstore: %s cannot sort by %q", t.name, by)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := get(&rows[i]), get(&rows[j])
		if desc {
			return less(b, a)
		}
		return less(a, b)
	})
	return nil
}

func (t *table[T, P]) conflicts(v *T) bool {
	if t.key == nil {
		return false
	}
	k := t.key(v)
	id := P(v).GetID()
	for otherID, other := range t.rows {
		if otherID != id && t.key(&other) == k {
			return true
		}
	}
	return false
}

func (t *table[T, P]) List(ctx context.Context, q store.ListQuery) ([]T, int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, 0, err
	}

	q = q.Normalize()
	rows, err := t.filter(q.Filters, q.Since, q.Until)
	if err != nil {
		return nil, 0, err
	}
	if err := t.sortRows(rows, q.SortBy, q.SortDesc); err != nil {
		return nil, 0, err
	}

	total := len(rows)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)
	out := make([]T, 0, end-start)
	for _, v := range rows[start:end] {
		out = append(out, t.copyOf(v))
	}
	return out, int64(total), nil
}

func (t *table[T, P]) Get(ctx context.Context, id uint) (*T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}
	return t.getLocked(id)
}

func (t *table[T, P]) getLocked(id uint) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, apperr.NotFound(t.name)
	}
	c := t.copyOf(v)
	return &c, nil
}

func (t *table[T, P]) Create(ctx context.Context, v *T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return err
	}

	p := P(v)
	if p.GetID() == 0 {
		t.s.nextID++
		p.SetID(t.s.nextID)
	}
	if _, exists := t.rows[p.GetID()]; exists || t.conflicts(v) {
		return apperr.Conflict(t.name)
	}

	t.beforeSave(v)
	t.rows[p.GetID()] = t.copyOf(*v)
	t.order = append(t.order, p.GetID())
	return nil
}

func (t *table[T, P]) Update(ctx context.Context, v *T) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return err
	}

	p := P(v)
	stored, ok := t.rows[p.GetID()]
	if !ok {
		return apperr.NotFound(t.name)
	}
	if t.keep != nil {
		t.keep(t.copyOf(stored), v)
	}
	if t.conflicts(v) {
		return apperr.Conflict(t.name)
	}

	t.beforeSave(v)
	t.rows[p.GetID()] = t.copyOf(*v)
	return nil
}

func (t *table[T, P]) beforeSave(v *T) {
	now := t.s.now()
	if d, ok := any(v).(models.Derivable); ok {
		d.ApplyDerived(now)
	}
	P(v).Touch(now)
}

func (t *table[T, P]) Delete(ctx context.Context, id uint) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return err
	}

	if _, ok := t.rows[id]; !ok {
		return apperr.NotFound(t.name)
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (t *table[T, P]) All(ctx context.Context) ([]T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.copyOf(t.rows[id]))
	}
	return out, nil
}

func (t *table[T, P]) Latest(ctx context.Context) (*T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}

	var best *T
	for _, id := range t.order {
		v := t.rows[id]
		if best == nil {
			best = &v
			continue
		}
		bc, vc := P(best).Created(), P(&v).Created()
		if vc.After(bc) || (vc.Equal(bc) && P(&v).GetID() > P(best).GetID()) {
			best = &v
		}
	}
	if best == nil {
		return nil, apperr.NotFound(t.name)
	}
	c := t.copyOf(*best)
	return &c, nil
}

func (t *table[T, P]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return 0, err
	}

	rows, err := t.filter(filters, nil, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func less(a, b any) bool {
	switch x := a.(type) {
	case string:
		return x < b.(string)
	case int:
		return x < b.(int)
	case int64:
		return x < b.(int64)
	case uint:
		return x < b.(uint)
	case bool:
		return !x && b.(bool)
	case time.Time:
		return x.Before(b.(time.Time))
	case *time.Time:
		y := b.(*time.Time)
		if x == nil || y == nil {
			return x == nil && y != nil
		}
		return x.Before(*y)
	default:
		return fmt.Sprint(a) < fmt.Sprint(b)
	}
}
