// Package memory provides in-process RowStore and Bucket implementations. They back
// the offline mode and double as controllable fakes in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gastos/internal/remote"
)

// Calls counts operations per method name.
type Calls map[string]int

// RowStore keeps rows in a map keyed by id.
type RowStore struct {
	mu    sync.Mutex
	rows  map[string]remote.Row
	calls Calls

	// Fail maps a method name (Insert, SelectVisible, UpdateSharedWith, Delete) to the
	// error it should return instead of touching the table.
	Fail map[string]error
}

func NewRowStore(seed ...remote.Row) *RowStore {
	s := &RowStore{rows: make(map[string]remote.Row), calls: Calls{}, Fail: map[string]error{}}
	for _, r := range seed {
		s.rows[r.ID] = r
	}
	return s
}

func (s *RowStore) enter(method string) error {
	s.calls[method]++
	return s.Fail[method]
}

func (s *RowStore) Insert(_ context.Context, row remote.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Insert"); err != nil {
		return err
	}
	if _, ok := s.rows[row.ID]; ok {
		return fmt.Errorf("duplicate key %q", row.ID)
	}
	s.rows[row.ID] = row
	return nil
}

func (s *RowStore) SelectVisible(_ context.Context, email string) ([]remote.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SelectVisible"); err != nil {
		return nil, err
	}
	f := remote.VisibleFilter(email)
	var out []remote.Row
	for _, r := range s.rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// UpdateSharedWith succeeds silently when no row matches, like a filtered PATCH.
func (s *RowStore) UpdateSharedWith(_ context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateSharedWith"); err != nil {
		return err
	}
	r, ok := s.rows[id]
	if !ok {
		return nil
	}
	r.SharedWithEmail = &email
	s.rows[id] = r
	return nil
}

func (s *RowStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("Delete"); err != nil {
		return err
	}
	delete(s.rows, id)
	return nil
}

// Row returns the stored row with id.
func (s *RowStore) Row(id string) (remote.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

func (s *RowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Calls returns how many times method was invoked.
func (s *RowStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Bucket keeps objects in a map keyed by name.
type Bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   Calls
	baseURL string

	// Fail maps a method name (Upload, Remove) to the error it should return.
	Fail map[string]error
}

// NewBucket creates a bucket whose public URLs are baseURL + "/" + name.
func NewBucket(baseURL string) *Bucket {
	return &Bucket{objects: make(map[string][]byte), calls: Calls{}, baseURL: baseURL, Fail: map[string]error{}}
}

func (b *Bucket) Upload(_ context.Context, name string, data []byte, _ string, upsert bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["Upload"]++
	if err := b.Fail["Upload"]; err != nil {
		return err
	}
	if _, ok := b.objects[name]; ok && !upsert {
		return fmt.Errorf("object %q already exists", name)
	}
	b.objects[name] = append([]byte(nil), data...)
	return nil
}

func (b *Bucket) PublicURL(name string) string {
	return b.baseURL + "/" + name
}

func (b *Bucket) Remove(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["Remove"]++
	if err := b.Fail["Remove"]; err != nil {
		return err
	}
	delete(b.objects, name)
	return nil
}

// Object returns the stored bytes for name.
func (b *Bucket) Object(name string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[name]
	return data, ok
}

// Names lists stored object names, sorted.
func (b *Bucket) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.objects))
	for n := range b.objects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (b *Bucket) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// SetFail installs or clears (err == nil) a failure for method.
func (s *RowStore) SetFail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.Fail, method)
		return
	}
	s.Fail[method] = err
}

func (b *Bucket) SetFail(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.Fail, method)
		return
	}
	b.Fail[method] = err
}

var (
	_ remote.RowStore = (*RowStore)(nil)
	_ remote.Bucket   = (*Bucket)(nil)
)
