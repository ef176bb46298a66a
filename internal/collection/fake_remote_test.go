package collection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"rsd-cli/internal/model"
	"rsd-cli/internal/postgrest"
)

// fakeRemote is an in-memory keyword endpoint with injectable failures.
type fakeRemote struct {
	mu     sync.Mutex
	rows   map[string]model.Keyword
	nextID int
	calls  []string

	failCreate     error
	failUpdate     error
	failDelete     error
	failReposition error
	failList       error
	// block, when set, is waited on inside Create.
	block chan struct{}
}

func newFakeRemote(items ...model.Keyword) *fakeRemote {
	f := &fakeRemote{rows: map[string]model.Keyword{}}
	for _, it := range items {
		f.rows[it.ID] = it
	}
	return f
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) List(_ context.Context, parent string) ([]model.Keyword, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var out []model.Keyword
	for _, r := range f.rows {
		if r.Software == parent {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) Create(_ context.Context, item model.Keyword) postgrest.MutationResult[model.Keyword] {
	f.record("create")
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusFailure, Err: f.failCreate}
	}
	f.nextID++
	item.ID = fmt.Sprintf("new-%d", f.nextID)
	f.rows[item.ID] = item
	return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusSuccess, Payload: item}
}

func (f *fakeRemote) Update(_ context.Context, item model.Keyword) postgrest.MutationResult[model.Keyword] {
	f.record("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusFailure, Err: f.failUpdate}
	}
	if _, ok := f.rows[item.ID]; !ok {
		return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusFailure, Err: &postgrest.Error{Op: "update", Status: 404, Kind: postgrest.ErrNotFound, Message: "gone"}}
	}
	f.rows[item.ID] = item
	return postgrest.MutationResult[model.Keyword]{Status: postgrest.StatusSuccess, Payload: item}
}

func (f *fakeRemote) DeleteByIDs(_ context.Context, ids []string) postgrest.MutationResult[struct{}] {
	f.record("delete:" + strings.Join(ids, ","))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return postgrest.MutationResult[struct{}]{Status: postgrest.StatusFailure, Err: f.failDelete}
	}
	for _, id := range ids {
		delete(f.rows, id)
	}
	return postgrest.MutationResult[struct{}]{Status: postgrest.StatusSuccess}
}

func (f *fakeRemote) Reposition(_ context.Context, _ string, items []model.Keyword) postgrest.MutationResult[struct{}] {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s=%d", it.ID, it.Position)
	}
	f.record("reposition:" + strings.Join(parts, ","))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReposition != nil {
		return postgrest.MutationResult[struct{}]{Status: postgrest.StatusFailure, Err: f.failReposition}
	}
	for _, it := range items {
		f.rows[it.ID] = it
	}
	return postgrest.MutationResult[struct{}]{Status: postgrest.StatusSuccess}
}

// serverPositions returns the stored positions of parent's rows in order.
func (f *fakeRemote) serverPositions(parent string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, r := range f.rows {
		if r.Software == parent {
			out = append(out, r.Position)
		}
	}
	sort.Ints(out)
	return out
}

type recordingNotifier struct {
	mu                     sync.Mutex
	infos, successes, errs []string
}

func (n *recordingNotifier) Info(m string) {
	n.mu.Lock()
	n.infos = append(n.infos, m)
	n.mu.Unlock()
}

func (n *recordingNotifier) Success(m string) {
	n.mu.Lock()
	n.successes = append(n.successes, m)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(m string) {
	n.mu.Lock()
	n.errs = append(n.errs, m)
	n.mu.Unlock()
}

func kw(id, text string, pos int) model.Keyword {
	return model.Keyword{ID: id, Software: "s1", Keyword: text, Position: pos}
}

func keywordTexts(items []model.Keyword) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Keyword
	}
	return out
}

func positionsOf(items []model.Keyword) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Position
	}
	return out
}

func sameKeyword(a, b model.Keyword) bool {
	return strings.EqualFold(strings.TrimSpace(a.Keyword), strings.TrimSpace(b.Keyword))
}
