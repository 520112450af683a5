package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-storefront/cache"
)

type testItem struct {
	ID   string
	Name string
}

// mockRepository records calls. Methods the tests never reach fall through to
// the nil embedded interface and panic.
type mockRepository[T any] struct {
	repository.Repository[T]

	mu    sync.Mutex
	calls []string

	getByIDResult T
	getByIDError  error
	listRecords   []T
	listTotal     int
	countResult   int
	writeResult   T
	writeError    error

	// when set, GetByID signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (m *mockRepository[T]) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

func (m *mockRepository[T]) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *mockRepository[T]) GetByID(_ context.Context, id string, _ ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByID")
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) GetByIdentifier(_ context.Context, identifier string, _ ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier")
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) List(_ context.Context, _ ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List")
	return m.listRecords, m.listTotal, nil
}

func (m *mockRepository[T]) Count(_ context.Context, _ ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	return m.countResult, nil
}

func (m *mockRepository[T]) Create(_ context.Context, record T, _ ...repository.InsertCriteria) (T, error) {
	m.recordCall("Create")
	return record, m.writeError
}

func (m *mockRepository[T]) Update(_ context.Context, record T, _ ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Update")
	return record, m.writeError
}

func (m *mockRepository[T]) Upsert(_ context.Context, record T, _ ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Upsert")
	return record, m.writeError
}

func (m *mockRepository[T]) CreateMany(_ context.Context, records []T, _ ...repository.InsertCriteria) ([]T, error) {
	m.recordCall("CreateMany")
	return records, m.writeError
}

func (m *mockRepository[T]) Delete(_ context.Context, _ T) error {
	m.recordCall("Delete")
	return m.writeError
}

func (m *mockRepository[T]) DeleteWhere(_ context.Context, _ ...repository.DeleteCriteria) error {
	m.recordCall("DeleteWhere")
	return m.writeError
}

// mockCacheService stores fetched values in a map and records invalidations.
type mockCacheService struct {
	mu          sync.Mutex
	storage     map[string]any
	invalidated []string
	fetchErr    error
}

func newMockCacheService() *mockCacheService {
	return &mockCacheService{storage: make(map[string]any)}
}

func (m *mockCacheService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	m.mu.Lock()
	if m.fetchErr != nil {
		defer m.mu.Unlock()
		return nil, m.fetchErr
	}
	if v, ok := m.storage[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	out := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})
	if errVal := out[1]; !errVal.IsNil() {
		return nil, errVal.Interface().(error)
	}

	value := out[0].Interface()
	m.mu.Lock()
	m.storage[key] = value
	m.mu.Unlock()
	return value, nil
}

func (m *mockCacheService) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, key)
	return nil
}

func (m *mockCacheService) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.storage {
		if strings.HasPrefix(k, prefix) {
			delete(m.storage, k)
		}
	}
	return nil
}

func (m *mockCacheService) InvalidateKeys(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.storage, k)
		m.invalidated = append(m.invalidated, k)
	}
	return nil
}

func (m *mockCacheService) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.storage)
}

func newTestRepo() (*CachedRepository[testItem], *mockRepository[testItem], *mockCacheService) {
	base := &mockRepository[testItem]{
		getByIDResult: testItem{ID: "1", Name: "one"},
		listRecords:   []testItem{{ID: "1"}, {ID: "2"}},
		listTotal:     2,
		countResult:   2,
	}
	svc := newMockCacheService()
	return New[testItem](base, svc, cache.NewDefaultKeySerializer()), base, svc
}

func TestNew_DerivesNamespace(t *testing.T) {
	repo, _, _ := newTestRepo()
	if repo.Namespace() != "test_item" {
		t.Fatalf("expected namespace test_item, got %q", repo.Namespace())
	}

	custom := New[*testItem](&mockRepository[*testItem]{}, newMockCacheService(), cache.NewDefaultKeySerializer(), WithNamespace("CatalogProduct"))
	if custom.Namespace() != "catalog_product" {
		t.Fatalf("expected catalog_product, got %q", custom.Namespace())
	}

	ptr := New[*testItem](&mockRepository[*testItem]{}, newMockCacheService(), cache.NewDefaultKeySerializer())
	if ptr.Namespace() != "test_item" {
		t.Fatalf("pointer records should share the element namespace, got %q", ptr.Namespace())
	}
}

func TestCachedReads_HitAfterFirstCall(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		call   func(*CachedRepository[testItem]) error
	}{
		{"GetByID", "GetByID", func(r *CachedRepository[testItem]) error {
			item, err := r.GetByID(ctx, "1")
			if err == nil && item.Name != "one" {
				err = fmt.Errorf("unexpected item %+v", item)
			}
			return err
		}},
		{"GetByIdentifier", "GetByIdentifier", func(r *CachedRepository[testItem]) error {
			_, err := r.GetByIdentifier(ctx, "sku-1")
			return err
		}},
		{"List", "List", func(r *CachedRepository[testItem]) error {
			records, total, err := r.List(ctx)
			if err == nil && (len(records) != 2 || total != 2) {
				err = fmt.Errorf("unexpected list %v/%d", records, total)
			}
			return err
		}},
		{"Count", "Count", func(r *CachedRepository[testItem]) error {
			n, err := r.Count(ctx)
			if err == nil && n != 2 {
				err = fmt.Errorf("unexpected count %d", n)
			}
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, base, _ := newTestRepo()
			for i := 0; i < 3; i++ {
				if err := tt.call(repo); err != nil {
					t.Fatalf("call %d: %v", i, err)
				}
			}
			if got := base.callCount(tt.method); got != 1 {
				t.Fatalf("expected base %s once, got %d", tt.method, got)
			}
			if repo.TrackedKeys() != 1 {
				t.Fatalf("expected one tracked key, got %d", repo.TrackedKeys())
			}
		})
	}
}

func TestCachedReads_DistinctArgsDistinctKeys(t *testing.T) {
	ctx := context.Background()
	repo, base, _ := newTestRepo()

	_, _ = repo.GetByID(ctx, "1")
	_, _ = repo.GetByID(ctx, "2")

	if got := base.callCount("GetByID"); got != 2 {
		t.Fatalf("expected two base calls, got %d", got)
	}
}

func TestCachedReads_ErrorsPropagate(t *testing.T) {
	repo, base, svc := newTestRepo()
	boom := errors.New("no rows")
	base.getByIDError = boom

	if _, err := repo.GetByID(context.Background(), "1"); !errors.Is(err, boom) {
		t.Fatalf("expected base error, got %v", err)
	}
	if svc.size() != 0 {
		t.Fatal("errors must not be cached")
	}
}

func TestWrites_FlushAllTrackedKeys(t *testing.T) {
	ctx := context.Background()

	writes := []struct {
		name string
		op   Operation
		call func(*CachedRepository[testItem]) error
	}{
		{"Create", OpCreate, func(r *CachedRepository[testItem]) error {
			_, err := r.Create(ctx, testItem{ID: "3"})
			return err
		}},
		{"CreateMany", OpCreate, func(r *CachedRepository[testItem]) error {
			_, err := r.CreateMany(ctx, []testItem{{ID: "3"}, {ID: "4"}})
			return err
		}},
		{"Update", OpUpdate, func(r *CachedRepository[testItem]) error {
			_, err := r.Update(ctx, testItem{ID: "1"})
			return err
		}},
		{"Upsert", OpUpsert, func(r *CachedRepository[testItem]) error {
			_, err := r.Upsert(ctx, testItem{ID: "1"})
			return err
		}},
		{"Delete", OpDelete, func(r *CachedRepository[testItem]) error {
			return r.Delete(ctx, testItem{ID: "1"})
		}},
		{"DeleteWhere", OpDelete, func(r *CachedRepository[testItem]) error {
			return r.DeleteWhere(ctx)
		}},
	}

	for _, tt := range writes {
		t.Run(tt.name, func(t *testing.T) {
			repo, base, svc := newTestRepo()

			var ops []Operation
			repo.OnMutation(func(_ context.Context, op Operation) {
				if svc.size() != 0 {
					t.Error("hooks must run after the repository cache is flushed")
				}
				ops = append(ops, op)
			})

			_, _ = repo.GetByID(ctx, "1")
			_, _, _ = repo.List(ctx)
			_, _ = repo.Count(ctx)
			if svc.size() != 3 {
				t.Fatalf("expected 3 cached reads, got %d", svc.size())
			}

			if err := tt.call(repo); err != nil {
				t.Fatalf("write: %v", err)
			}

			if svc.size() != 0 || repo.TrackedKeys() != 0 {
				t.Fatalf("expected flushed cache, got %d entries and %d tracked", svc.size(), repo.TrackedKeys())
			}
			if len(ops) != 1 || ops[0] != tt.op {
				t.Fatalf("expected hook with %s, got %v", tt.op, ops)
			}

			_, _ = repo.GetByID(ctx, "1")
			if got := base.callCount("GetByID"); got != 2 {
				t.Fatalf("expected refetch after write, got %d base calls", got)
			}
		})
	}
}

func TestCachedReads_WriteDuringFetchDropsResult(t *testing.T) {
	ctx := context.Background()
	repo, base, svc := newTestRepo()
	base.entered = make(chan struct{}, 2)
	base.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := repo.GetByID(ctx, "1")
		done <- err
	}()

	<-base.entered
	if _, err := repo.Update(ctx, testItem{ID: "1", Name: "renamed"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(base.release)
	if err := <-done; err != nil {
		t.Fatalf("read: %v", err)
	}

	if svc.size() != 0 {
		t.Fatalf("expected the pre-write read to be dropped, got %d cached entries", svc.size())
	}
	_, _ = repo.GetByID(ctx, "1")
	if got := base.callCount("GetByID"); got != 2 {
		t.Fatalf("expected a refetch after the racing write, got %d base calls", got)
	}
	if repo.TrackedKeys() != 1 {
		t.Fatalf("expected the refetched key to be tracked, got %d", repo.TrackedKeys())
	}
}

func TestWrites_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	repo, base, svc := newTestRepo()
	base.writeError = errors.New("constraint")

	hooked := false
	repo.OnMutation(func(context.Context, Operation) { hooked = true })

	_, _ = repo.GetByID(ctx, "1")
	if _, err := repo.Create(ctx, testItem{ID: "9"}); err == nil {
		t.Fatal("expected write error")
	}
	if err := repo.Delete(ctx, testItem{ID: "1"}); err == nil {
		t.Fatal("expected delete error")
	}

	if svc.size() != 1 {
		t.Fatal("failed writes must not flush")
	}
	if hooked {
		t.Fatal("hooks must not run on failed writes")
	}
}

func TestWithMutationHook(t *testing.T) {
	var calls int
	repo := New[testItem](&mockRepository[testItem]{}, newMockCacheService(), cache.NewDefaultKeySerializer(),
		WithMutationHook(func(context.Context, Operation) { calls++ }),
		WithMutationHook(nil),
	)

	if _, err := repo.Create(context.Background(), testItem{ID: "1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected hook once, got %d", calls)
	}
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	repo, _, svc := newTestRepo()

	if err := repo.InvalidateAll(ctx); err != nil {
		t.Fatalf("empty invalidate: %v", err)
	}

	_, _ = repo.GetByID(ctx, "1")
	_, _ = repo.GetByID(ctx, "2")
	if err := repo.InvalidateAll(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if svc.size() != 0 {
		t.Fatalf("expected empty cache, got %d", svc.size())
	}
	for _, key := range svc.invalidated {
		if !strings.HasPrefix(key, "test_item"+cache.KeySeparator+"GetByID") {
			t.Fatalf("unexpected key %q", key)
		}
	}
}

func TestGetOrFetchFailureSurfaces(t *testing.T) {
	repo, _, svc := newTestRepo()
	svc.fetchErr = errors.New("cache down")
	if _, err := repo.GetByID(context.Background(), "1"); err == nil {
		t.Fatal("expected cache error")
	}
}
