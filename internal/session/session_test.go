package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"socialrisk/internal/cache"
	"socialrisk/internal/catalog"
	"socialrisk/internal/model"
)

// memStore is an in-memory DraftStore that counts writes.
type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	sets   int
	nextID int
	subs   map[int]func(cache.DraftChange)
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, subs: map[int]func(cache.DraftChange){}}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value, origin string) error {
	m.mu.Lock()
	m.data[key] = value
	m.sets++
	subs := m.snapshotSubs()
	m.mu.Unlock()
	for _, fn := range subs {
		fn(cache.DraftChange{Key: key, Value: value, Origin: origin})
	}
	return nil
}

func (m *memStore) Remove(_ context.Context, key, origin string) error {
	m.mu.Lock()
	delete(m.data, key)
	subs := m.snapshotSubs()
	m.mu.Unlock()
	for _, fn := range subs {
		fn(cache.DraftChange{Key: key, Removed: true, Origin: origin})
	}
	return nil
}

func (m *memStore) Subscribe(_ context.Context, _ string, fn func(cache.DraftChange)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) snapshotSubs() []func(cache.DraftChange) {
	out := make([]func(cache.DraftChange), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}

func (m *memStore) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// mockStore lets tests inject storage failures.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) Set(ctx context.Context, key, value, origin string) error {
	return m.Called(ctx, key, value, origin).Error(0)
}

func (m *mockStore) Remove(ctx context.Context, key, origin string) error {
	return m.Called(ctx, key, origin).Error(0)
}

func (m *mockStore) Subscribe(ctx context.Context, key string, fn func(cache.DraftChange)) (func(), error) {
	args := m.Called(ctx, key, fn)
	cancel, _ := args.Get(0).(func())
	return cancel, args.Error(1)
}

func (m *mockStore) Close() error { return nil }

const testKey = "sdoh-survey:v1:patient"

func openTest(t *testing.T, store cache.DraftStore) *Session {
	t.Helper()
	s := Open(context.Background(), Options{
		Store:         store,
		Key:           testKey,
		SchemaVersion: 1,
		Debounce:      20 * time.Millisecond,
		Logger:        zerolog.Nop(),
	})
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestCascadeResetClearsPreviousBranch(t *testing.T) {
	s := openTest(t, newMemStore())
	deps := catalog.Detail().Dependents(catalog.IDEmployment)

	s.SetAnswerWithCascadeReset(catalog.IDEmployment, model.Text(catalog.EmploymentNotWorking), deps)
	s.SetAnswer(catalog.IDNotWorkingReason, model.Text(model.OptionOther))
	s.SetAnswer("q15_notWorking_reasonsOther", model.Text("freelance"))

	s.SetAnswerWithCascadeReset(catalog.IDEmployment, model.Text(catalog.EmploymentWorking), deps)

	assert.Equal(t, model.Text(""), s.Answer(catalog.IDNotWorkingReason))
	assert.Equal(t, model.Text(""), s.Answer("q15_notWorking_reasonsOther"))
	assert.Equal(t, model.Text(""), s.Answer(catalog.IDWorkingStatus))
	assert.Equal(t, model.Text(catalog.EmploymentWorking), s.Answer(catalog.IDEmployment))
}

func TestCascadeResetUsesListForCheckboxDependents(t *testing.T) {
	s := openTest(t, newMemStore())
	deps := catalog.Detail().Dependents(catalog.IDFoodAccess)

	s.SetAnswerWithCascadeReset(catalog.IDFoodAccess, model.Text(model.YesNoNo), deps)
	s.SetAnswer("q7_foodDetails", model.List("cost", "access"))
	s.SetAnswerWithCascadeReset(catalog.IDFoodAccess, model.Text(model.YesNoYes), deps)

	v := s.Answer("q7_foodDetails")
	assert.Equal(t, model.KindList, v.Kind())
	assert.True(t, v.IsEmpty())
}

func TestCascadeResetKeepsDependentsWhenUnchanged(t *testing.T) {
	s := openTest(t, newMemStore())
	deps := catalog.Detail().Dependents(catalog.IDEmployment)

	s.SetAnswerWithCascadeReset(catalog.IDEmployment, model.Text(catalog.EmploymentWorking), deps)
	s.SetAnswer(catalog.IDWorkingStatus, model.Text("on_leave"))
	s.SetAnswerWithCascadeReset(catalog.IDEmployment, model.Text(catalog.EmploymentWorking), deps)

	assert.Equal(t, model.Text("on_leave"), s.Answer(catalog.IDWorkingStatus))
}

func TestToggleMultiSelectSentinel(t *testing.T) {
	s := openTest(t, newMemStore())
	id := catalog.IDTransportBarrier

	s.ToggleMultiSelect(id, "cost", true)
	s.ToggleMultiSelect(id, "distance", true)
	assert.Equal(t, []string{"cost", "distance"}, s.Answer(id).Items())

	assert.Equal(t, []string{model.OptionNone}, s.ToggleMultiSelect(id, model.OptionNone, true).Items())

	assert.Equal(t, []string{"mobility"}, s.ToggleMultiSelect(id, "mobility", true).Items())

	assert.Empty(t, s.ToggleMultiSelect(id, "mobility", false).Items())
	assert.Equal(t, model.KindList, s.Answer(id).Kind())
}

func TestToggleMultiSelectDeduplicates(t *testing.T) {
	s := openTest(t, newMemStore())
	s.ToggleMultiSelect("q2", "rent", true)
	s.ToggleMultiSelect("q2", "rent", true)
	assert.Equal(t, []string{"rent"}, s.Answer("q2").Items())
}

func TestSetGatingClearsHiddenCategories(t *testing.T) {
	s := openTest(t, newMemStore())
	s.SetGating(model.GatingAnswerSet{"q1": model.GatingYes, "q3": model.GatingYes})
	s.SetAnswer(catalog.IDIncome, model.Text("lt40"))
	s.SetAnswer(catalog.IDHousehold, model.Text("3"))
	s.SetAnswer(catalog.IDDistress, model.Text("7"))
	s.SetAnswer(catalog.IDContactPreference, model.Text("phone"))

	s.SetGating(model.GatingAnswerSet{"q3": model.GatingYes})

	assert.False(t, s.Answer(catalog.IDIncome).IsSet())
	assert.False(t, s.Answer(catalog.IDHousehold).IsSet())
	assert.Equal(t, model.Text("7"), s.Answer(catalog.IDDistress))
	assert.Equal(t, model.Text("phone"), s.Answer(catalog.IDContactPreference))
}

func TestDebounceCoalescesBursts(t *testing.T) {
	store := newMemStore()
	s := openTest(t, store)

	for i := 0; i < 10; i++ {
		s.SetAnswer(catalog.IDDistress, model.Text("5"))
	}
	assert.Equal(t, 0, store.setCount())

	require.Eventually(t, func() bool { return store.setCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, store.setCount())

	raw, ok, _ := store.Get(context.Background(), testKey)
	require.True(t, ok)
	var d model.Draft
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, 1, d.SchemaVersion)
	assert.Equal(t, model.Text("5"), d.Answers.Get(catalog.IDDistress))
}

func TestFlushWritesImmediately(t *testing.T) {
	store := newMemStore()
	s := openTest(t, store)
	s.SetAnswer(catalog.IDDistress, model.Text("8"))
	s.Flush(context.Background())
	assert.Equal(t, 1, store.setCount())

	s.Flush(context.Background())
	assert.Equal(t, 1, store.setCount())
}

func TestOpenLoadsStoredDraft(t *testing.T) {
	store := newMemStore()
	first := openTest(t, store)
	first.SetGating(model.GatingAnswerSet{"q3": model.GatingYes})
	first.SetAnswer(catalog.IDDistress, model.Text("9"))
	first.Flush(context.Background())

	second := openTest(t, store)
	snap := second.Snapshot()
	assert.Equal(t, model.GatingYes, snap.Gating["q3"])
	assert.Equal(t, model.Text("9"), snap.Answers.Get(catalog.IDDistress))
}

func TestOpenDiscardsOtherSchemaVersion(t *testing.T) {
	store := newMemStore()
	data, _ := json.Marshal(model.Draft{SchemaVersion: 0, Answers: model.AnswerSet{"q5": model.Text("9")}})
	require.NoError(t, store.Set(context.Background(), testKey, string(data), "old"))

	s := openTest(t, store)
	assert.Empty(t, s.Snapshot().Answers)
}

func TestOpenDiscardsUnreadableDraft(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Set(context.Background(), testKey, "{not json", "old"))

	s := openTest(t, store)
	assert.Empty(t, s.Snapshot().Answers)
	assert.False(t, s.Degraded())
}

func TestExternalChangeReplacesDraft(t *testing.T) {
	store := newMemStore()
	a := openTest(t, store)
	b := openTest(t, store)

	var mu sync.Mutex
	var seen []model.Draft
	b.OnExternalChange(func(d model.Draft) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, d)
	})
	b.SetAnswer(catalog.IDLoneliness, model.Text("never"))

	a.SetAnswer(catalog.IDDistress, model.Text("3"))
	a.Flush(context.Background())

	assert.Equal(t, model.Text("3"), b.Answer(catalog.IDDistress))
	assert.False(t, b.Answer(catalog.IDLoneliness).IsSet(), "last writer wins without merge")

	mu.Lock()
	require.Len(t, seen, 1)
	assert.Equal(t, model.Text("3"), seen[0].Answers.Get(catalog.IDDistress))
	mu.Unlock()

	// b's pending write was superseded, so a keeps its state.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, model.Text("3"), a.Answer(catalog.IDDistress))
	assert.Equal(t, 1, store.setCount())
}

func TestExternalRemovalClearsSession(t *testing.T) {
	store := newMemStore()
	a := openTest(t, store)
	b := openTest(t, store)

	b.SetAnswer(catalog.IDDistress, model.Text("4"))
	b.Flush(context.Background())
	assert.Equal(t, model.Text("4"), a.Answer(catalog.IDDistress))

	a.Reset(context.Background())
	assert.Empty(t, b.Snapshot().Answers)
	_, ok, _ := store.Get(context.Background(), testKey)
	assert.False(t, ok)
}

func TestOwnWritesAreIgnored(t *testing.T) {
	store := newMemStore()
	s := openTest(t, store)
	called := false
	s.OnExternalChange(func(model.Draft) { called = true })

	s.SetAnswer(catalog.IDDistress, model.Text("2"))
	s.Flush(context.Background())
	assert.False(t, called)
}

func TestStorageFailureDegradesToMemory(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, testKey).Return("", false, nil)
	store.On("Subscribe", mock.Anything, testKey, mock.Anything).Return(func() {}, nil)
	store.On("Set", mock.Anything, testKey, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	s := openTest(t, store)
	s.SetAnswer(catalog.IDDistress, model.Text("6"))
	s.Flush(context.Background())
	assert.True(t, s.Degraded())

	s.SetAnswer(catalog.IDDistress, model.Text("7"))
	s.Flush(context.Background())
	assert.Equal(t, model.Text("7"), s.Answer(catalog.IDDistress))
	store.AssertNumberOfCalls(t, "Set", 1)
}

func TestUnreachableStoreOnOpen(t *testing.T) {
	store := new(mockStore)
	store.On("Get", mock.Anything, testKey).Return("", false, errors.New("connection refused"))

	s := openTest(t, store)
	assert.True(t, s.Degraded())
	s.SetAnswer(catalog.IDDistress, model.Text("1"))
	s.Reset(context.Background())
	assert.Empty(t, s.Snapshot().Answers)
	store.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything)
}
