package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLists() []ParamList {
	return []ParamList{
		{Name: "bollinger_period", Values: []any{14, 20}},
		{Name: "rsi_oversold", Values: []any{25.0, 30.0}},
		{Name: "use_counter_trend_tp", Values: []any{true, false}},
	}
}

func TestGeneratorTotalCountIsProduct(t *testing.T) {
	g := NewGenerator(sampleLists()...)
	assert.Equal(t, 8, g.TotalCount())
}

func TestGeneratorDecodesEveryCombinationExactlyOnce(t *testing.T) {
	g := NewGenerator(sampleLists()...)
	seen := make(map[string]bool)
	for {
		batch := g.GetNextBatch(3)
		if len(batch) == 0 {
			break
		}
		for _, ps := range batch {
			key := fmt.Sprintf("%v|%v|%v", ps["bollinger_period"], ps["rsi_oversold"], ps["use_counter_trend_tp"])
			require.False(t, seen[key], "duplicate combination %s", key)
			seen[key] = true
		}
	}
	assert.Len(t, seen, 8)
}

func TestGeneratorResumeFromSetIndex(t *testing.T) {
	g := NewGenerator(sampleLists()...)
	g.SetCurrentIndex(6)
	batch := g.GetNextBatch(10)
	assert.Len(t, batch, 2)
	idx, total := g.Progress()
	assert.Equal(t, 8, idx)
	assert.Equal(t, 8, total)
}

func TestGeneratorEmptyListProducesEmptyProduct(t *testing.T) {
	g := NewGenerator(ParamList{Name: "x", Values: nil})
	assert.Equal(t, 0, g.TotalCount())
	assert.Empty(t, g.GetNextBatch(10))
}

func TestConfigHashChangesWhenValueOrderWithinAListChanges(t *testing.T) {
	a := []ParamList{{Name: "p", Values: []any{1, 2, 3}}}
	b := []ParamList{{Name: "p", Values: []any{3, 1, 2}}}
	assert.NotEqual(t, ConfigHash(a), ConfigHash(b))
}

func TestConfigHashChangesWithDifferentValues(t *testing.T) {
	a := []ParamList{{Name: "p", Values: []any{1, 2, 3}}}
	b := []ParamList{{Name: "p", Values: []any{1, 2, 4}}}
	assert.NotEqual(t, ConfigHash(a), ConfigHash(b))
}

func TestResumeRestartsOnHashMismatch(t *testing.T) {
	stored := &Progress{ConfigHash: "old", CurrentIndex: 5, Status: StatusRunning}
	idx, fresh := Resume(stored, "new")
	assert.Equal(t, 0, idx)
	assert.True(t, fresh)
}

func TestResumeContinuesOnMatchingHash(t *testing.T) {
	stored := &Progress{ConfigHash: "abc", CurrentIndex: 5, Status: StatusRunning}
	idx, fresh := Resume(stored, "abc")
	assert.Equal(t, 5, idx)
	assert.False(t, fresh)
}

func TestResumeRestartsWhenPreviouslyCompleted(t *testing.T) {
	stored := &Progress{ConfigHash: "abc", CurrentIndex: 8, Status: StatusCompleted}
	idx, fresh := Resume(stored, "abc")
	assert.Equal(t, 0, idx)
	assert.True(t, fresh)
}

type memStore struct {
	mu   sync.Mutex
	data map[string]*Progress
}

func newMemStore() *memStore { return &memStore{data: make(map[string]*Progress)} }

func (s *memStore) Load(inst, period string) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[inst+":"+period], nil
}

func (s *memStore) Save(p *Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.Inst+":"+p.Period] = p
	return nil
}

func TestDriverRunAllVisitsEveryCombinationAndCheckpoints(t *testing.T) {
	lists := sampleLists()
	store := newMemStore()
	var mu sync.Mutex
	var ran int

	runFn := func(ctx context.Context, params ParamSet) (any, error) {
		mu.Lock()
		ran++
		mu.Unlock()
		return params, nil
	}

	d, gen, err := NewDriver("BTC-USDT-SWAP", "1H", lists, store, runFn)
	require.NoError(t, err)

	results, err := d.RunAll(context.Background(), gen)
	require.NoError(t, err)
	assert.Len(t, results, 8)
	assert.Equal(t, 8, ran)

	p, err := store.Load("BTC-USDT-SWAP", "1H")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, 8, p.CompletedCombinations)
}

func TestDriverResumesFromStoredProgress(t *testing.T) {
	lists := sampleLists()
	hash := ConfigHash(lists)
	store := newMemStore()
	store.Save(&Progress{Inst: "BTC-USDT-SWAP", Period: "1H", ConfigHash: hash, CurrentIndex: 6, TotalCombinations: 8, Status: StatusRunning})

	var visited []ParamSet
	runFn := func(ctx context.Context, params ParamSet) (any, error) {
		visited = append(visited, params)
		return nil, nil
	}

	d, gen, err := NewDriver("BTC-USDT-SWAP", "1H", lists, store, runFn)
	require.NoError(t, err)
	_, err = d.RunAll(context.Background(), gen)
	require.NoError(t, err)
	assert.Len(t, visited, 2)
}
