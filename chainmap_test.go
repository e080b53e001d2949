package chainmap

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestRootInsertAndGet(t *testing.T) {
	ch0 := New[int, string]()
	if err := ch0.Insert(1, "a0"); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	if err := ch0.Insert(2, "b0"); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}

	ch1a := ch0.Extend()
	if err := ch1a.Insert(3, "c1"); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}
	ch1b := ch0.Extend()
	if err := ch1b.Insert(4, "d1"); err != nil {
		t.Fatalf("unexpected insert error: %v", err)
	}

	expectValue(t, ch0, 1, "a0")
	expectValue(t, ch1a, 3, "c1")
	expectValue(t, ch1b, 4, "d1")
	expectMissing(t, ch0, 3)
	expectMissing(t, ch1b, 3)
	expectMissing(t, ch1a, 4)
}

func TestGetMissesEverywhere(t *testing.T) {
	ch0 := New[string, int]()
	ch1 := ch0.Extend()
	ch2 := ch1.Extend()
	for _, handle := range []*ChainMap[string, int]{ch0, ch1, ch2} {
		if _, ok := handle.Get("never"); ok {
			t.Fatalf("expected miss at depth %d", handle.Depth())
		}
		if handle.Contains("never") {
			t.Fatalf("expected Contains to report false at depth %d", handle.Depth())
		}
	}
}

func TestDeepGetFallsThrough(t *testing.T) {
	ch0 := New[int, string]()
	mustInsert(t, ch0, 1, "a0")
	mustInsert(t, ch0, 2, "b0")
	ch4 := ch0.Extend().Extend().Extend().Extend()

	expectValue(t, ch4, 1, "a0")
	expectValue(t, ch4, 2, "b0")
	expectMissing(t, ch4, 3)

	mustInsert(t, ch4, 3, "c4")
	expectValue(t, ch4, 3, "c4")
	expectMissing(t, ch0, 3)
}

func TestChildShadowsParent(t *testing.T) {
	ch0 := New[string, int]()
	mustInsert(t, ch0, "a", 1)
	ch1 := ch0.Extend()
	mustInsert(t, ch1, "a", 2)

	expectValue(t, ch1, "a", 2)
	expectValue(t, ch0, "a", 1)
}

func TestOverrideInsertPerLevel(t *testing.T) {
	ch0 := New[int, string]()
	ch1 := ch0.Extend()
	ch2 := ch1.Extend()
	ch3 := ch2.Extend()
	ch4 := ch3.Extend()
	handles := []*ChainMap[int, string]{ch0, ch1, ch2, ch3, ch4}
	for i, handle := range handles {
		mustInsert(t, handle, 0, fmt.Sprintf("%d", i))
	}
	for i, handle := range handles {
		expectValue(t, handle, 0, fmt.Sprintf("%d", i))
	}
}

func TestGetLocalStopsAtOwnLevel(t *testing.T) {
	ch0 := New[int, string]()
	mustInsert(t, ch0, 1, "a0")
	ch4 := ch0.Extend().Extend().Extend().Extend()

	if _, ok := ch4.GetLocal(1); ok {
		t.Fatalf("expected GetLocal to ignore ancestor binding")
	}
	mustInsert(t, ch4, 3, "c4")
	if value, ok := ch4.GetLocal(3); !ok || value != "c4" {
		t.Fatalf("expected local binding, got %q ok=%v", value, ok)
	}
	if _, ok := ch0.GetLocal(3); ok {
		t.Fatalf("expected root to not see descendant binding")
	}
	if value, ok := ch0.GetLocal(1); !ok || value != "a0" {
		t.Fatalf("expected root local binding, got %q ok=%v", value, ok)
	}
}

func TestUpdateMutatesOwningLevel(t *testing.T) {
	ch0 := NewWith(map[int]rune{0: 'a'})
	ch1a := ch0.Extend()
	ch1b := ch0.ExtendWith(map[int]rune{0: 'b'})
	ch2 := ch1a.ExtendWith(map[int]rune{0: 'c'})

	expectValue(t, ch0, 0, 'a')
	expectValue(t, ch1a, 0, 'a')
	expectValue(t, ch1b, 0, 'b')
	expectValue(t, ch2, 0, 'c')

	// ch1a owns no binding for 0, so its update reaches the root and is
	// visible to every handle that resolves to the root's entry.
	if err := ch1a.Update(0, 'e'); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	expectValue(t, ch0, 0, 'e')
	expectValue(t, ch1a, 0, 'e')
	expectValue(t, ch1b, 0, 'b')
	expectValue(t, ch2, 0, 'c')

	if err := ch1b.Update(0, 'f'); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	expectValue(t, ch0, 0, 'e')
	expectValue(t, ch1b, 0, 'f')
}

func TestUpdateMissingReportsNotFound(t *testing.T) {
	ch0 := New[int, rune]()
	_ = ch0.ExtendWith(map[int]rune{0: 'a'})

	err := ch0.Update(0, 'b')
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var keyErr *KeyError
	if !errors.As(err, &keyErr) || keyErr.Op != "update" {
		t.Fatalf("expected update KeyError, got %v", err)
	}
	expectMissing(t, ch0, 0)
}

func TestUpdateOrInsertsAtOwnLevel(t *testing.T) {
	ch0 := New[int, rune]()
	ch1 := ch0.ExtendWith(map[int]rune{0: 'a'})

	if err := ch0.UpdateOr(0, 'b'); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ch1.UpdateOr(0, 'c'); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectValue(t, ch0, 0, 'b')
	expectValue(t, ch1, 0, 'c')
}

func TestExtendFallthroughDelegatesEverything(t *testing.T) {
	ch0 := New[string, int]()
	mustInsert(t, ch0, "x", 5)
	ch1 := ch0.ExtendFallthrough()

	expectValue(t, ch1, "x", 5)

	// A transparent level has no storage; the insert lands in the nearest
	// non-transparent ancestor rather than vanishing.
	mustInsert(t, ch1, "y", 6)
	expectValue(t, ch0, "y", 6)
	if value, ok := ch1.GetLocal("x"); !ok || value != 5 {
		t.Fatalf("expected fallthrough GetLocal to consult parent, got %d ok=%v", value, ok)
	}
}

func TestReadonlyBlocksLocalWritesOnly(t *testing.T) {
	ch0 := New[string, int]()
	mustInsert(t, ch0, "z", 1)
	readonly := ch0.Extend().Readonly()

	err := readonly.Insert("w", 2)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	expectValue(t, readonly, "z", 1)

	// Updates still reach ancestor-owned bindings.
	if err := readonly.Update("z", 3); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	expectValue(t, ch0, "z", 3)

	// UpdateOr's insert leg hits the same lock.
	err = readonly.UpdateOr("w", 2)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked from UpdateOr insert leg, got %v", err)
	}

	// The lock lives on a fresh child; the source handle keeps its write
	// access.
	mustInsert(t, ch0, "w", 9)
	expectValue(t, readonly, "w", 9)
}

func TestForkRedirectsFutureWrites(t *testing.T) {
	ch0 := NewWith(map[int]rune{0: 'a'})
	ch1 := ch0.Fork()

	mustInsert(t, ch0, 1, 'b')
	expectValue(t, ch0, 1, 'b')
	if value, ok := ch0.GetLocal(1); !ok || value != 'b' {
		t.Fatalf("expected post-fork insert to be local, got %q ok=%v", value, ok)
	}
	expectMissing(t, ch1, 1)

	expectValue(t, ch0, 0, 'a')
	expectValue(t, ch1, 0, 'a')

	// Updates reach the frozen level and stay visible to both branches.
	if err := ch0.Update(0, 'c'); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	expectValue(t, ch0, 0, 'c')
	expectValue(t, ch1, 0, 'c')

	mustInsert(t, ch0, 1, 'd')
	expectValue(t, ch0, 1, 'd')
	expectMissing(t, ch1, 1)
}

func TestForkWithSeedsNewBranch(t *testing.T) {
	ch0 := NewWith(map[int]rune{0: 'a'})
	ch1 := ch0.ForkWith(map[int]rune{1: 'b'})

	if err := ch0.UpdateOr(1, 'c'); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectValue(t, ch1, 1, 'b')
	expectValue(t, ch0, 1, 'c')
}

func TestForkLeavesOtherHandlesAlone(t *testing.T) {
	ch0 := NewWith(map[string]int{"x": 5})
	// A fallthrough handle aliases the same storage the fork will freeze.
	alias := ch0.ExtendFallthrough()

	branch := ch0.Fork()

	// The alias still designates the pre-fork level: its inserts land there
	// and are visible to both branches through their parent links.
	mustInsert(t, alias, "y", 1)
	expectValue(t, ch0, "y", 1)
	expectValue(t, branch, "y", 1)

	// The rebound handle's inserts stay invisible to the alias and branch.
	mustInsert(t, ch0, "z", 2)
	expectMissing(t, alias, "z")
	expectMissing(t, branch, "z")
}

func TestForkRebindsInPlace(t *testing.T) {
	ch0 := New[string, int]()
	before := ch0.LevelID()
	ch1 := ch0.Fork()
	if ch0.LevelID() == before {
		t.Fatalf("expected fork to rebind the receiving handle")
	}
	if ch1.LevelID() == before || ch1.LevelID() == ch0.LevelID() {
		t.Fatalf("expected the new branch on its own level")
	}
}

func TestDepthCountsTransparentLevels(t *testing.T) {
	ch0 := New[string, int]()
	if got := ch0.Depth(); got != 1 {
		t.Fatalf("expected root depth 1, got %d", got)
	}
	ch1 := ch0.Extend()
	if got := ch1.Depth(); got != 2 {
		t.Fatalf("expected depth 2, got %d", got)
	}
	_ = ch0.Fork()
	// Fork stacks a writable level on a transparent proxy of the old level.
	if got := ch0.Depth(); got != 3 {
		t.Fatalf("expected post-fork depth 3, got %d", got)
	}
}

func TestFlattenAppliesShadowing(t *testing.T) {
	ch0 := NewWith(map[string]int{"a": 1, "b": 2})
	ch1 := ch0.ExtendWith(map[string]int{"b": 20, "c": 30})

	flat := ch1.Flatten()
	want := map[string]int{"a": 1, "b": 20, "c": 30}
	if len(flat) != len(want) {
		t.Fatalf("unexpected flatten size: %v", flat)
	}
	for key, value := range want {
		if flat[key] != value {
			t.Fatalf("expected %s=%d, got %d", key, value, flat[key])
		}
	}

	// The flattened view is detached from the chain.
	flat["a"] = 99
	expectValue(t, ch0, "a", 1)
}

func TestLocalsCopiesOwnLevel(t *testing.T) {
	ch0 := NewWith(map[string]int{"a": 1})
	ch1 := ch0.ExtendWith(map[string]int{"b": 2})

	locals := ch1.Locals()
	if len(locals) != 1 || locals["b"] != 2 {
		t.Fatalf("unexpected locals: %v", locals)
	}
	locals["b"] = 99
	expectValue(t, ch1, "b", 2)
}

func TestExtendWithCopiesSeedMap(t *testing.T) {
	seed := map[string]int{"a": 1}
	ch1 := New[string, int]().ExtendWith(seed)
	seed["a"] = 2
	expectValue(t, ch1, "a", 1)
}

func TestConcurrentHandlesShareAncestor(t *testing.T) {
	root := New[string, int]()
	mustInsert(t, root, "shared", 0)

	const workers = 8
	const iterations = 100
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		handle := root.Extend()
		wg.Add(1)
		go func(w int, handle *ChainMap[string, int]) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if err := handle.Insert("local", i); err != nil {
					t.Errorf("insert: %v", err)
					return
				}
				if err := handle.Update("shared", w*iterations+i); err != nil {
					t.Errorf("update: %v", err)
					return
				}
				if _, ok := handle.Get("shared"); !ok {
					t.Errorf("expected shared binding to stay visible")
					return
				}
			}
		}(w, handle)
	}
	wg.Wait()

	if _, ok := root.Get("shared"); !ok {
		t.Fatalf("expected shared binding to survive")
	}
	if _, ok := root.Get("local"); ok {
		t.Fatalf("expected descendant inserts to stay out of the root")
	}
}

func mustInsert[K comparable, V any](t *testing.T, handle *ChainMap[K, V], key K, value V) {
	t.Helper()
	if err := handle.Insert(key, value); err != nil {
		t.Fatalf("insert %v: %v", key, err)
	}
}

func expectValue[K comparable, V comparable](t *testing.T, handle *ChainMap[K, V], key K, want V) {
	t.Helper()
	got, ok := handle.Get(key)
	if !ok {
		t.Fatalf("expected %v to resolve", key)
	}
	if got != want {
		t.Fatalf("expected %v=%v, got %v", key, want, got)
	}
}

func expectMissing[K comparable, V any](t *testing.T, handle *ChainMap[K, V], key K) {
	t.Helper()
	if value, ok := handle.Get(key); ok {
		t.Fatalf("expected %v to be absent, got %v", key, value)
	}
}

func BenchmarkGetDeepChain(b *testing.B) {
	root := NewWith(map[string]int{"hit": 1})
	handle := root
	for i := 0; i < 16; i++ {
		handle = handle.Extend()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := handle.Get("hit"); !ok {
			b.Fatal("expected hit")
		}
	}
}
