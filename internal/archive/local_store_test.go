package archive

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) BlobStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestKeyPathAndDigest(t *testing.T) {
	k := Key{UserID: "u1", TestType: "personalidade", TestID: "t1", ID: "r1"}

	assert.Equal(t, "personalidade/u1/t1/r1.json", k.Path())
	assert.Contains(t, k.Path(), "u1/t1/r1")
	assert.Len(t, k.Digest(), 64)
	assert.Equal(t, k.Digest(), Key{UserID: "u1", TestType: "personalidade", TestID: "t1", ID: "r1"}.Digest())

	shifted := Key{UserID: "u", TestType: "personalidade", TestID: "1t1", ID: "r1"}
	assert.NotEqual(t, k.Digest(), shifted.Digest())
}

func TestKeyValidateRejectsTraversal(t *testing.T) {
	tests := []struct {
		name string
		key  Key
	}{
		{"missing id", Key{UserID: "u1", TestType: "outros", TestID: "t1"}},
		{"slash in user", Key{UserID: "../u1", TestType: "outros", TestID: "t1", ID: "r1"}},
		{"dot dot test", Key{UserID: "u1", TestType: "outros", TestID: "..", ID: "r1"}},
		{"backslash", Key{UserID: "u1", TestType: "outros", TestID: "t1", ID: `r\1`}},
		{"overlong id", Key{UserID: "u1", TestType: "outros", TestID: "t1", ID: strings.Repeat("r", MaxFieldLen+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.key.Validate())
		})
	}
	assert.NoError(t, Key{UserID: "u1", TestType: "outros", TestID: "t1", ID: "r1"}.Validate())
}

func TestLocalStorePutRespectsOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := "outros/u1/t1/r1.json"

	require.NoError(t, s.Put(ctx, p, []byte(`{"v":1}`), PutOptions{CreateDirectories: true}))
	err := s.Put(ctx, p, []byte(`{"v":2}`), PutOptions{CreateDirectories: true})
	assert.ErrorIs(t, err, ErrExists)

	got, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))

	require.NoError(t, s.Put(ctx, p, []byte(`{"v":3}`), PutOptions{Overwrite: true, CreateDirectories: true}))
	got, err = s.Get(ctx, p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":3}`, string(got))
}

func TestLocalStorePutWithoutDirectories(t *testing.T) {
	s := newTestStore(t)

	err := s.Put(context.Background(), "outros/u9/t9/r9.json", []byte(`{}`), PutOptions{})
	assert.ErrorIs(t, err, ErrNoParent)
}

func TestLocalStoreGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "outros/none.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := "outros/u1/t1/r1.json"

	require.NoError(t, s.Put(ctx, p, []byte(`{}`), PutOptions{CreateDirectories: true}))
	require.NoError(t, s.Delete(ctx, p))
	_, err := s.Get(ctx, p)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, p))
	require.NoError(t, s.Put(ctx, p, []byte(`{}`), PutOptions{CreateDirectories: true}))
}

func TestLocalStoreConcurrentFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := "outros/u1/t1/race.json"

	const writers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Put(ctx, p, []byte(`{}`), PutOptions{CreateDirectories: true})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, ErrExists) {
				conflict++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflict)
}

func TestLocalStoreWalkListsDocuments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	paths := []string{"outros/u1/t1/a.json", "personalidade/u2/t2/b.json"}
	for _, p := range paths {
		require.NoError(t, s.Put(ctx, p, []byte(`{}`), PutOptions{CreateDirectories: true}))
	}

	var seen []string
	require.NoError(t, s.Walk(ctx, func(p string) error {
		seen = append(seen, p)
		return nil
	}))
	sort.Strings(seen)

	assert.Equal(t, paths, seen)
	assert.Equal(t, filepath.Join(s.(*localStore).root, "outros", "u1", "t1", "a.json"), s.Location(paths[0]))
}
