package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// named returns a handler whose identity can be checked through its error.
func named(name string) Handler {
	return HandlerFunc(func(context.Context, Event) error { return fmt.Errorf("%s", name) })
}

func handlerName(t *testing.T, e HandlerEntry) string {
	t.Helper()
	err := e.Handler.Handle(context.Background(), nil)
	require.Error(t, err)
	return err.Error()
}

func TestResolveFirstMatchInRegistrationOrder(t *testing.T) {
	r := NewActionRegistry("action")
	require.NoError(t, r.Register("edit_", named("edit")))
	require.NoError(t, r.Register("edit_confirm_", named("confirm")))

	e, ok := r.Resolve("edit_confirm_42")
	require.True(t, ok)
	assert.Equal(t, "edit_", e.Prefix)
	assert.Equal(t, "edit", handlerName(t, e))
}

func TestResolveSpecificFirst(t *testing.T) {
	r := NewActionRegistry("action")
	require.NoError(t, r.Register("edit_confirm_", named("confirm")))
	require.NoError(t, r.Register("edit_", named("edit")))

	tests := []struct {
		token string
		want  string
		found bool
	}{
		{"edit_confirm_42", "edit_confirm_", true},
		{"edit_42", "edit_", true},
		{"edit_", "edit_", true},
		{"edit", "", false},
		{"regenerate_1", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			e, ok := r.Resolve(tt.token)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, e.Prefix)
		})
	}
}

func TestResolveIgnoresPrefixLength(t *testing.T) {
	prefixes := []string{"a", "ab", "abc", "b"}
	tokens := []string{"abcd", "abd", "ba", "c", "a"}

	r := NewActionRegistry("action")
	for _, p := range prefixes {
		require.NoError(t, r.Register(p, named(p)))
	}

	for _, tok := range tokens {
		var want string
		for _, p := range prefixes {
			if len(tok) >= len(p) && tok[:len(p)] == p {
				want = p
				break
			}
		}
		e, ok := r.Resolve(tok)
		assert.Equal(t, want != "", ok, tok)
		assert.Equal(t, want, e.Prefix, tok)
	}
}

func TestRegisterReplacesInPlace(t *testing.T) {
	r := NewActionRegistry("action")
	require.NoError(t, r.Register("a_", named("first"), "old"))
	require.NoError(t, r.Register("b_", named("b")))
	require.NoError(t, r.Register("a_", named("second"), "new"))

	assert.Equal(t, []string{"a_", "b_"}, r.ListPrefixes())
	e, ok := r.Lookup("a_")
	require.True(t, ok)
	assert.Equal(t, "second", handlerName(t, e))
	assert.Equal(t, "new", e.Description)
}

func TestRegisterRejectsInvalid(t *testing.T) {
	r := NewActionRegistry("action")
	assert.ErrorIs(t, r.Register("", named("x")), ErrEmptyPrefix)
	assert.ErrorIs(t, r.Register("x_", nil), ErrNilHandler)
	assert.Equal(t, 0, r.Len())
}

func TestUnregisterClearHasStats(t *testing.T) {
	r := NewActionRegistry("form")
	for _, p := range []string{"a_", "b_", "c_"} {
		require.NoError(t, r.Register(p, named(p)))
	}
	snapshot := r.Entries()

	assert.True(t, r.Unregister("b_"))
	assert.False(t, r.Unregister("b_"))
	assert.False(t, r.Has("b_"))
	assert.True(t, r.Has("c_"))
	assert.Equal(t, RegistryStats{Count: 2, Prefixes: []string{"a_", "c_"}}, r.Stats())
	assert.Equal(t, "b_", snapshot[1].Prefix, "earlier snapshots are unaffected")

	r.Clear()
	assert.Equal(t, 0, r.Stats().Count)
	_, ok := r.Resolve("a_1")
	assert.False(t, ok)
	assert.Equal(t, "form", r.Name())
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := NewActionRegistry("action")
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.Register(fmt.Sprintf("p%d_", i), named("x"))
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Resolve(fmt.Sprintf("p%d_token", i))
			r.ListPrefixes()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 32, r.Len())
}

func TestMatchWrapsErrNoHandler(t *testing.T) {
	r := NewActionRegistry("actions")
	require.NoError(t, r.Register("regenerate_", named("regen")))

	e, err := r.Match("regenerate_7")
	require.NoError(t, err)
	assert.Equal(t, "regenerate_", e.Prefix)

	_, err = r.Match("delete_7")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHandler))
	assert.Contains(t, err.Error(), `"delete_7" in actions registry`)
}
