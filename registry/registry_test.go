package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rlch/completer"
	"github.com/rlch/completer/registry"
)

type stubProvider struct {
	id       string
	tag      string
	contexts []completer.Context
}

func (p *stubProvider) ID() string { return p.id }

func (p *stubProvider) SetContext(cc completer.Context) { p.contexts = append(p.contexts, cc) }

func (p *stubProvider) IsApplicable(context.Context, completer.Request, completer.Context) (bool, error) {
	return true, nil
}

func (p *stubProvider) Fetch(completer.TextState, completer.Request) {}

func TestRegistry_Order(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	r.Register(&stubProvider{id: "b"})
	r.Register(&stubProvider{id: "a"})
	r.Register(&stubProvider{id: "c"})

	assert.Equal(t, []string{"b", "a", "c"}, r.IDs())
	assert.Equal(t, 3, r.Len())

	p, ok := r.Provider("a")
	require.True(t, ok)
	assert.Equal(t, "a", p.ID())

	_, ok = r.Provider("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateWarns(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	r := registry.New(zap.New(core))

	r.Register(&stubProvider{id: "a", tag: "first"})
	r.Register(&stubProvider{id: "b"})
	r.Register(&stubProvider{id: "a", tag: "second"})

	entries := logs.FilterMessage("provider already registered, replacing").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ContextMap()["provider"])

	// The replacement keeps the original slot.
	providers := r.Providers()
	require.Len(t, providers, 2)
	assert.Equal(t, "second", providers[0].(*stubProvider).tag)
}

func TestRegistry_Override(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	r := registry.New(zap.New(core))

	r.OverrideProvider(&stubProvider{id: "a"})
	assert.Zero(t, logs.Len(), "overriding a missing provider just adds it")

	r.OverrideProvider(&stubProvider{id: "a", tag: "new"})
	assert.Equal(t, 1, logs.FilterMessage("overriding provider").Len())

	p, _ := r.Provider("a")
	assert.Equal(t, "new", p.(*stubProvider).tag)
}

func TestRegistry_SetContext(t *testing.T) {
	t.Parallel()

	r := registry.New(nil)
	a, b := &stubProvider{id: "a"}, &stubProvider{id: "b"}
	r.Register(a)
	r.Register(b)

	cc := completer.Context{Surface: completer.SurfaceInfo{ID: "nb", Kind: completer.SurfaceNotebook}}
	r.SetContext(cc)

	assert.Equal(t, []completer.Context{cc}, a.contexts)
	assert.Equal(t, []completer.Context{cc}, b.contexts)
}
