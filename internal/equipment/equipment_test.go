package equipment

import (
	"path/filepath"
	"testing"

	"github.com/awaistahir/pvsizer/internal/catalog"
	"github.com/awaistahir/pvsizer/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) Resolver {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "eq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	cat, err := catalog.Default()
	require.NoError(t, err)
	return Resolver{Store: st, Catalog: cat}
}

func TestUserEntriesShadowCatalog(t *testing.T) {
	r := newResolver(t)

	p, err := r.Panel("mono-540")
	require.NoError(t, err)
	assert.Equal(t, 540.0, p.PowerW)

	custom := p
	custom.Model = "Site stock 545"
	custom.PowerW = 545
	require.NoError(t, r.Store.SavePanel("mono-540", custom))

	p, err = r.Panel("mono-540")
	require.NoError(t, err)
	assert.Equal(t, 545.0, p.PowerW)

	panels, err := r.Panels()
	require.NoError(t, err)
	require.Len(t, panels, 3)
	assert.Equal(t, "mono-540", panels[2].ID)
	assert.Equal(t, SourceUser, panels[2].Source)
	assert.Equal(t, SourceCatalog, panels[0].Source)
}

func TestInverterLookup(t *testing.T) {
	r := newResolver(t)

	inv, err := r.Inverter("string-20k-3p")
	require.NoError(t, err)
	assert.Equal(t, 3, inv.Phases)

	_, err = r.Inverter("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	custom := inv
	custom.Model = "Rooftop 10k"
	require.NoError(t, r.Store.SaveInverter("rooftop-10k", custom))
	all, err := r.Inverters()
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestNilSources(t *testing.T) {
	var r Resolver
	_, err := r.Panel("mono-540")
	assert.ErrorIs(t, err, ErrNotFound)

	panels, err := r.Panels()
	require.NoError(t, err)
	assert.Empty(t, panels)
}
