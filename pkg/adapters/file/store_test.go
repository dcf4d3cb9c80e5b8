package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunCheckoutStoreContract(t, New(t.TempDir()))
}

func TestStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c := domain.NewCheckout("c1", domain.StepAddress)
	require.NoError(t, New(dir).Save(ctx, c))

	// a fresh store over the same directory sees the record
	loaded, err := New(dir).Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepAddress, loaded.CurrentStep)
	assert.Equal(t, uint64(1), loaded.Version)
}

func TestStore_ListIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store := New(dir)
	require.NoError(t, store.Save(ctx, domain.NewCheckout("b", domain.StepCart)))
	require.NoError(t, store.Save(ctx, domain.NewCheckout("a", domain.StepCart)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a checkout"), 0o644))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStore_DefaultPath(t *testing.T) {
	s := New("")
	assert.Equal(t, filepath.Join(".turnstile", "checkouts"), s.BasePath)
}
