package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrou/turnstile/pkg/adapters/memory"
	"github.com/ferrou/turnstile/pkg/domain"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryption_RoundTrip(t *testing.T) {
	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(memory.NewStore())
	ctx := context.Background()

	c := domain.NewCheckout("c1", domain.StepCart)
	c.TotalCents = 4999
	c.Fields = map[string]any{"email": "jo@example.com"}

	require.NoError(t, store.Save(ctx, c))
	assert.Equal(t, uint64(1), c.Version)

	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepCart, loaded.CurrentStep)
	assert.Equal(t, int64(4999), loaded.TotalCents)
	assert.Equal(t, "jo@example.com", loaded.Fields["email"])
	assert.Equal(t, uint64(1), loaded.Version)
}

func TestEncryption_PayloadIsOpaque(t *testing.T) {
	inner := memory.NewStore()
	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner)
	ctx := context.Background()

	c := domain.NewCheckout("c1", domain.StepPayment)
	c.Fields = map[string]any{"card_number": "4111-1111"}
	require.NoError(t, store.Save(ctx, c))

	envelope, err := inner.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, envelope.CurrentStep)
	assert.Empty(t, envelope.History)

	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4111-1111")
	assert.NotContains(t, string(raw), domain.StepPayment)
}

func TestEncryption_KeyRotation(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()

	oldStore := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner)
	c := domain.NewCheckout("c1", domain.StepCart)
	require.NoError(t, oldStore.Save(ctx, c))

	rotated := NewEncryptionMiddleware(EncryptionConfig{
		ActiveKey:    testKey(2),
		FallbackKeys: [][]byte{testKey(1)},
	})(inner)

	loaded, err := rotated.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepCart, loaded.CurrentStep)
}

func TestEncryption_WrongKeyFails(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner).
		Save(ctx, domain.NewCheckout("c1", domain.StepCart)))

	_, err := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(9)})(inner).Load(ctx, "c1")
	assert.Error(t, err)
}

func TestEncryption_RejectsPlainRecord(t *testing.T) {
	inner := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, inner.Save(ctx, domain.NewCheckout("c1", domain.StepCart)))

	_, err := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(inner).Load(ctx, "c1")
	assert.Error(t, err)
}

func TestEncryption_VersionConflictSurvivesWrapping(t *testing.T) {
	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)})(memory.NewStore())
	ctx := context.Background()

	c := domain.NewCheckout("c1", domain.StepCart)
	require.NoError(t, store.Save(ctx, c))

	stale := c.Clone()
	stale.Version = 0
	assert.ErrorIs(t, store.Save(ctx, stale), domain.ErrVersionConflict)
}

func TestEncryption_PanicsOnShortKey(t *testing.T) {
	assert.Panics(t, func() {
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: []byte("short")})
	})
}
