package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrou/turnstile/pkg/adapters/memory"
	"github.com/ferrou/turnstile/pkg/domain"
)

func TestPII_MasksMatchingFields(t *testing.T) {
	inner := memory.NewStore()
	store := NewPIIMiddleware([]string{"(?i)card", "^email$"})(inner)
	ctx := context.Background()

	c := domain.NewCheckout("c1", domain.StepPayment)
	c.Fields = map[string]any{
		"card_number":  "4111-1111",
		"email":        "jo@example.com",
		"gift_message": "happy birthday",
		"billing": map[string]any{
			"CardToken": "tok_123",
			"city":      "Lisbon",
		},
	}

	require.NoError(t, store.Save(ctx, c))

	persisted, err := inner.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "***", persisted.Fields["card_number"])
	assert.Equal(t, "***", persisted.Fields["email"])
	assert.Equal(t, "happy birthday", persisted.Fields["gift_message"])

	billing := persisted.Fields["billing"].(map[string]any)
	assert.Equal(t, "***", billing["CardToken"])
	assert.Equal(t, "Lisbon", billing["city"])

	// The engine's in-memory copy stays intact.
	assert.Equal(t, "4111-1111", c.Fields["card_number"])
	assert.Equal(t, "tok_123", c.Fields["billing"].(map[string]any)["CardToken"])
	assert.Equal(t, uint64(1), c.Version)
}

func TestChain_OrderIsOutsideIn(t *testing.T) {
	inner := memory.NewStore()
	store := Chain(inner,
		NewPIIMiddleware([]string{"^email$"}),
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)}),
	)
	ctx := context.Background()

	c := domain.NewCheckout("c1", domain.StepConfirm)
	c.Fields = map[string]any{"email": "jo@example.com"}
	require.NoError(t, store.Save(ctx, c))

	// Reading back through the chain decrypts but keeps the mask.
	loaded, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Fields["email"])
}
