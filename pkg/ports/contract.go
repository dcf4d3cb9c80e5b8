package ports

import (
	"context"
	"testing"
	"time"

	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckoutStoreContract runs a suite of tests to verify that a
// CheckoutStore implementation adheres to the defined interface contract,
// including the optimistic version check.
func RunCheckoutStoreContract(t *testing.T, store CheckoutStore) {
	ctx := context.Background()
	id := "contract-checkout-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		c := domain.NewCheckout(id, domain.StepCart)
		c.TotalCents = 12999
		c.Fields["loyalty_tier"] = "gold"

		err := store.Save(ctx, c)
		require.NoError(t, err, "Save should not return error")
		assert.Equal(t, uint64(1), c.Version, "Save should bump the caller's version")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, c.CurrentStep, loaded.CurrentStep)
		assert.Equal(t, c.TotalCents, loaded.TotalCents)
		assert.Equal(t, uint64(1), loaded.Version)
		// JSON persistence may change the concrete numeric types of custom
		// fields; only presence is part of the contract.
		assert.NotNil(t, loaded.Fields["loyalty_tier"])
	})

	t.Run("Version Conflict", func(t *testing.T) {
		first, err := store.Load(ctx, id)
		require.NoError(t, err)
		second := first.Clone()

		first.CurrentStep = domain.StepAddress
		require.NoError(t, store.Save(ctx, first))

		// The second copy still carries the old version; its save must lose.
		second.CurrentStep = domain.StepDelivery
		err = store.Save(ctx, second)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)

		// The losing save must not have clobbered the winner.
		current, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StepAddress, current.CurrentStep)
	})

	t.Run("Stale First Save", func(t *testing.T) {
		dup := domain.NewCheckout(id, domain.StepCart)
		err := store.Save(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrVersionConflict,
			"a zero-version save over an existing checkout must conflict")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrCheckoutNotFound, "Load after Delete should return ErrCheckoutNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		require.NoError(t, store.Save(ctx, domain.NewCheckout(id1, domain.StepCart)))
		require.NoError(t, store.Save(ctx, domain.NewCheckout(id2, domain.StepCart)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
