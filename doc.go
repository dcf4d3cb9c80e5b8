/*
Package turnstile is a configurable multi-step checkout workflow engine.

It drives a purchase transaction through an ordered sequence of named steps
(cart, address, delivery, payment, confirm, complete). Steps can be removed,
inserted before or after existing steps, made conditional on transaction
state, guarded by entry preconditions, and augmented with pre-entry hooks and
per-step field-permission rules.

The step set is declared on a flow.Builder during initialization and frozen
into an immutable flow.Definition; the Engine then resolves the active
sequence per checkout context and applies guarded transitions. Persistence,
rendering, localization, and payment integration stay outside the engine and
talk to it through the pkg/ports interfaces.

	b := flow.Default()
	b.Add("gift_wrap", domain.Before("confirm"), flow.MustCondition("total > 50"))
	def, _ := b.Freeze()

	eng, _ := turnstile.New(def)
	c, _ := eng.Start(ctx, "checkout-123")
	res := eng.Advance(ctx, c)
*/
package turnstile
