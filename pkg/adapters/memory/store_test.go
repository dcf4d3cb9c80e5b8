package memory

import (
	"testing"

	"github.com/ferrou/turnstile/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunCheckoutStoreContract(t, NewStore())
}
