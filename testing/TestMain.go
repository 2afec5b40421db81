// Package testing switches the process into test mode when imported by a test binary.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("TECHFIX_TEST_MODE", "1")
		if os.Getenv("INVOICE_STORE") == "" {
			_ = os.Setenv("INVOICE_STORE", "local")
		}
		if os.Getenv("INVOICE_API_URL") == "" {
			_ = os.Setenv("INVOICE_API_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs m with test mode enabled.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
