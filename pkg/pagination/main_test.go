package pagination

import (
	"testing"

	"go.uber.org/goleak"
)

// Every batch must have joined its fetch goroutines before returning.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
