package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterAndCount(t *testing.T) {
	Register()

	before := testutil.ToFloat64(BatchGroups.WithLabelValues("rendered"))
	BatchGroups.WithLabelValues("rendered").Inc()
	if got := testutil.ToFloat64(BatchGroups.WithLabelValues("rendered")); got != before+1 {
		t.Errorf("rendered groups = %v, want %v", got, before+1)
	}

	defer func() {
		if recover() == nil {
			t.Error("registering twice should panic")
		}
	}()
	Register()
}
