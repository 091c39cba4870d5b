package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderGrowStagingBuffer(t *testing.T) {
	Recorder{}.GrowStagingBuffer("test-grow", 3)
	Recorder{}.GrowStagingBuffer("test-grow", 2)

	got := testutil.ToFloat64(StagingBufferGrowTotal.WithLabelValues("test-grow"))
	if got != 5 {
		t.Errorf("expected counter value 5, got %v", got)
	}
}

func TestRecorderResetStagingBuffer(t *testing.T) {
	Recorder{}.ResetStagingBuffer("test-reset")
	Recorder{}.ResetStagingBuffer("test-reset")

	got := testutil.ToFloat64(StagingBufferResetTotal.WithLabelValues("test-reset"))
	if got != 2 {
		t.Errorf("expected counter value 2, got %v", got)
	}
}

func TestRecorderSetGauges(t *testing.T) {
	Recorder{}.SetGauges("test-gauges", 7, 2)

	if got := testutil.ToFloat64(BufferGauge.WithLabelValues("test-gauges")); got != 7 {
		t.Errorf("expected buffer gauge 7, got %v", got)
	}
	if got := testutil.ToFloat64(TaskGauge.WithLabelValues("test-gauges")); got != 2 {
		t.Errorf("expected task gauge 2, got %v", got)
	}
}

func TestRecorderObserveOutcome(t *testing.T) {
	before := testutil.CollectAndCount(HandlerOutcomeDuration)
	Recorder{}.ObserveOutcome("test-outcome", "ok", 10*time.Millisecond)
	after := testutil.CollectAndCount(HandlerOutcomeDuration)

	if after <= before {
		t.Errorf("expected histogram series count to grow, before=%d after=%d", before, after)
	}
}
