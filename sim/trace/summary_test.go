package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalEvents != 0 || summary.Arrivals != 0 {
		t.Error("expected zero counts for nil trace")
	}
	if summary.EventsByKind == nil {
		t.Error("expected non-nil kind map")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(Config{Level: LevelEvents})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalEvents != 0 {
		t.Errorf("expected 0 total events, got %d", summary.TotalEvents)
	}
	if summary.AdmittedCount != 0 || summary.RejectedCount != 0 {
		t.Error("expected 0 admitted and rejected")
	}
	if summary.BlockingRatio != 0 {
		t.Errorf("expected 0 blocking ratio, got %f", summary.BlockingRatio)
	}
	if len(summary.EventsByKind) != 0 {
		t.Error("expected empty kind distribution")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with mixed admission outcomes and events
	st := NewSimulationTrace(Config{Level: LevelEvents})
	st.RecordAdmission(AdmissionRecord{Clock: 1, Admitted: true, Reason: ReasonServer})
	st.RecordAdmission(AdmissionRecord{Clock: 2, Admitted: true, Reason: ReasonQueue})
	st.RecordAdmission(AdmissionRecord{Clock: 3, Admitted: false, Reason: ReasonBufferFull})
	st.RecordAdmission(AdmissionRecord{Clock: 4, Admitted: true, Reason: ReasonQueue})
	st.RecordEvent(EventRecord{Kind: "arrival", QueueLength: 0})
	st.RecordEvent(EventRecord{Kind: "arrival", QueueLength: 1})
	st.RecordEvent(EventRecord{Kind: "arrival", QueueLength: 1})
	st.RecordEvent(EventRecord{Kind: "arrival", QueueLength: 2})
	st.RecordEvent(EventRecord{Kind: "service-completion", QueueLength: 1})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.Arrivals != 4 {
		t.Errorf("expected 4 arrivals, got %d", summary.Arrivals)
	}
	if summary.AdmittedCount != 3 {
		t.Errorf("expected 3 admitted, got %d", summary.AdmittedCount)
	}
	if summary.RejectedCount != 1 {
		t.Errorf("expected 1 rejected, got %d", summary.RejectedCount)
	}
	if summary.DirectToServer != 1 {
		t.Errorf("expected 1 direct admission, got %d", summary.DirectToServer)
	}
	if summary.BlockingRatio != 0.25 {
		t.Errorf("expected blocking ratio 0.25, got %f", summary.BlockingRatio)
	}
	if summary.EventsByKind["arrival"] != 4 || summary.EventsByKind["service-completion"] != 1 {
		t.Errorf("unexpected kind distribution %v", summary.EventsByKind)
	}
	if summary.MaxQueueLength != 2 {
		t.Errorf("expected max queue length 2, got %d", summary.MaxQueueLength)
	}
	if summary.TotalEvents != 5 {
		t.Errorf("expected 5 events, got %d", summary.TotalEvents)
	}
}
