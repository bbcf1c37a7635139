package models

import "testing"

func TestBatchResultMerge(t *testing.T) {
	a := BatchResult{SuccessCount: 3, FailedCount: 1, Errors: []UpdateError{{TargetID: "11", Message: "boom"}}}
	b := BatchResult{SuccessCount: 2, FailedCount: 2, Errors: []UpdateError{{TargetID: "21"}, {TargetID: "22"}}}

	merged := a.Merge(b)
	if merged.SuccessCount != 5 || merged.FailedCount != 3 {
		t.Errorf("unexpected counts: %+v", merged)
	}
	if len(merged.Errors) != 3 || merged.Errors[0].TargetID != "11" || merged.Errors[2].TargetID != "22" {
		t.Errorf("unexpected errors: %+v", merged.Errors)
	}

	// Merge must not mutate its receivers.
	if len(a.Errors) != 1 || len(b.Errors) != 2 {
		t.Error("merge mutated inputs")
	}
}
