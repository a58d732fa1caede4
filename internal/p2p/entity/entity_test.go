package entity

import "testing"

// TestRequisitionTransitionTable verifies the requisition state machine edges
func TestRequisitionTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{ReqStatusDraft, ReqStatusSubmitted, true},
		{ReqStatusDraft, ReqStatusCancelled, true},
		{ReqStatusDraft, ReqStatusApproved, false},
		{ReqStatusSubmitted, ReqStatusApproved, true},
		{ReqStatusSubmitted, ReqStatusRejected, true},
		{ReqStatusSubmitted, ReqStatusOrdered, false},
		{ReqStatusApproved, ReqStatusOrdered, true},
		{ReqStatusApproved, ReqStatusCancelled, true},
		{ReqStatusRejected, ReqStatusSubmitted, false},
		{ReqStatusOrdered, ReqStatusCancelled, false},
		{ReqStatusCancelled, ReqStatusDraft, false},
	}

	for _, tc := range cases {
		r := &Requisition{Status: tc.from}
		if got := r.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("requisition %s→%s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

// TestOrderTransitionTable verifies the order state machine edges
func TestOrderTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{OrderStatusDraft, OrderStatusSubmitted, true},
		{OrderStatusDraft, OrderStatusApproved, false},
		{OrderStatusSubmitted, OrderStatusApproved, true},
		{OrderStatusSubmitted, OrderStatusReceived, false},
		{OrderStatusApproved, OrderStatusReceived, true},
		{OrderStatusApproved, OrderStatusPartiallyReceived, true},
		{OrderStatusPartiallyReceived, OrderStatusReceived, true},
		{OrderStatusPartiallyReceived, OrderStatusCompleted, true},
		{OrderStatusReceived, OrderStatusCompleted, true},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusDraft, false},
	}

	for _, tc := range cases {
		o := &Order{Status: tc.from}
		if got := o.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("order %s→%s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

// TestMaterialTransitionTable verifies deprecated is terminal
func TestMaterialTransitionTable(t *testing.T) {
	active := &Material{Status: MaterialStatusActive}
	if !active.CanTransitionTo(MaterialStatusInactive) {
		t.Errorf("active material should deactivate")
	}
	if !active.CanTransitionTo(MaterialStatusDeprecated) {
		t.Errorf("active material should deprecate")
	}

	inactive := &Material{Status: MaterialStatusInactive}
	if !inactive.CanTransitionTo(MaterialStatusActive) {
		t.Errorf("inactive material should reactivate")
	}

	deprecated := &Material{Status: MaterialStatusDeprecated}
	for _, target := range []string{MaterialStatusActive, MaterialStatusInactive} {
		if deprecated.CanTransitionTo(target) {
			t.Errorf("deprecated material must not transition to %s", target)
		}
	}
}
