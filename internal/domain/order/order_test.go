package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled,
	} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("returned").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusCancellable(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:    true,
		StatusConfirmed:  true,
		StatusProcessing: false,
		StatusShipped:    false,
		StatusDelivered:  false,
		StatusCancelled:  false,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.Cancellable(), status)
	}
}

func TestCancellationReason(t *testing.T) {
	for _, r := range []CancellationReason{
		ReasonChangedMind, ReasonWrongOrder, ReasonFoundBetterPrice,
		ReasonDeliveryTooLong, ReasonPaymentIssue, ReasonNoLongerNeeded,
		ReasonDuplicateOrder, ReasonPrescriptionInvalid, ReasonQualityIssue,
		ReasonPharmacyClosure, ReasonRegulatoryIssue, ReasonAddressUnreachable,
		ReasonOther,
	} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, CancellationReason("because").Valid())

	assert.True(t, ReasonOther.RequiresNotes())
	assert.False(t, ReasonChangedMind.RequiresNotes())
}

func TestMarkCancelled(t *testing.T) {
	o := &Order{ID: "o1", Status: StatusPending, Notes: "keep me"}

	o.MarkCancelled(ReasonDuplicateOrder, "")
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, ReasonDuplicateOrder, o.CancellationReason)
	assert.Equal(t, "keep me", o.Notes, "empty notes must not overwrite existing ones")
	assert.False(t, o.UpdatedAt.IsZero())

	o2 := &Order{ID: "o2", Status: StatusConfirmed}
	o2.MarkCancelled(ReasonOther, "pharmacist asked")
	assert.Equal(t, "pharmacist asked", o2.Notes)
}

func TestCloneIsDeep(t *testing.T) {
	o := &Order{
		ID:    "o1",
		Items: []Item{{ID: "i1", Quantity: 1}},
	}
	clone := o.Clone()
	clone.Items[0].Quantity = 10

	assert.Equal(t, 1, o.Items[0].Quantity)
}
