package order

// CancellationReason is the fixed enumerated justification attached to a
// cancelled order. ReasonOther additionally requires free-text notes.
type CancellationReason string

const (
	ReasonChangedMind         CancellationReason = "changed_mind"
	ReasonWrongOrder          CancellationReason = "wrong_order"
	ReasonFoundBetterPrice    CancellationReason = "found_better_price"
	ReasonDeliveryTooLong     CancellationReason = "delivery_too_long"
	ReasonPaymentIssue        CancellationReason = "payment_issue"
	ReasonNoLongerNeeded      CancellationReason = "no_longer_needed"
	ReasonDuplicateOrder      CancellationReason = "duplicate_order"
	ReasonPrescriptionInvalid CancellationReason = "prescription_invalid"
	ReasonQualityIssue        CancellationReason = "quality_issue"
	ReasonPharmacyClosure     CancellationReason = "pharmacy_closure"
	ReasonRegulatoryIssue     CancellationReason = "regulatory_issue"
	ReasonAddressUnreachable  CancellationReason = "address_unreachable"
	ReasonOther               CancellationReason = "other"
)

func (r CancellationReason) Valid() bool {
	switch r {
	case ReasonChangedMind, ReasonWrongOrder, ReasonFoundBetterPrice,
		ReasonDeliveryTooLong, ReasonPaymentIssue, ReasonNoLongerNeeded,
		ReasonDuplicateOrder, ReasonPrescriptionInvalid, ReasonQualityIssue,
		ReasonPharmacyClosure, ReasonRegulatoryIssue, ReasonAddressUnreachable,
		ReasonOther:
		return true
	}
	return false
}

// RequiresNotes reports whether this reason is meaningless without free text.
func (r CancellationReason) RequiresNotes() bool {
	return r == ReasonOther
}
