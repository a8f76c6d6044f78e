package lifecycle

import "strings"

// QuotationStatus is the client-facing view enumeration.
type QuotationStatus string

const (
	QuotationPending  QuotationStatus = "pending"
	QuotationApproved QuotationStatus = "approved"
	QuotationRejected QuotationStatus = "rejected"
)

// QuotationDecision is what an approver may write, in stored casing.
type QuotationDecision string

const (
	DecisionApproved  QuotationDecision = "Approved"
	DecisionConfirmed QuotationDecision = "Confirmed"
	DecisionRejected  QuotationDecision = "Rejected"
)

// NormalizeQuotation folds stored casings into the view enumeration.
// Anything unrecognised is treated as pending.
func NormalizeQuotation(raw string) QuotationStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "confirmed", "accepted":
		return QuotationApproved
	case "rejected", "declined":
		return QuotationRejected
	default:
		return QuotationPending
	}
}

// ParseDecision accepts exact casing only.
func ParseDecision(raw string) (QuotationDecision, error) {
	switch d := QuotationDecision(raw); d {
	case DecisionApproved, DecisionConfirmed, DecisionRejected:
		return d, nil
	}
	return "", ErrUnknownStatus
}

// View is the status a quotation shows after this decision.
func (d QuotationDecision) View() QuotationStatus {
	if d == DecisionRejected {
		return QuotationRejected
	}
	return QuotationApproved
}

// CheckDecision validates applying d to a quotation whose stored status is current.
func CheckDecision(current string, d QuotationDecision) error {
	view := NormalizeQuotation(current)
	switch d {
	case DecisionApproved, DecisionRejected:
		if view == QuotationPending {
			return nil
		}
	case DecisionConfirmed:
		if view == QuotationPending || view == QuotationApproved {
			return nil
		}
	}
	return ErrInvalidTransition
}
