package lifecycle

import "strings"

// PaymentStatus is the normalized (view) payment status.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentApproved   PaymentStatus = "approved"
	PaymentRejected   PaymentStatus = "rejected"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

type paymentRow struct {
	stored  string
	label   string
	aliases []string
}

// paymentTable is the single place where view and at-rest casings meet.
var paymentTable = map[PaymentStatus]paymentRow{
	PaymentPending:    {stored: "pending", label: "Pending", aliases: []string{"pending"}},
	PaymentProcessing: {stored: "processing", label: "Processing", aliases: []string{"processing"}},
	PaymentApproved:   {stored: "Accepted", label: "Approved", aliases: []string{"accepted", "approved"}},
	PaymentRejected:   {stored: "rejected", label: "Rejected", aliases: []string{"rejected"}},
	PaymentCompleted:  {stored: "completed", label: "Completed", aliases: []string{"completed"}},
	PaymentFailed:     {stored: "failed", label: "Failed", aliases: []string{"failed"}},
}

var paymentAliases = func() map[string]PaymentStatus {
	m := make(map[string]PaymentStatus)
	for s, row := range paymentTable {
		for _, a := range row.aliases {
			m[a] = s
		}
	}
	return m
}()

// NormalizePayment lower-cases and folds aliases. Unknown values pass through
// lower-cased, so NormalizePayment(NormalizePayment(s)) == NormalizePayment(s).
func NormalizePayment(raw string) PaymentStatus {
	v := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := paymentAliases[v]; ok {
		return s
	}
	return PaymentStatus(v)
}

// ParsePayment is NormalizePayment restricted to known statuses.
func ParsePayment(raw string) (PaymentStatus, error) {
	s := NormalizePayment(raw)
	if !s.Known() {
		return "", ErrUnknownStatus
	}
	return s, nil
}

func (s PaymentStatus) Known() bool {
	_, ok := paymentTable[s]
	return ok
}

// Stored is the casing written at rest.
func (s PaymentStatus) Stored() string {
	if row, ok := paymentTable[s]; ok {
		return row.stored
	}
	return string(s)
}

// Aliases lists the lower-cased raw values that normalize to s. Stored rows
// may use any casing of these, so filters must match them case-insensitively.
func (s PaymentStatus) Aliases() []string {
	row, ok := paymentTable[s]
	if !ok {
		return []string{string(s)}
	}
	return append([]string(nil), row.aliases...)
}

func (s PaymentStatus) Label() string {
	if row, ok := paymentTable[s]; ok {
		return row.label
	}
	return string(s)
}

// IsAcceptedEquivalent drives approved metrics and invoice eligibility.
func (s PaymentStatus) IsAcceptedEquivalent() bool {
	return s == PaymentApproved || s == PaymentCompleted
}

// CanTransitionPayment reports whether staff may write to over from. Review
// statuses are a free choice from the known set, so any known target is
// allowed, including from legacy values that no longer parse.
func CanTransitionPayment(from, to PaymentStatus) bool {
	return to.Known()
}
