package domain

import "sort"

// Evaluation is the derived state of a loan on a given day.
type Evaluation struct {
	Status       string `json:"status"`
	NextDue      *Date  `json:"proximo_vencimento,omitempty"`
	OverdueCount int    `json:"parcelas_atrasadas"`
	PaidCount    int    `json:"parcelas_pagas"`
	Total        int    `json:"total_parcelas"`
	DaysOverdue  int    `json:"dias_atraso"`
}

// DeriveStatus returns the display status of a loan from its installments,
// or from the loan's own due date when it has none.
func DeriveStatus(loan *Loan, installments []*Installment, today Date) string {
	return Evaluate(loan, installments, today).Status
}

// Evaluate derives the loan status along with the date that matters next:
// the earliest overdue due date when the loan is late, otherwise the earliest
// unpaid one. Stored status is only consulted for loans without installments,
// where Quitado is terminal.
func Evaluate(loan *Loan, installments []*Installment, today Date) Evaluation {
	if len(installments) == 0 {
		return evaluateByDueDate(loan, today)
	}

	ev := Evaluation{Total: len(installments)}
	var earliestOverdue, earliestUnpaid *Date

	for _, inst := range installments {
		if inst.IsPaid() {
			ev.PaidCount++
			continue
		}

		due := inst.DueDate
		if earliestUnpaid == nil || due.Before(*earliestUnpaid) {
			earliestUnpaid = &due
		}
		if due.Before(today) {
			ev.OverdueCount++
			if earliestOverdue == nil || due.Before(*earliestOverdue) {
				earliestOverdue = &due
			}
		}
	}

	switch {
	case ev.PaidCount == ev.Total:
		ev.Status = LoanStatusSettled
	case earliestOverdue != nil:
		ev.Status = LoanStatusOverdue
		ev.NextDue = earliestOverdue
		ev.DaysOverdue = today.DaysSince(*earliestOverdue)
	default:
		ev.Status = LoanStatusActive
		ev.NextDue = earliestUnpaid
	}

	return ev
}

func evaluateByDueDate(loan *Loan, today Date) Evaluation {
	if loan == nil {
		return Evaluation{Status: LoanStatusActive}
	}
	if NormalizeLoanStatus(loan.Status) == LoanStatusSettled {
		return Evaluation{Status: LoanStatusSettled}
	}

	due := loan.DueDate
	ev := Evaluation{Status: LoanStatusActive}
	if due.IsZero() {
		return ev
	}

	ev.NextDue = &due
	if due.Before(today) {
		ev.Status = LoanStatusOverdue
		ev.DaysOverdue = today.DaysSince(due)
	}
	return ev
}

// SortInstallments returns the installments ordered by sequence number
// without touching the input slice.
func SortInstallments(installments []*Installment) []*Installment {
	sorted := make([]*Installment, len(installments))
	copy(sorted, installments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Number < sorted[j].Number
	})
	return sorted
}

// InstallmentStatusOn returns the stored status an installment should carry
// on the given day.
func InstallmentStatusOn(inst *Installment, today Date) string {
	if inst.IsPaid() {
		return InstallmentStatusPaid
	}
	if inst.DueDate.Before(today) {
		return InstallmentStatusOverdue
	}
	return InstallmentStatusPending
}
