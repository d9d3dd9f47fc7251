package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"library-client/library"
	"library-client/report"
)

// defaultLoanDays is the loan period offered when no due date is given.
const defaultLoanDays = 14

func defaultDueDate(now time.Time) string {
	return now.AddDate(0, 0, defaultLoanDays).Format("2006-01-02")
}

func newLoansCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Lend, return and track books",
	}

	var (
		status   string
		search   string
		sortBy   string
		descSort bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List loans with optional filtering and sorting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, ok := library.ParseStatus(status)
			if !ok {
				return fmt.Errorf("unknown status %q (want all, active, overdue or returned)", status)
			}
			key, ok := library.ParseSortKey(sortBy)
			if !ok {
				return fmt.Errorf("unknown sort key %q (want dueDate, loanDate, bookTitle or memberName)", sortBy)
			}
			loans, err := a.manager.Loans(cmd.Context(), library.LoanFilter{Status: st, Search: search}, key, descSort)
			if err != nil {
				return err
			}
			printLoans(cmd.OutOrStdout(), loans, a.manager.Now())
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "all", "all, active, overdue or returned")
	list.Flags().StringVar(&search, "search", "", "match book title or member name")
	list.Flags().StringVar(&sortBy, "sort", string(library.SortByDueDate), "dueDate, loanDate, bookTitle or memberName")
	list.Flags().BoolVar(&descSort, "desc", false, "sort descending")

	active := &cobra.Command{
		Use:   "active",
		Short: "List loans that have not been returned",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loans, err := a.manager.ActiveLoans(cmd.Context())
			if err != nil {
				return err
			}
			library.SortLoans(loans, library.SortByDueDate, false)
			printLoans(cmd.OutOrStdout(), loans, a.manager.Now())
			return nil
		},
	}

	var (
		severity string
		xlsxPath string
	)
	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Report overdue loans by severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sev, ok := library.ParseSeverity(severity)
			if !ok {
				return fmt.Errorf("unknown severity %q (want all, mild, moderate or severe)", severity)
			}
			entries, err := a.manager.OverdueReport(cmd.Context())
			if err != nil {
				return err
			}
			entries = library.FilterBySeverity(entries, sev)
			out := cmd.OutOrStdout()
			printOverdue(out, entries)
			if xlsxPath == "" {
				return nil
			}
			if err := writeOverdueFile(xlsxPath, entries, a.manager.Now()); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nReport written to %s\n", xlsxPath)
			return nil
		},
	}
	overdue.Flags().StringVar(&severity, "severity", "all", "all, mild, moderate or severe")
	overdue.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the report to this .xlsx file")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.api.GetLoan(cmd.Context(), library.ID(args[0]))
			if err != nil {
				return err
			}
			printLoan(cmd.OutOrStdout(), l, a.manager.Now())
			return nil
		},
	}

	var req library.LoanRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Lend a book to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("due") {
				req.DueDate = defaultDueDate(a.manager.Now())
			}
			l, err := a.manager.CreateLoan(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loan %s: '%s' lent to %s, due %s\n",
				l.ID, library.LoanBookTitle(l), library.LoanMemberName(l), formatDate(l.DueDate))
			return nil
		},
	}
	create.Flags().Var(idValue{&req.BookID}, "book", "book ID")
	create.Flags().Var(idValue{&req.MemberID}, "member", "member ID")
	create.Flags().StringVar(&req.DueDate, "due", "", "due date, YYYY-MM-DD (default two weeks from today)")
	create.Flags().StringVar(&req.Notes, "notes", "", "optional note")

	ret := &cobra.Command{
		Use:   "return ID",
		Short: "Record a loan's return",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.manager.ReturnLoan(cmd.Context(), library.ID(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "'%s' returned by %s\n", library.LoanBookTitle(l), library.LoanMemberName(l))
			if l.Fine.IsPositive() {
				fmt.Fprintf(out, "Late return: fine of %s recorded\n", l.Fine.StringFixed(2))
			}
			return nil
		},
	}

	var newDue string
	renew := &cobra.Command{
		Use:   "renew ID",
		Short: "Move a loan's due date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.manager.RenewLoan(cmd.Context(), library.ID(args[0]), newDue)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loan %s now due %s\n", l.ID, formatDate(l.DueDate))
			return nil
		},
	}
	renew.Flags().StringVar(&newDue, "due", "", "new due date, YYYY-MM-DD")

	payFine := &cobra.Command{
		Use:   "pay-fine ID",
		Short: "Settle the fine on a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.manager.PayFine(cmd.Context(), library.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fine on loan %s paid\n", l.ID)
			return nil
		},
	}

	cmd.AddCommand(list, active, overdue, show, create, ret, renew, payFine)
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printStats(cmd.OutOrStdout(), a.manager.Statistics(cmd.Context()))
			return nil
		},
	}
}

func writeOverdueFile(path string, entries []library.OverdueEntry, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteOverdueWorkbook(f, entries, now); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// idValue lets a library.ID be bound to a flag.
type idValue struct{ id *library.ID }

func (v idValue) String() string {
	if v.id == nil {
		return ""
	}
	return v.id.String()
}

func (v idValue) Set(s string) error {
	*v.id = library.ID(s)
	return nil
}

func (v idValue) Type() string { return "id" }
