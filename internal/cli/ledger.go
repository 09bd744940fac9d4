package cli

import (
	"context"
	"fmt"

	"github.com/andy/billhours/internal/domain"
	"github.com/spf13/cobra"
)

var expensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Manage contract expenses (they reduce the budget)",
}

var expensesListCmd = &cobra.Command{
	Use:   "list [contract]",
	Short: "List a contract's expenses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		expenses, err := appInstance.Repos.Ledger.Expenses(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to list expenses: %w", err)
		}

		if len(expenses) == 0 {
			fmt.Println("No expenses")
			return nil
		}
		for _, e := range expenses {
			fmt.Printf("%-5d %s  %-25s %12s  %s\n", e.ID, domain.FormatDate(e.Date), truncate(e.Name, 25), formatMoney(e.Amount), e.Description)
		}
		return nil
	},
}

var expensesAddCmd = &cobra.Command{
	Use:   "add [contract] [amount] [name]",
	Short: "Record an expense against a contract",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1], "amount")
		if err != nil {
			return err
		}

		dateArg, _ := cmd.Flags().GetString("date")
		date, err := parseDate(dateArg, now())
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}

		e := &domain.ContractsExpense{ContractID: id, Amount: amount, Date: date}
		if len(args) > 2 {
			e.Name = args[2]
		}
		e.Description, _ = cmd.Flags().GetString("description")

		if err := appInstance.Repos.Ledger.AddExpense(context.Background(), e); err != nil {
			return fmt.Errorf("failed to add expense: %w", err)
		}

		fmt.Println(success("Expense recorded (ID: %d)", e.ID))
		return nil
	},
}

var expensesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "expense")
		if err != nil {
			return err
		}
		if err := appInstance.Repos.Ledger.DeleteExpense(context.Background(), id); err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}
		fmt.Println(success("Expense deleted (ID: %d)", id))
		return nil
	},
}

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Manage amounts invoiced against contracts",
}

var invoicesListCmd = &cobra.Command{
	Use:   "list [contract]",
	Short: "List a contract's invoices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		invoices, err := appInstance.Repos.Ledger.Invoices(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices")
			return nil
		}
		for _, i := range invoices {
			fmt.Printf("%-5d %s  %-20s %12s  %s\n", i.ID, domain.FormatDate(i.Date), truncate(i.Number, 20), formatMoney(i.Amount), i.Description)
		}
		return nil
	},
}

var invoicesAddCmd = &cobra.Command{
	Use:   "add [contract] [amount] [number]",
	Short: "Record an invoice against a contract",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1], "amount")
		if err != nil {
			return err
		}

		dateArg, _ := cmd.Flags().GetString("date")
		date, err := parseDate(dateArg, now())
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}

		i := &domain.ContractsInvoice{ContractID: id, Amount: amount, Date: date}
		if len(args) > 2 {
			i.Number = args[2]
		}
		i.Description, _ = cmd.Flags().GetString("description")

		if err := appInstance.Repos.Ledger.AddInvoice(context.Background(), i); err != nil {
			return fmt.Errorf("failed to add invoice: %w", err)
		}

		fmt.Println(success("Invoice recorded (ID: %d)", i.ID))
		return nil
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "invoice")
		if err != nil {
			return err
		}
		if err := appInstance.Repos.Ledger.DeleteInvoice(context.Background(), id); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		fmt.Println(success("Invoice deleted (ID: %d)", id))
		return nil
	},
}

func init() {
	expensesCmd.AddCommand(expensesListCmd)
	expensesCmd.AddCommand(expensesAddCmd)
	expensesCmd.AddCommand(expensesDeleteCmd)

	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesAddCmd)
	invoicesCmd.AddCommand(invoicesDeleteCmd)

	for _, cmd := range []*cobra.Command{expensesAddCmd, invoicesAddCmd} {
		cmd.Flags().String("date", "today", "Date (YYYY-MM-DD)")
		cmd.Flags().String("description", "", "Description")
	}
}
