package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the database",
	Long: `Reset data in the database.

Examples:
  billhours reset entries     # Delete all time entries and their history
  billhours reset contracts   # Delete all contracts; entries return to the default pool
  billhours reset all         # Wipe everything: projects, users, contracts, entries`,
}

var resetEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Delete all time entries and their history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL time entries. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		// Locked contracts cache totals of the deleted entries
		return wipe("All time entries have been deleted.",
			"UPDATE contracts SET hours_worked = NULL, billable_amount_total = NULL",
			"DELETE FROM entry_history",
			"DELETE FROM time_entries",
		)
	},
}

var resetContractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Delete all contracts, rates, expenses and invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL contracts and detach every time entry. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		return wipe("All contracts have been deleted.",
			"UPDATE time_entries SET contract_id = NULL WHERE contract_id IS NOT NULL",
			"DELETE FROM contracts_invoices",
			"DELETE FROM contracts_expenses",
			"DELETE FROM user_contract_rates",
			"DELETE FROM contracts",
		)
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL data (projects, users, contracts, entries, everything). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		// Order matters due to foreign keys
		return wipe("All data has been deleted.",
			"DELETE FROM entry_history",
			"DELETE FROM time_entries",
			"DELETE FROM contracts_invoices",
			"DELETE FROM contracts_expenses",
			"DELETE FROM user_contract_rates",
			"DELETE FROM user_project_rates",
			"DELETE FROM contracts",
			"DELETE FROM contract_categories",
			"DELETE FROM project_members",
			"DELETE FROM projects",
			"DELETE FROM users",
		)
	},
}

// wipe runs the statements in one transaction
func wipe(done string, statements ...string) error {
	err := appInstance.DB.InTx(context.Background(), func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	appInstance.Logger.Warn().Strs("statements", statements).Msg("database reset")
	fmt.Println(done)
	return nil
}

func confirmPrompt(message string) bool {
	fmt.Printf("%s [y/N] ", message)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func init() {
	resetCmd.AddCommand(resetEntriesCmd)
	resetCmd.AddCommand(resetContractsCmd)
	resetCmd.AddCommand(resetAllCmd)
}
