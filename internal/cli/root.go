package cli

import (
	"time"

	"github.com/andy/billhours/internal/app"
	"github.com/spf13/cobra"
)

var appInstance *app.App

// now is swapped in tests
var now = time.Now

var rootCmd = &cobra.Command{
	Use:   "billhours",
	Short: "Track how project hours are billed against contracts",
	Long: `Billhours attributes time entries to prepaid contracts, tracks what is
left of each budget, and freezes a contract's hours when it is locked.

Entries without an explicit contract are claimed by the oldest unlocked
contract whose date range covers them; the rest stay in the default pool.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(contractsCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(expensesCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
}
