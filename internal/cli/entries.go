package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage time entries",
	Long:  `List, add and delete time entries, and show how their contract changed.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var filter repository.EntryFilter
		if cmd.Flags().Changed("project") {
			arg, _ := cmd.Flags().GetString("project")
			p, err := resolveProject(ctx, appInstance.Repos.Projects, arg)
			if err != nil {
				return err
			}
			filter.ProjectID = &p.ID
		}
		if cmd.Flags().Changed("contract") {
			id, _ := cmd.Flags().GetInt64("contract")
			filter.ContractID = &id
		}
		filter.Unassigned, _ = cmd.Flags().GetBool("unassigned")

		for _, bound := range []struct {
			flag string
			dst  **time.Time
		}{{"from", &filter.From}, {"to", &filter.To}} {
			if !cmd.Flags().Changed(bound.flag) {
				continue
			}
			arg, _ := cmd.Flags().GetString(bound.flag)
			t, err := parseDate(arg, now())
			if err != nil {
				return fmt.Errorf("invalid %s date: %w", bound.flag, err)
			}
			*bound.dst = &t
		}

		entries, err := appInstance.Repos.Entries.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries found")
			return nil
		}

		printEntries(entries)
		return nil
	},
}

var entriesAddCmd = &cobra.Command{
	Use:   "add [project] [user] [date] [hours] [comments]",
	Short: "Add a time entry",
	Args:  cobra.RangeArgs(4, 5),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProject(ctx, appInstance.Repos.Projects, args[0])
		if err != nil {
			return err
		}
		u, err := resolveUser(ctx, appInstance.Repos.Users, args[1])
		if err != nil {
			return err
		}
		spentOn, err := parseDate(args[2], now())
		if err != nil {
			return fmt.Errorf("invalid date: %w", err)
		}
		hours, err := parseAmount(args[3], "hours")
		if err != nil {
			return err
		}

		entry := domain.NewTimeEntry(p.ID, u.ID, spentOn, hours)
		if len(args) > 4 {
			entry.Comments = args[4]
		}
		if cmd.Flags().Changed("issue") {
			issue, _ := cmd.Flags().GetInt64("issue")
			entry.IssueID = &issue
		}
		if cmd.Flags().Changed("contract") {
			contractID, _ := cmd.Flags().GetInt64("contract")
			c, err := appInstance.ContractService.GetContract(ctx, contractID)
			if err != nil {
				return err
			}
			if c.IsLocked {
				return fmt.Errorf("contract %d is locked", contractID)
			}
			entry.ContractID = &contractID
		}

		if err := appInstance.Repos.Entries.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		fmt.Println(success("Time entry created (ID: %d)", entry.ID))

		c, err := appInstance.ContractService.ContractForTimeEntry(ctx, entry.ID)
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Println(mutedStyle.Render("  No contract covers this entry, it stays in the default pool"))
		} else {
			fmt.Printf("  Contract: %d (#%03d)\n", c.ID, c.ProjectContractID)
		}
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "entry")
		if err != nil {
			return err
		}

		entry, err := appInstance.Repos.Entries.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if entry.ContractID != nil {
			c, err := appInstance.ContractService.GetContract(ctx, *entry.ContractID)
			if err == nil && c.IsLocked {
				return fmt.Errorf("cannot delete entry: contract %d is locked", c.ID)
			}
		}

		if err := appInstance.Repos.Entries.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Println(success("Entry deleted (ID: %d)", id))
		return nil
	},
}

var entriesHistoryCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show how an entry moved between contracts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "entry")
		if err != nil {
			return err
		}

		history, err := appInstance.Repos.Entries.GetHistory(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		if len(history) == 0 {
			fmt.Println("No history for this entry")
			return nil
		}

		fmt.Printf("History for Entry #%d:\n\n", id)
		for _, h := range history {
			from, to := h.OldValue, h.NewValue
			if from == "" {
				from = "default"
			}
			if to == "" {
				to = "default"
			}
			fmt.Printf("%s  %s: %s -> %s  (%s)\n",
				h.ChangedAt.Format("2006-01-02 15:04:05"), h.FieldName, from, to, h.ChangeReason)
		}
		return nil
	},
}

// printEntries renders a time entry table with a total line
func printEntries(entries []*domain.TimeEntry) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-10s %-6s %-9s %8s  %s", "ID", "Date", "User", "Contract", "Hours", "Comments")))

	total := decimal.Zero
	for _, e := range entries {
		contract := "-"
		if e.ContractID != nil {
			contract = fmt.Sprintf("%d", *e.ContractID)
		}
		fmt.Printf("%-6d %-10s %-6d %-9s %8s  %s\n",
			e.ID,
			domain.FormatDate(e.SpentOn),
			e.UserID,
			contract,
			formatHours(e.Hours),
			truncate(e.Comments, 40),
		)
		total = total.Add(e.Hours)
	}

	fmt.Println(mutedStyle.Render(fmt.Sprintf("Total: %d entries, %s hours", len(entries), formatHours(total))))
}

func init() {
	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesAddCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
	entriesCmd.AddCommand(entriesHistoryCmd)

	entriesListCmd.Flags().String("project", "", "Filter by project ID or identifier")
	entriesListCmd.Flags().Int64("contract", 0, "Filter by explicit contract")
	entriesListCmd.Flags().Bool("unassigned", false, "Only entries without an explicit contract")
	entriesListCmd.Flags().String("from", "", "From date (YYYY-MM-DD or 'today')")
	entriesListCmd.Flags().String("to", "", "To date (YYYY-MM-DD or 'today')")

	entriesAddCmd.Flags().Int64("issue", 0, "Issue ID")
	entriesAddCmd.Flags().Int64("contract", 0, "Assign to a contract explicitly")
}
