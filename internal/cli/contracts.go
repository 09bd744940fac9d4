package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Manage contracts, budgets and locks",
}

var contractsListCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "Show a project's contracts with their budgets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProject(ctx, appInstance.Repos.Projects, args[0])
		if err != nil {
			return err
		}

		overview, err := appInstance.ReportService.ProjectOverview(ctx, p.ID, overviewOptions(cmd))
		if err != nil {
			return fmt.Errorf("failed to build overview: %w", err)
		}

		printOverview(overview)
		return nil
	},
}

var contractsAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Show the contracts of every project",
	RunE: func(cmd *cobra.Command, args []string) error {
		overview, err := appInstance.ReportService.AllProjects(context.Background(), overviewOptions(cmd))
		if err != nil {
			return fmt.Errorf("failed to build overview: %w", err)
		}

		printOverview(overview)
		return nil
	},
}

var contractsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a contract with its entries, expenses and invoices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		detail, err := appInstance.ContractService.Show(ctx, id)
		if err != nil {
			return err
		}

		c := detail.Contract
		state := "open"
		if c.IsLocked {
			state = lockedStyle.Render("locked")
		}

		fmt.Println(titleStyle.Render(detail.Title))
		fmt.Printf("Project: %s  Type: %s  State: %s\n", detail.Project.Identifier, c.Type(), state)
		fmt.Printf("Range:   %s .. %s\n", domain.FormatDate(c.StartDate), formatDate(c.EndDate))
		if c.Description != "" {
			fmt.Println(mutedStyle.Render(c.Description))
		}
		fmt.Println()
		printSummary(detail.Summary)

		if len(detail.Issues) > 0 {
			fmt.Println()
			fmt.Println(headerStyle.Render(fmt.Sprintf("%-10s %10s %12s", "Issue", "Hours", "Amount")))
			for _, is := range detail.Issues {
				issue := "-"
				if is.IssueID != nil {
					issue = fmt.Sprintf("#%d", *is.IssueID)
				}
				fmt.Printf("%-10s %10s %12s\n", issue, formatHours(is.Hours), formatMoney(is.Amount))
			}
		}

		if len(detail.Entries) > 0 {
			fmt.Println()
			printEntries(detail.Entries)
		}

		if len(detail.Expenses) > 0 {
			fmt.Println()
			fmt.Println(headerStyle.Render("Expenses"))
			for _, e := range detail.Expenses {
				fmt.Printf("  %-5d %s  %-25s %12s\n", e.ID, domain.FormatDate(e.Date), truncate(e.Name, 25), formatMoney(e.Amount))
			}
		}

		if len(detail.Invoices) > 0 {
			fmt.Println()
			fmt.Println(headerStyle.Render("Invoices"))
			for _, i := range detail.Invoices {
				fmt.Printf("  %-5d %s  %-25s %12s\n", i.ID, domain.FormatDate(i.Date), truncate(i.Number, 25), formatMoney(i.Amount))
			}
		}

		if len(detail.Members) > 0 {
			fmt.Println()
			fmt.Println(headerStyle.Render(fmt.Sprintf("  %-15s %8s %10s %12s", "Member", "Hours", "Rate", "Amount")))
			for _, m := range detail.Members {
				rate := formatMoney(m.Rate)
				if m.Override {
					rate += "*"
				}
				fmt.Printf("  %-15s %8s %10s %12s\n", truncate(m.User.Login, 15), formatHours(m.Hours), rate, formatMoney(m.Amount))
			}
			fmt.Println(mutedStyle.Render("  * contract-specific rate"))
		}
		return nil
	},
}

var contractsBillingCmd = &cobra.Command{
	Use:   "billing [id]",
	Short: "Show the budget figures of a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		summary, err := appInstance.ContractService.Billing(context.Background(), id)
		if err != nil {
			return err
		}

		printSummary(summary)
		return nil
	},
}

var contractsAddCmd = &cobra.Command{
	Use:   "add [project]",
	Short: "Add a contract to a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProject(ctx, appInstance.Repos.Projects, args[0])
		if err != nil {
			return err
		}

		startArg, _ := cmd.Flags().GetString("start")
		start, err := parseDate(startArg, now())
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}

		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return err
		}
		rate, err := amountFlag(cmd, "rate")
		if err != nil {
			return err
		}

		c := domain.NewContract(p.ID, start, amount, rate)
		if err := applyContractFlags(ctx, cmd, c); err != nil {
			return err
		}

		rates, err := rateFlags(ctx, cmd)
		if err != nil {
			return err
		}

		if err := appInstance.ContractService.CreateContract(ctx, c, rates); err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}

		fmt.Println(success("Contract created (ID: %d, #%03d)", c.ID, c.ProjectContractID))
		return nil
	},
}

var contractsEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		c, err := appInstance.ContractService.GetContract(ctx, id)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("start") {
			startArg, _ := cmd.Flags().GetString("start")
			start, err := parseDate(startArg, now())
			if err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
			c.StartDate = start
		}
		if cmd.Flags().Changed("amount") {
			if c.PurchaseAmount, err = amountFlag(cmd, "amount"); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("rate") {
			if c.HourlyRate, err = amountFlag(cmd, "rate"); err != nil {
				return err
			}
		}
		if err := applyContractFlags(ctx, cmd, c); err != nil {
			return err
		}

		rates, err := rateFlags(ctx, cmd)
		if err != nil {
			return err
		}

		if err := appInstance.ContractService.UpdateContract(ctx, c, rates); err != nil {
			return fmt.Errorf("failed to update contract: %w", err)
		}

		fmt.Println(success("Contract updated (ID: %d)", c.ID))
		return nil
	},
}

var contractsCopyCmd = &cobra.Command{
	Use:   "copy [id]",
	Short: "Start the next contract of a series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		cp, err := appInstance.ContractService.CopyContract(context.Background(), id)
		if err != nil {
			return fmt.Errorf("failed to copy contract: %w", err)
		}

		fmt.Println(success("Contract copied (ID: %d, #%03d, %s .. %s)",
			cp.ID, cp.ProjectContractID, domain.FormatDate(cp.StartDate), formatDate(cp.EndDate)))
		return nil
	},
}

var contractsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a contract; its entries return to the default pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("yes")
		if !force && !confirmPrompt(fmt.Sprintf("Delete contract %d with its rates, expenses and invoices?", id)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := appInstance.ContractService.DeleteContract(context.Background(), id); err != nil {
			if errors.Is(err, service.ErrContractLocked) {
				return fmt.Errorf("contract %d is locked, unlock it first", id)
			}
			return fmt.Errorf("failed to delete contract: %w", err)
		}

		fmt.Println(success("Contract deleted (ID: %d)", id))
		return nil
	},
}

var contractsLockCmd = &cobra.Command{
	Use:   "lock [id]",
	Short: "Freeze a contract's entries and totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		if err := appInstance.ContractService.Lock(context.Background(), id); err != nil {
			return err
		}

		fmt.Println(success("Contract %d locked", id))
		return nil
	},
}

var contractsUnlockCmd = &cobra.Command{
	Use:   "unlock [id]",
	Short: "Unfreeze a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "contract")
		if err != nil {
			return err
		}

		result, err := appInstance.ContractService.Unlock(context.Background(), id)
		if err != nil {
			return err
		}

		fmt.Println(success("Contract %d unlocked", id))
		if result.Added() > 0 {
			fmt.Println(warning("%d time entries (%s hours) were added to the contract by unlocking", result.Added(), formatHours(result.HoursAdded())))
		}
		return nil
	},
}

var contractsAssignCmd = &cobra.Command{
	Use:   "assign [contract|none] [entry ids...]",
	Short: "Move time entries to a contract, or detach them with 'none'",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var target *int64
		if args[0] != "none" {
			id, err := parseID(args[0], "contract")
			if err != nil {
				return err
			}
			target = &id
		}

		entryIDs, err := parseIDs(args[1:], "entry")
		if err != nil {
			return err
		}

		result, err := appInstance.ContractService.AssignEntries(context.Background(), entryIDs, target)
		if err != nil {
			return err
		}

		if result.Partial() {
			fmt.Println(warning("Only %d of %d time entries were updated; locked contracts keep their entries", result.Succeeded, result.Attempted))
		} else {
			fmt.Println(success("%d time entries updated", result.Succeeded))
		}
		if result.HoursOver {
			fmt.Println(warning("The contract now bills more hours than it has budget for"))
		}
		return nil
	},
}

var contractsDefaultCmd = &cobra.Command{
	Use:   "default [project]",
	Short: "List the time entries no contract claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProject(ctx, appInstance.Repos.Projects, args[0])
		if err != nil {
			return err
		}

		pageNum, _ := cmd.Flags().GetInt("page")
		perPage, _ := cmd.Flags().GetInt("per-page")
		if perPage <= 0 {
			perPage = appInstance.Config.Display.PageSize
		}

		page, err := appInstance.ReportService.DefaultEntries(ctx, p.ID, pageNum, perPage)
		if err != nil {
			return err
		}

		if page.Total == 0 {
			fmt.Println("Every time entry belongs to a contract")
			return nil
		}

		printEntries(page.Entries)
		fmt.Printf("\nPage %d/%d, %d entries, %s hours unclaimed\n", page.Page, page.Pages, page.Total, formatHours(page.Hours))
		return nil
	},
}

var contractsRatesCmd = &cobra.Command{
	Use:   "rates [project]",
	Short: "Show the rate each member bills at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProject(ctx, appInstance.Repos.Projects, args[0])
		if err != nil {
			return err
		}

		var contractID *int64
		if cmd.Flags().Changed("contract") {
			id, _ := cmd.Flags().GetInt64("contract")
			contractID = &id
		}

		if cmd.Flags().Changed("set") {
			if contractID == nil {
				return fmt.Errorf("--set needs --contract")
			}
			rates, err := rateFlagsNamed(ctx, cmd, "set")
			if err != nil {
				return err
			}
			if err := appInstance.ContractService.ApplyRates(ctx, *contractID, rates); err != nil {
				return fmt.Errorf("failed to apply rates: %w", err)
			}
		}

		rows, err := appInstance.ContractService.ContractorRates(ctx, p.ID, contractID)
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s %12s", "User", "Rate")))
		for _, r := range rows {
			fmt.Printf("%-20s %12s\n", truncate(r.User.Login, 20), formatMoney(r.Rate))
		}
		return nil
	},
}

var contractsForEntryCmd = &cobra.Command{
	Use:   "for-entry [entry id]",
	Short: "Show which contract a single time entry falls under",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "entry")
		if err != nil {
			return err
		}

		c, err := appInstance.ContractService.ContractForTimeEntry(context.Background(), id)
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Println("No contract covers this entry")
			return nil
		}

		fmt.Printf("Contract %d (#%03d) %s\n", c.ID, c.ProjectContractID, c.Title)
		return nil
	},
}

func overviewOptions(cmd *cobra.Command) service.OverviewOptions {
	opts := service.OverviewOptions{}
	opts.FixedTab, _ = cmd.Flags().GetBool("fixed")
	if cmd.Flags().Changed("show-locked") {
		show, _ := cmd.Flags().GetBool("show-locked")
		opts.ShowLocked = &show
	}
	return opts
}

func printOverview(o *service.Overview) {
	if o.ShowTabs {
		tab := "hourly"
		if o.ShowFixed {
			tab = "fixed"
		}
		fmt.Println(mutedStyle.Render(fmt.Sprintf("Showing %s contracts (use --fixed to switch)", tab)))
	}

	if len(o.Contracts) == 0 {
		fmt.Println("No contracts")
	} else {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-5s %-28s %-10s %-10s %12s %10s %12s %10s",
			"ID", "Contract", "Start", "End", "Purchased", "Hours", "Remaining", "Hrs left")))
		for _, row := range o.Contracts {
			c, s := row.Contract, row.Summary
			line := fmt.Sprintf("%-5d %-28s %-10s %-10s %12s %10s %12s %10s",
				c.ID,
				truncate(row.Title, 28),
				domain.FormatDate(c.StartDate),
				formatDate(c.EndDate),
				formatMoney(c.PurchaseAmount),
				formatHours(s.HoursSpent),
				formatMoney(s.AmountRemaining),
				formatOptional(s.HoursRemaining, formatHours),
			)
			switch {
			case s.HasWarning(billing.WarnOverBudget):
				line = errorStyle.Render(line)
			case c.IsLocked:
				line = lockedStyle.Render(line)
			}
			fmt.Println(line)
		}
	}

	for _, d := range o.Defaults {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("      %-28s %d entries, %s hours unclaimed",
			projectLabel(o, d.ProjectID)+" default", d.Entries, formatHours(d.Hours))))
	}

	if o.HiddenLocked > 0 {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d locked contract(s) hidden, use --show-locked", o.HiddenLocked)))
	}

	t := o.Totals
	fmt.Println()
	fmt.Println(boxStyle.Render(strings.Join([]string{
		fmt.Sprintf("Purchased:              %12s", formatMoney(t.Purchased)),
		fmt.Sprintf("  fixed:                %12s", formatMoney(t.FixedPurchased)),
		fmt.Sprintf("  hourly:               %12s", formatMoney(t.HourlyPurchased)),
		fmt.Sprintf("Hourly hours purchased: %12s", formatHours(t.HourlyHoursPurchased)),
		fmt.Sprintf("Hourly amount left:     %12s", formatMoney(t.HourlyAmountRemaining)),
		fmt.Sprintf("Hourly hours left:      %12s", formatHours(t.HourlyHoursRemaining)),
	}, "\n")))
	for _, w := range describeWarnings(t.Warnings) {
		fmt.Println(warning("%s (excluded from the hour totals)", w))
	}
}

func projectLabel(o *service.Overview, projectID int64) string {
	for _, p := range o.Projects {
		if p.ID == projectID {
			return p.Identifier
		}
	}
	return fmt.Sprintf("project %d", projectID)
}

func printSummary(s *billing.Summary) {
	lines := []string{
		fmt.Sprintf("Hours purchased:  %12s", formatOptional(s.HoursPurchased, formatHours)),
		fmt.Sprintf("Hours spent:      %12s", formatHours(s.HoursSpent)),
		fmt.Sprintf("Hours remaining:  %12s", formatOptional(s.HoursRemaining, formatHours)),
		fmt.Sprintf("Billable total:   %12s", formatMoney(s.BillableTotal)),
		fmt.Sprintf("Expenses:         %12s", formatMoney(s.ExpensesTotal)),
		fmt.Sprintf("Budget:           %12s", formatMoney(s.BillableLimit)),
		fmt.Sprintf("Amount remaining: %12s", formatMoney(s.AmountRemaining)),
		fmt.Sprintf("Invoiced:         %12s", formatMoney(s.InvoicesTotal)),
		fmt.Sprintf("Effective rate:   %12s", formatMoney(s.EffectiveRate)),
	}
	if s.Overrun.IsPositive() {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Over budget by:   %12s", formatMoney(s.Overrun))))
	}
	fmt.Println(boxStyle.Render(strings.Join(lines, "\n")))

	for _, w := range describeWarnings(s.Warnings) {
		fmt.Println(warning("%s", w))
	}
}

func applyContractFlags(ctx context.Context, cmd *cobra.Command, c *domain.Contract) error {
	flags := cmd.Flags()

	if flags.Changed("end") {
		endArg, _ := flags.GetString("end")
		if endArg == "" || endArg == "none" {
			c.EndDate = nil
		} else {
			end, err := parseDate(endArg, now())
			if err != nil {
				return fmt.Errorf("invalid end date: %w", err)
			}
			c.EndDate = &end
		}
	}
	if flags.Changed("agreement") {
		arg, _ := flags.GetString("agreement")
		d, err := parseDate(arg, now())
		if err != nil {
			return fmt.Errorf("invalid agreement date: %w", err)
		}
		c.AgreementDate = &d
	}
	if flags.Changed("title") {
		c.Title, _ = flags.GetString("title")
	}
	if flags.Changed("description") {
		c.Description, _ = flags.GetString("description")
	}
	if flags.Changed("type") {
		t, _ := flags.GetString("type")
		c.SetType(domain.ContractType(t))
	}
	if flags.Changed("recurring") {
		f, _ := flags.GetString("recurring")
		c.RecurringFrequency = domain.RecurringFrequency(f)
	}
	if flags.Changed("category") {
		name, _ := flags.GetString("category")
		categories, err := appInstance.Repos.Categories.List(ctx)
		if err != nil {
			return err
		}
		c.CategoryID = nil
		for _, cat := range categories {
			if strings.EqualFold(cat.Name, name) {
				c.CategoryID = &cat.ID
			}
		}
		if c.CategoryID == nil && name != "" {
			return fmt.Errorf("category %q not found", name)
		}
	}
	if flags.Changed("contract-url") {
		c.ContractURL, _ = flags.GetString("contract-url")
	}
	if flags.Changed("invoice-url") {
		c.InvoiceURL, _ = flags.GetString("invoice-url")
	}
	return nil
}

func amountFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	v, _ := cmd.Flags().GetString(name)
	return parseAmount(v, name)
}

func rateFlags(ctx context.Context, cmd *cobra.Command) (map[int64]decimal.Decimal, error) {
	return rateFlagsNamed(ctx, cmd, "user-rate")
}

func rateFlagsNamed(ctx context.Context, cmd *cobra.Command, name string) (map[int64]decimal.Decimal, error) {
	values, _ := cmd.Flags().GetStringSlice(name)
	return parseRates(ctx, appInstance.Repos.Users, values)
}

func addContractFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "today", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "End date (YYYY-MM-DD, or 'none')")
	cmd.Flags().String("agreement", "", "Agreement date (YYYY-MM-DD)")
	cmd.Flags().String("amount", "0", "Purchase amount")
	cmd.Flags().String("rate", "0", "Default hourly rate")
	cmd.Flags().String("type", "hourly", "hourly, fixed or recurring")
	cmd.Flags().String("recurring", "", "not_recurring, monthly, yearly or completed")
	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("description", "", "Description")
	cmd.Flags().String("category", "", "Category name")
	cmd.Flags().String("contract-url", "", "Link to the signed contract")
	cmd.Flags().String("invoice-url", "", "Link to the invoice")
	cmd.Flags().StringSlice("user-rate", nil, "Per-user rate as login=rate (repeatable)")
}

func init() {
	contractsCmd.AddCommand(contractsListCmd)
	contractsCmd.AddCommand(contractsAllCmd)
	contractsCmd.AddCommand(contractsShowCmd)
	contractsCmd.AddCommand(contractsBillingCmd)
	contractsCmd.AddCommand(contractsAddCmd)
	contractsCmd.AddCommand(contractsEditCmd)
	contractsCmd.AddCommand(contractsCopyCmd)
	contractsCmd.AddCommand(contractsDeleteCmd)
	contractsCmd.AddCommand(contractsLockCmd)
	contractsCmd.AddCommand(contractsUnlockCmd)
	contractsCmd.AddCommand(contractsAssignCmd)
	contractsCmd.AddCommand(contractsDefaultCmd)
	contractsCmd.AddCommand(contractsRatesCmd)
	contractsCmd.AddCommand(contractsForEntryCmd)

	for _, cmd := range []*cobra.Command{contractsListCmd, contractsAllCmd} {
		cmd.Flags().Bool("fixed", false, "Show fixed-price contracts")
		cmd.Flags().Bool("show-locked", false, "Include locked contracts")
	}

	addContractFlags(contractsAddCmd)
	addContractFlags(contractsEditCmd)

	contractsDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	contractsDefaultCmd.Flags().Int("page", 1, "Page number")
	contractsDefaultCmd.Flags().Int("per-page", 0, "Entries per page (default from config)")

	contractsRatesCmd.Flags().Int64("contract", 0, "Contract ID (omit for the project defaults)")
	contractsRatesCmd.Flags().StringSlice("set", nil, "Set rates as login=rate before listing")
}
