package cli

import (
	"context"
	"fmt"

	"github.com/andy/billhours/internal/domain"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := appInstance.Repos.Users.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if len(users) == 0 {
			fmt.Println("No users found")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-5s %-20s %-30s", "ID", "Login", "Name")))
		for _, u := range users {
			fmt.Printf("%-5d %-20s %-30s\n", u.ID, truncate(u.Login, 20), truncate(u.Name, 30))
		}
		return nil
	},
}

var usersAddCmd = &cobra.Command{
	Use:   "add [login] [name]",
	Short: "Add a new user",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := &domain.User{Login: args[0]}
		if len(args) > 1 {
			u.Name = args[1]
		}

		if err := appInstance.Repos.Users.Create(context.Background(), u); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Println(success("User created (ID: %d)", u.ID))
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage contract categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contract categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		categories, err := appInstance.Repos.Categories.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}

		if len(categories) == 0 {
			fmt.Println("No categories found")
			return nil
		}
		for _, c := range categories {
			fmt.Printf("%-5d %s\n", c.ID, c.Name)
		}
		return nil
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a contract category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := &domain.ContractCategory{Name: args[0]}
		if err := appInstance.Repos.Categories.Create(context.Background(), c); err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}

		fmt.Println(success("Category created (ID: %d)", c.ID))
		return nil
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)

	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesAddCmd)
}
