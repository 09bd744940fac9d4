package cli

import (
	"context"
	"fmt"

	"github.com/andy/billhours/internal/domain"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects and their members",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		projects, err := appInstance.Repos.Projects.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}

		match, _ := cmd.Flags().GetString("match")
		projects = matchProjects(projects, match)

		if len(projects) == 0 {
			fmt.Println("No projects found")
			return nil
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-5s %-20s %-30s %-8s", "ID", "Identifier", "Name", "Parent")))
		for _, p := range projects {
			parent := "-"
			if p.ParentID != nil {
				parent = fmt.Sprintf("%d", *p.ParentID)
			}
			fmt.Printf("%-5d %-20s %-30s %-8s\n", p.ID, truncate(p.Identifier, 20), truncate(p.Name, 30), parent)
		}

		fmt.Printf("\nTotal: %d project(s)\n", len(projects))
		return nil
	},
}

var projectsAddCmd = &cobra.Command{
	Use:   "add [identifier] [name]",
	Short: "Add a new project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p := domain.NewProject(args[0], args[1])
		if cmd.Flags().Changed("parent") {
			parentArg, _ := cmd.Flags().GetString("parent")
			parent, err := resolveProject(ctx, appInstance.Repos.Projects, parentArg)
			if err != nil {
				return err
			}
			p.ParentID = &parent.ID
		}

		if err := appInstance.Repos.Projects.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		fmt.Println(success("Project created (ID: %d)", p.ID))
		return nil
	},
}

var projectsMembersCmd = &cobra.Command{
	Use:   "members [project]",
	Short: "List project members, including sub-projects with --all",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		p, err := resolveProject(ctx, appInstance.Repos.Projects, args[0])
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		var members []*domain.User
		if all {
			members, err = appInstance.Repos.Projects.MembersWithSubprojects(ctx, p.ID)
		} else {
			members, err = appInstance.Repos.Projects.Members(ctx, p.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}

		if len(members) == 0 {
			fmt.Println("No members")
			return nil
		}
		for _, u := range members {
			fmt.Printf("%-5d %-20s %s\n", u.ID, u.Login, u.Name)
		}
		return nil
	},
}

var projectsJoinCmd = &cobra.Command{
	Use:   "join [project] [user]",
	Short: "Add a user to a project",
	Args:  cobra.ExactArgs(2),
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

		if err := appInstance.Repos.Projects.AddMember(ctx, p.ID, u.ID); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}

		fmt.Println(success("%s joined %s", u.Login, p.Identifier))
		return nil
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	projectsCmd.AddCommand(projectsMembersCmd)
	projectsCmd.AddCommand(projectsJoinCmd)

	projectsListCmd.Flags().String("match", "", "Only show projects whose identifier or name matches (e.g. 'acme*')")
	projectsAddCmd.Flags().String("parent", "", "Parent project ID or identifier")
	projectsMembersCmd.Flags().Bool("all", false, "Include members of sub-projects")
}
