package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskflow/internal/database"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
	"github.com/yukikurage/taskflow/internal/services"
)

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff accounts",
	}
	cmd.AddCommand(staffCreateCmd())
	return cmd
}

// staffCreateCmd seeds accounts, the first admin in particular, since the
// HTTP route for account creation is admin only.
func staffCreateCmd() *cobra.Command {
	var input services.CreateStaffInput
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Connect(cfg); err != nil {
				return err
			}

			input.Role = models.StaffRole(role)
			authService := services.NewAuthService(repository.NewStaffRepository(database.GetDB()))
			staff, err := authService.CreateStaff(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("create staff: %w", err)
			}

			fmt.Printf("Created %s %s (%s)\n", staff.Role, staff.Email, staff.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Email, "email", "", "login email")
	cmd.Flags().StringVar(&input.Password, "password", "", "login password")
	cmd.Flags().StringVar(&role, "role", string(models.RoleStaff), "admin or staff")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
