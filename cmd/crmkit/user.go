package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nebari-dev/crmkit/internal/auth"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"
)

var (
	userEmail    string
	userPassword string
	userAdmin    bool
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users and their access",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user for basic authentication",
	Long: `Create a user. The password is prompted for unless --password is given.

Examples:
  crmkit user create alice
  crmkit user create ops --admin`,
	Args: cobra.ExactArgs(1),
	Run:  runUserCreate,
}

var userGrantCmd = &cobra.Command{
	Use:   "grant <username> <company-id>",
	Short: "Grant a user access to a company",
	Long: `Grant a user a role on a company. Owners and editors may install and
uninstall; viewers may only read the installation status.

Examples:
  crmkit user grant alice <company-id> --role editor`,
	Args: cobra.ExactArgs(2),
	Run:  runUserGrant,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address (default <username>@crmkit.local)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (prompted if omitted)")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "Grant the admin role")
	userGrantCmd.Flags().StringVar(&userRole, "role", "viewer", "Role: owner, editor or viewer")

	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userGrantCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) {
	e := mustOpenEnv()
	defer e.Close()

	password := userPassword
	if password == "" {
		fmt.Print("Password: ")
		passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			exitWithError(fmt.Errorf("failed to read password: %w", err))
		}
		password = string(passBytes)
	}

	user, err := auth.CreateUser(e.store.DB(), args[0], userEmail, password)
	if err != nil {
		exitWithError(err)
	}

	if userAdmin {
		if err := rbac.InitEnforcer(e.store.DB(), slog.Default()); err != nil {
			exitWithError(err)
		}
		if err := rbac.MakeAdmin(user.ID); err != nil {
			exitWithError(fmt.Errorf("failed to grant admin role: %w", err))
		}
	}
	fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
}

func runUserGrant(cmd *cobra.Command, args []string) {
	companyID, err := parseCompanyID(args[1])
	if err != nil {
		exitWithError(err)
	}

	e := mustOpenEnv()
	defer e.Close()

	role, err := rbac.ParseRole(userRole)
	if err != nil {
		exitWithError(err)
	}

	user, err := findUser(e.store.DB(), args[0])
	if err != nil {
		exitWithError(err)
	}
	if _, err := e.store.GetCompany(context.Background(), companyID); err != nil {
		exitWithError(err)
	}

	if err := rbac.InitEnforcer(e.store.DB(), slog.Default()); err != nil {
		exitWithError(err)
	}
	if err := rbac.GrantCompanyAccess(user.ID, companyID, role); err != nil {
		exitWithError(err)
	}
	fmt.Printf("Granted %s %s access to %s\n", user.Username, userRole, companyID)
}

func findUser(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %s not found: %w", username, err)
	}
	return &user, nil
}
