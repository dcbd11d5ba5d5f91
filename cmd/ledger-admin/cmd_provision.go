package main

import (
	"fmt"

	"github.com/spf13/cobra"

	applog "spendtrace/internal/log"
	"spendtrace/internal/provision"
)

var (
	ownerEmail string
	ownerPhone string
	folderID   string
)

// provisionCmd creates a ledger for a new user
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create a ledger spreadsheet for a new user",
	Long: `Creates a spreadsheet titled "SpendTrace Ledger: <phone>", moves it into the
shared Drive folder when one is configured, transfers ownership to the user
and writes the header row.

Example:
  ledger-admin provision --email user@example.com --phone +923001234567`,
	Args: cobra.NoArgs,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&ownerEmail, "email", "", "Google account that will own the ledger")
	provisionCmd.Flags().StringVar(&ownerPhone, "phone", "", "WhatsApp number of the user")
	provisionCmd.Flags().StringVar(&folderID, "folder", "", "Drive folder id (defaults to GOOGLE_DRIVE_FOLDER_ID)")
	_ = provisionCmd.MarkFlagRequired("email")
	_ = provisionCmd.MarkFlagRequired("phone")
}

func runProvision(cmd *cobra.Command, args []string) error {
	folder := folderID
	if folder == "" {
		folder = cfg.GoogleDriveFolderID
	}
	svc := provision.NewService(store.Backend, engine, folder, logger.WithComponent(applog.ComponentProvision))

	id, err := svc.CreateLedgerForUser(cmd.Context(), ownerEmail, ownerPhone)
	if err != nil {
		if id != "" {
			return fmt.Errorf("ledger %s created but not finished: %w", id, err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", id)
	fmt.Fprintf(cmd.ErrOrStderr(), "Add %s=%s to LEDGER_DIRECTORY to route this user's notes.\n", ownerPhone, id)
	return nil
}
