package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/maths-quiz/internal/auth"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Topic administration (requires the admin password)",
	}
	cmd.AddCommand(newAdminLoginCmd(a), newAdminImportCmd(a), newHashPasswordCmd(a))
	return cmd
}

// readPassword returns the --password value or prompts on stderr and reads one line of input.
func (a *app) readPassword(password string) (string, error) {
	if password == "" {
		fmt.Fprint(a.opts.Err, "Password: ")
		line, err := bufio.NewReader(a.opts.In).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func newHashPasswordCmd(a *app) *cobra.Command {
	var flagPassword string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash to configure as ADMIN_PASSWORD_HASH on the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword(flagPassword)
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagPassword, "password", "", "Password to hash (read from stdin when omitted)")
	return cmd
}

func newAdminLoginCmd(a *app) *cobra.Command {
	var flagPassword string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange the admin password for a token (export it as MATHSQUIZ_ADMIN_TOKEN)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword(flagPassword)
			if err != nil {
				return err
			}

			tok, err := a.api.Login(cmd.Context(), password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			a.logger.Debug().Time("expires_at", tok.ExpiresAt).Msg("admin token issued")
			fmt.Fprintln(a.out(), tok.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagPassword, "password", "", "Admin password (read from stdin when omitted)")
	return cmd
}

func newAdminImportCmd(a *app) *cobra.Command {
	var newName string
	cmd := &cobra.Command{
		Use:   "import [TOPIC_ID] FILE",
		Short: "Import questions from a CSV file into a topic, or into a new topic with --new",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var topicID, path string
			switch {
			case newName != "" && len(args) == 1:
				path = args[0]
			case newName == "" && len(args) == 2:
				topicID, path = args[0], args[1]
			default:
				return errors.New("give TOPIC_ID FILE, or --new NAME FILE")
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			res, err := a.api.ImportCSV(cmd.Context(), topicID, newName, f)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			verb := "Updated"
			if res.Created {
				verb = "Created"
			}
			fmt.Fprintf(a.out(), "%s %s (%s): %d added, %d skipped, %d questions total\n",
				verb, res.Topic.Name, res.Topic.ID, res.Added, res.Skipped, len(res.Topic.Questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&newName, "new", "", "Create a new topic with this name")
	return cmd
}
