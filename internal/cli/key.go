package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forPelevin/fallacycheck/internal/apperr"
	"github.com/forPelevin/fallacycheck/internal/credentials"
)

func newKeyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored OpenRouter API key",
	}

	setCmd := &cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no key given on stdin")
				}
				key = line
			}
			store, err := credentialStore(e)
			if err != nil {
				return err
			}
			if err := store.Set(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key saved to %s\n", store.Path())
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show which API key is in effect (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v := strings.TrimSpace(e.cfg.OpenRouterAPIKey); v != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (from OPENROUTER_API_KEY)\n", credentials.Mask(v))
				return nil
			}
			store, err := credentialStore(e)
			if err != nil {
				return err
			}
			v, err := store.Get()
			if errors.Is(err, apperr.ErrMissingCredential) {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key configured.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (from %s)\n", credentials.Mask(v), store.Path())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := credentialStore(e)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key cleared.")
			return nil
		},
	}

	cmd.AddCommand(setCmd, showCmd, clearCmd)
	return cmd
}

func credentialStore(e *env) (*credentials.FileStore, error) {
	path := e.cfg.CredentialsFile
	if path == "" {
		p, err := credentials.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return credentials.NewFileStore(path), nil
}
