package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

var generateSessionKeyCmd = &cobra.Command{
	Use:   "generate-session-key",
	Short: "Generate a random session key",
	Long: `Generate a random key to sign session cookies.

Add the generated key to your configuration file as session_key
or export it as GRADEBOOK_SESSION_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := generateSessionKey()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Generated session key:")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "session_key: %q\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateSessionKeyCmd)
}

func generateSessionKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
