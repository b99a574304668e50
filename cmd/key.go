// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/keychain"
	"sqlpilot/cli/internal/llm"
	"sqlpilot/cli/internal/terminal"
)

var clearAll bool

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the LLM provider API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the LLM API key in the OS keychain",
	Long: `Prompts for the API key of the configured provider and stores it in the OS
keychain. Environment variables (SQLPILOT_LLM_API_KEY, GROQ_API_KEY,
OPENAI_API_KEY, ANTHROPIC_API_KEY) still take precedence when set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		promptText := "Enter " + appCfg.LLM.Provider + " API key: "
		key, err := terminal.ReadSecret(promptText, os.Stdin)
		if err != nil {
			return err
		}
		if terminal.IsInteractive() {
			terminal.ClearPreviousLines(len(promptText))
		}
		if key == "" {
			return errors.New("API key is required")
		}

		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system.")
			pterm.Println("   Export " + llm.APIKeyEnv(appCfg.LLM.Provider) + " instead.")
			return err
		}
		if err := km.SaveLLMKey(key); err != nil {
			return err
		}
		pterm.Println("✅ API key saved (" + maskKey(key) + ")")
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored LLM API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if clearAll {
			km.ClearAll()
			pterm.Println("✅ API key and database connection have been removed")
			return nil
		}
		km.ClearLLMKey()
		pterm.Println("✅ API key has been removed")
		return nil
	},
}

func init() {
	keyClearCmd.Flags().BoolVar(&clearAll, "all", false, "also remove the stored database connection")
	keyCmd.AddCommand(keySetCmd, keyClearCmd)
	rootCmd.AddCommand(keyCmd)
}

// maskKey keeps only the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return "***" + key[len(key)-4:]
}
