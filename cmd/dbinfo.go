// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlpilot/cli/internal/dsn"
)

// dbinfoCmd shows which database the pipeline will run against, password masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show current database connection string",
	Long: `The dbinfo command displays the database connection string (DSN) that ask,
exec and schema will use, together with where it was found. The password is
replaced with *** so the output is safe to share.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		sec, err := resolveDSN()
		if err != nil {
			pterm.Println("⚠️  No database connection configured")
			pterm.Println("   Please run: sqlpilot connect")
			return nil
		}

		pterm.Println("Using DSN from " + sec.Source)
		pterm.Println()

		lines := []string{maskPassword(sec.Value)}
		if info, err := dsn.ParseInfo(sec.Value); err == nil {
			lines = append(lines, "", fmt.Sprintf("Dialect:  %s", info.Type.Dialect()))
			if info.Host != "" {
				lines = append(lines, fmt.Sprintf("Host:     %s", strings.TrimSuffix(info.Host+":"+info.Port, ":")))
			}
			if info.Database != "" {
				lines = append(lines, fmt.Sprintf("Database: %s", info.Database))
			}
		}

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connection")).
			WithPadding(1).
			Println(strings.Join(lines, "\n"))
		pterm.Println()
		pterm.Println("To update this connection, run: sqlpilot connect")
		pterm.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

// maskPassword replaces the password in a DSN with asterisks and keeps the user visible.
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	// user:pass@tcp(host)/db parses with the user as scheme and no userinfo
	if err != nil || u.Scheme == "" || u.User == nil || u.Opaque != "" {
		return maskPasswordSimple(raw)
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "xxx")
	// url escapes '*' in userinfo, so substitute after encoding
	return strings.Replace(u.String(), ":xxx@", ":***@", 1)
}

// maskPasswordSimple handles DSNs that are not URLs, such as user:pass@tcp(host)/db.
func maskPasswordSimple(raw string) string {
	at := strings.Index(raw, "@")
	if at == -1 {
		return raw
	}
	colon := strings.LastIndex(raw[:at], ":")
	if colon == -1 {
		return raw
	}
	if p := strings.Index(raw, "://"); p != -1 && colon < p+3 {
		return raw
	}
	return raw[:colon+1] + "***" + raw[at:]
}
