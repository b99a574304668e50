// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors explains network failures to the LLM provider or the
// database in user-friendly terms.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"sqlpilot/cli/internal/logging"
)

// Category is the detected kind of network failure.
type Category int

const (
	CategoryNone Category = iota
	CategoryTimeout
	CategoryDNS
	CategoryRefused
	CategoryTLS
	CategoryServer
	CategoryGeneric
)

// Describe prints troubleshooting hints for err and returns it wrapped.
// service names the remote side ("the database", "groq"); context says what
// was being done ("verifying connection"). Non-network errors are returned
// unchanged without output.
func Describe(err error, service, context string) error {
	if err == nil {
		return nil
	}
	cat := Classify(err)
	if cat == CategoryNone {
		return err
	}
	displayErrorMessage(cat, err, service, context)
	return fmt.Errorf("network error: %w", err)
}

// Classify detects the failure category of err.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	errStr := err.Error()
	switch {
	case isTimeoutError(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isSSLError(errStr):
		return CategoryTLS
	case isServerError(errStr):
		return CategoryServer
	case isNetError(err):
		return CategoryGeneric
	default:
		return CategoryNone
	}
}

func displayErrorMessage(cat Category, err error, service, context string) {
	switch cat {
	case CategoryTimeout:
		showTimeoutError(service, context)
	case CategoryDNS:
		showDNSError(service, context)
	case CategoryRefused:
		showConnectionRefusedError(service, context)
	case CategoryTLS:
		showSSLError(service, context)
	case CategoryServer:
		showServerError(service, context)
	default:
		showGenericError(service, context, err.Error())
	}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such host")
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "tls:") ||
		strings.Contains(lower, "x509") ||
		strings.Contains(lower, "certificate") ||
		strings.Contains(lower, "handshake")
}

// isServerError checks if the error indicates a server-side problem (5xx errors).
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, code := range []string{"http 500", "http 502", "http 503", "http 504", "http 529"} {
		if strings.Contains(lower, code) {
			return true
		}
	}
	return strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "overloaded")
}

func isNetError(err error) bool {
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

func showTimeoutError(service, context string) {
	pterm.Printf("⏱️  Timed out reaching %s while %s\n", service, context)
	pterm.Println()
	pterm.Println("The remote side took too long to respond. This could mean:")
	pterm.Println("  • Slow or unstable network connection")
	pterm.Println("  • The service is under heavy load")
	pterm.Println("  • A firewall is silently dropping the connection")
	pterm.Println()
	pterm.Println("Please try again in a few moments.")
	pterm.Println()
}

func showDNSError(service, context string) {
	pterm.Printf("🌐 Cannot resolve the address of %s while %s\n", service, context)
	pterm.Println()
	pterm.Println("Please check:")
	pterm.Println("  • The host name in your DSN or llm.base_url")
	pterm.Println("  • Your internet connection and DNS settings")
	pterm.Println()
}

func showConnectionRefusedError(service, context string) {
	pterm.Printf("🚫 Connection to %s refused while %s\n", service, context)
	pterm.Println()
	pterm.Println("Nothing is accepting connections at that address. This could mean:")
	pterm.Println("  • The database server is not running")
	pterm.Println("  • Wrong host or port")
	pterm.Println("  • A firewall is blocking the port")
	pterm.Println()
}

func showSSLError(service, context string) {
	pterm.Printf("🔒 Secure connection to %s failed while %s\n", service, context)
	pterm.Println()
	pterm.Println("Try:")
	pterm.Println("  • Checking your system date and time")
	pterm.Println("  • Adjusting sslmode in the DSN (e.g. sslmode=require or disable)")
	pterm.Println("  • Verifying network proxy settings")
	pterm.Println()
}

func showServerError(service, context string) {
	pterm.Printf("⚠️  %s reported a server error while %s\n", service, context)
	pterm.Println()
	pterm.Println("This is not a problem with your setup. Please try again in a few minutes.")
	pterm.Println()
}

func showGenericError(service, context, errDetails string) {
	pterm.Printf("❌ Cannot reach %s while %s\n", service, context)
	pterm.Println()
	pterm.Println("Please check your network connection and firewall settings.")
	pterm.Println()

	if errDetails != "" {
		shortErr := logging.Mask(errDetails)
		if len(shortErr) > 100 {
			shortErr = shortErr[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", shortErr)
		pterm.Println()
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
