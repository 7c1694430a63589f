// CISP wallet command-line client.
//
// Usage:
//
//	cisp-cli [--rpc <url>] <command> [flags]
//	cisp-cli help
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/cisp-wallet/config"
	"github.com/Klingon-tech/cisp-wallet/internal/rpc"
	"github.com/Klingon-tech/cisp-wallet/internal/rpcclient"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := fmt.Sprintf("http://127.0.0.1:%d", config.DefaultRPCPort)
	timeout := rpcclient.DefaultTimeout

	// Scan for --rpc and --timeout before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--timeout" && len(args) > 1:
			timeout = parseTimeout(args[1])
			args = args[2:]
		case strings.HasPrefix(args[0], "--timeout="):
			timeout = parseTimeout(args[0][len("--timeout="):])
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.NewWithTimeout(rpcURL, timeout)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(client, cmdArgs)
	case "password":
		cmdPassword(client, cmdArgs)
	case "mnemonic":
		cmdMnemonic(client, cmdArgs)
	case "version", "--version":
		fmt.Printf("cisp-cli %s\n", config.Version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: cisp-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:%d)
  --timeout <dur>     Per-request timeout (default: %s)

Commands:
  wallet create --name <n>        Create a new wallet and show its recovery phrase
  wallet restore --name <n> [--mnemonic "..."]
                                  Restore a wallet from its recovery phrase
  wallet verify <address>         Check a wallet password
  wallet export <address> [--qr <file.png>]
                                  Show the recovery phrase (optionally as a QR image)
  wallet list                     List wallets
  wallet info <address>           Show wallet details
  wallet connect <address>        Make a wallet the active session wallet
  wallet disconnect               Clear the active session wallet
  wallet current                  Show the active session wallet
  wallet passwd <address>         Change a wallet password
  wallet delete <address> [--yes] Delete a wallet
  wallet qr <address> --out <file.png>
                                  Save the address as a QR image

  password check                  Check a password against the node's policy
  mnemonic check [--mnemonic "..."]
                                  Validate a recovery phrase and show its address

  version                         Show version
  help                            Show this help
`, config.DefaultRPCPort, rpcclient.DefaultTimeout)
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		fatal("invalid --timeout %q", s)
	}
	return d
}

// ── password / mnemonic ─────────────────────────────────────────────────

func cmdPassword(client *rpcclient.Client, args []string) {
	if len(args) < 1 || args[0] != "check" {
		fatal("Usage: cisp-cli password check")
	}

	password, err := readPassword("Password to check: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	result, err := client.CheckPassword(context.Background(), string(password))
	if err != nil {
		fatalRPC("check password", err)
	}
	if result.Valid {
		fmt.Println("Password meets the policy.")
		return
	}
	fmt.Println("Password rejected:")
	for _, v := range result.Violations {
		fmt.Printf("  - %s\n", v)
	}
	os.Exit(1)
}

func cmdMnemonic(client *rpcclient.Client, args []string) {
	if len(args) < 1 || args[0] != "check" {
		fatal("Usage: cisp-cli mnemonic check [--mnemonic \"...\"]")
	}
	mnemonic := mnemonicFlag("mnemonic check", args[1:])

	result, err := client.ValidateMnemonic(context.Background(), mnemonic)
	if err != nil {
		fatalRPC("validate mnemonic", err)
	}
	if result.Valid {
		fmt.Printf("Valid %d-word recovery phrase.\n", result.WordCount)
		fmt.Printf("Address: %s\n", result.Address)
		return
	}
	fmt.Printf("Invalid recovery phrase: %s\n", result.Reason)
	os.Exit(1)
}

// ── Helpers ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// readNewPassword prompts twice and requires both entries to match.
func readNewPassword(prompt string) string {
	password, err := readPassword(prompt)
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return string(password)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("marshal result: %v", err)
	}
	fmt.Println(string(data))
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// fatalRPC prints a server error with any structured detail it carries.
func fatalRPC(action string, err error) {
	var rpcErr *rpcclient.RPCError
	if !errors.As(err, &rpcErr) {
		fatal("%s: %v", action, err)
	}

	switch rpcErr.Code {
	case rpc.CodeAuthFailed:
		fatal("%s: incorrect password", action)
	case rpc.CodeNotFound:
		fatal("%s: no wallet with that address", action)
	case rpc.CodeDuplicate:
		fatal("%s: that wallet already exists", action)
	case rpc.CodeConflict:
		fatal("%s: wallet changed concurrently, try again", action)
	}

	msg := rpcErr.Message
	if len(rpcErr.Data) > 0 {
		var violations []string
		if json.Unmarshal(rpcErr.Data, &violations) == nil && len(violations) > 0 {
			msg = "password rejected: " + strings.Join(violations, ", ")
		}
	}
	fatal("%s: %s", action, msg)
}
