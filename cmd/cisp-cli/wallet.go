package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Klingon-tech/cisp-wallet/internal/rpc"
	"github.com/Klingon-tech/cisp-wallet/internal/rpcclient"
	"github.com/Klingon-tech/cisp-wallet/internal/wallet"
)

const walletUsage = "Usage: cisp-cli wallet <create|restore|verify|export|list|info|connect|disconnect|current|passwd|delete|qr> [flags]"

func cmdWallet(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal(walletUsage)
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(client, args[1:])
	case "restore":
		cmdWalletRestore(client, args[1:])
	case "verify":
		cmdWalletVerify(client, args[1:])
	case "export":
		cmdWalletExport(client, args[1:])
	case "list":
		cmdWalletList(client, args[1:])
	case "info":
		cmdWalletInfo(client, args[1:])
	case "connect":
		cmdWalletConnect(client, args[1:])
	case "disconnect":
		cmdWalletDisconnect(client)
	case "current":
		cmdWalletCurrent(client)
	case "passwd":
		cmdWalletPasswd(client, args[1:])
	case "delete":
		cmdWalletDelete(client, args[1:])
	case "qr":
		cmdWalletQR(client, args[1:])
	default:
		fatal("Unknown wallet command: %s\n%s", args[0], walletUsage)
	}
}

// splitAddress accepts the address either before or after the flags.
func splitAddress(fs *flag.FlagSet, args []string, usage string) string {
	var addr string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		addr, args = args[0], args[1:]
	}
	fs.Parse(args)
	if addr == "" && fs.NArg() > 0 {
		addr = fs.Arg(0)
	}
	if addr == "" {
		fatal(usage)
	}
	return addr
}

// mnemonicFlag parses --mnemonic or prompts for the phrase without echo.
func mnemonicFlag(name string, args []string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	mnemonic := fs.String("mnemonic", "", "Recovery phrase (prompted if omitted)")
	fs.Parse(args)
	if *mnemonic != "" {
		return *mnemonic
	}
	phrase, err := readPassword("Recovery phrase: ")
	if err != nil {
		fatal("read recovery phrase: %v", err)
	}
	return string(phrase)
}

func printWallet(w *rpc.WalletResult) {
	fmt.Printf("Name:          %s\n", w.Name)
	fmt.Printf("Address:       %s\n", w.Address)
	fmt.Printf("Created:       %s\n", time.UnixMilli(w.CreatedAt).Format(time.RFC3339))
	fmt.Printf("Last accessed: %s\n", time.UnixMilli(w.LastAccessed).Format(time.RFC3339))
	fmt.Printf("Balances:      %g primary, %g secondary\n", w.Balances.PrimaryToken, w.Balances.SecondaryToken)
	fmt.Printf("Encryption:    %s / %s\n", w.KDF, w.Cipher)
}

func cmdWalletCreate(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: cisp-cli wallet create --name <name>")
	}

	password := readNewPassword("Enter password: ")

	result, err := client.CreateWallet(context.Background(), *name, password)
	if err != nil {
		fatalRPC("create wallet", err)
	}

	if *asJSON {
		printJSON(result)
		return
	}
	fmt.Println("Recovery phrase (write this down, it is shown only once):")
	fmt.Printf("  %s\n\n", result.Mnemonic)
	fmt.Printf("Wallet %q created.\n", result.Wallet.Name)
	fmt.Printf("Address: %s\n", result.Wallet.Address)
}

func cmdWalletRestore(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet restore", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "Recovery phrase (prompted if omitted)")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: cisp-cli wallet restore --name <name> [--mnemonic \"...\"]")
	}

	phrase := *mnemonic
	if phrase == "" {
		p, err := readPassword("Recovery phrase: ")
		if err != nil {
			fatal("read recovery phrase: %v", err)
		}
		phrase = string(p)
	}

	// Catch typos before asking for a password.
	check, err := client.ValidateMnemonic(context.Background(), phrase)
	if err != nil {
		fatalRPC("validate mnemonic", err)
	}
	if !check.Valid {
		fatal("invalid recovery phrase: %s", check.Reason)
	}

	password := readNewPassword("New wallet password: ")

	w, err := client.RestoreWallet(context.Background(), phrase, password, *name)
	if err != nil {
		fatalRPC("restore wallet", err)
	}
	fmt.Printf("Wallet %q restored.\n", w.Name)
	fmt.Printf("Address: %s\n", w.Address)
}

func cmdWalletVerify(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet verify", flag.ExitOnError)
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet verify <address>")

	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	ok, err := client.VerifyWallet(context.Background(), addr, string(password))
	if err != nil {
		fatalRPC("verify wallet", err)
	}
	if !ok {
		fmt.Println("Password incorrect.")
		os.Exit(1)
	}
	fmt.Println("Password correct.")
}

func cmdWalletExport(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet export", flag.ExitOnError)
	qrFile := fs.String("qr", "", "Also write the recovery phrase as a QR code PNG to this file")
	qrSize := fs.Int("qr-size", wallet.DefaultQRSize, "QR image size in pixels")
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet export <address> [--qr <file.png>]")

	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	exp, err := client.ExportWallet(context.Background(), addr, string(password))
	if err != nil {
		fatalRPC("export wallet", err)
	}

	fmt.Printf("Wallet:  %s\n", exp.Name)
	fmt.Printf("Address: %s\n", exp.Address)
	fmt.Println("Recovery phrase:")
	fmt.Printf("  %s\n", exp.Mnemonic)

	if *qrFile != "" {
		png, err := wallet.BackupQR(wallet.Mnemonic(exp.Mnemonic), *qrSize)
		if err != nil {
			fatal("render qr: %v", err)
		}
		if err := os.WriteFile(*qrFile, png, 0600); err != nil {
			fatal("write qr: %v", err)
		}
		fmt.Printf("\nQR backup written to %s (keep it offline).\n", *qrFile)
	}
}

func cmdWalletList(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet list", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	fs.Parse(args)

	wallets, err := client.ListWallets(context.Background())
	if err != nil {
		fatalRPC("list wallets", err)
	}
	if *asJSON {
		printJSON(wallets)
		return
	}
	if len(wallets) == 0 {
		fmt.Println("No wallets found.")
		return
	}

	current, _ := client.Current(context.Background())
	for _, w := range wallets {
		marker := " "
		if current != nil && current.Address == w.Address {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, w.Address, w.Name)
	}
}

func cmdWalletInfo(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet info", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet info <address>")

	w, err := client.GetWallet(context.Background(), addr)
	if err != nil {
		fatalRPC("get wallet", err)
	}
	if *asJSON {
		printJSON(w)
		return
	}
	printWallet(w)
}

func cmdWalletConnect(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet connect", flag.ExitOnError)
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet connect <address>")

	w, err := client.Connect(context.Background(), addr)
	if err != nil {
		fatalRPC("connect wallet", err)
	}
	fmt.Printf("Connected to %q (%s).\n", w.Name, w.Address)
}

func cmdWalletDisconnect(client *rpcclient.Client) {
	if err := client.Disconnect(context.Background()); err != nil {
		fatalRPC("disconnect wallet", err)
	}
	fmt.Println("Disconnected.")
}

func cmdWalletCurrent(client *rpcclient.Client) {
	w, err := client.Current(context.Background())
	if err != nil {
		fatalRPC("current wallet", err)
	}
	if w == nil {
		fmt.Println("No wallet connected.")
		return
	}
	printWallet(w)
}

func cmdWalletPasswd(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet passwd", flag.ExitOnError)
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet passwd <address>")

	oldPassword, err := readPassword("Current password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	newPassword := readNewPassword("New password: ")

	if _, err := client.ChangePassword(context.Background(), addr, string(oldPassword), newPassword); err != nil {
		fatalRPC("change password", err)
	}
	fmt.Println("Password changed.")
}

func cmdWalletDelete(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet delete <address> [--yes]")

	if !*yes {
		fmt.Fprintf(os.Stderr, "Delete wallet %s? Funds are only recoverable from its recovery phrase. [y/N]: ", addr)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if err := client.DeleteWallet(context.Background(), addr, string(password)); err != nil {
		fatalRPC("delete wallet", err)
	}
	fmt.Printf("Wallet %s deleted.\n", addr)
}

func cmdWalletQR(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("wallet qr", flag.ExitOnError)
	out := fs.String("out", "", "Output PNG file")
	size := fs.Int("size", wallet.DefaultQRSize, "Image size in pixels")
	addr := splitAddress(fs, args, "Usage: cisp-cli wallet qr <address> --out <file.png>")

	if *out == "" {
		fatal("Usage: cisp-cli wallet qr <address> --out <file.png>")
	}

	encoded, err := client.AddressQR(context.Background(), addr, *size)
	if err != nil {
		fatalRPC("address qr", err)
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		fatal("decode qr: %v", err)
	}
	if err := os.WriteFile(*out, png, 0644); err != nil {
		fatal("write qr: %v", err)
	}
	fmt.Printf("Address QR written to %s\n", *out)
}
