// Command sealsecret encrypts a notification credential (for example a
// Telegram bot token) into the sealed JSON format read through
// notify.telegram_token_file.
//
// The secret is read from stdin and the password from
// ARBWATCH_NOTIFY_TELEGRAM_TOKEN_PASSWORD unless -password-env names another
// variable.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
)

func main() {
	out := flag.String("out", "telegram_token.json", "path of the sealed secret file")
	passwordEnv := flag.String("password-env", "ARBWATCH_NOTIFY_TELEGRAM_TOKEN_PASSWORD", "environment variable holding the password")
	flag.Parse()

	if err := run(*out, *passwordEnv); err != nil {
		fmt.Fprintf(os.Stderr, "sealsecret: %v\n", err)
		os.Exit(1)
	}
}

func run(out, passwordEnv string) error {
	password := os.Getenv(passwordEnv)
	if password == "" {
		return fmt.Errorf("%s is not set", passwordEnv)
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimSpace(line)

	sealed, err := crypto.EncryptSecret(secret, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, sealed, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(os.Stderr, "sealed secret written to %s\n", out)
	return nil
}
