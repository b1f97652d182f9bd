package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/security/cipher"
)

var keysFlags struct {
	output string
	force  bool
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
	Long: `Generate master keys for tenant-scoped encryption.

The master key encrypts records of unregistered tenants and seals the keys
of registered ones. It is a 32-byte AES-256 key, configured base64 encoded
in engine.master_key or through a ${secret:name} reference.

Subcommands:
  generate - Generate a new master key

Examples:
  # Print a new key
  sovereign keys generate

  # Write the key to a secrets directory
  sovereign keys generate --output /etc/sovereign/secrets/master-key`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a master key",
	Long: `Generate a random 32-byte master key, base64 encoded.

With --output the key is written to a file with permissions 0600 and a
config snippet referencing it is printed. Without --output the key is
printed to stdout.`,
	Args: cobra.NoArgs,
	RunE: generateKeys,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)

	keysGenerateCmd.Flags().StringVarP(&keysFlags.output, "output", "o", "", "write the key to this file")
	keysGenerateCmd.Flags().BoolVar(&keysFlags.force, "force", false, "overwrite an existing key file")
}

func generateKeys(cmd *cobra.Command, args []string) error {
	out := io.Writer(os.Stdout)
	if cmd != nil {
		out = cmd.OutOrStdout()
	}

	key, err := cipher.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	defer cipher.ZeroBytes(key)
	encoded := base64.StdEncoding.EncodeToString(key)

	if keysFlags.output == "" {
		fmt.Fprintln(out, encoded)
		return nil
	}

	if err := saveKey(keysFlags.output, encoded, keysFlags.force); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	fmt.Fprintf(out, "Master Key: %s\n", keysFlags.output)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "⚠️  Warning: Store the key securely and never commit it to version control")
	fmt.Fprintln(out, "✓  Key generated successfully")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration snippet:")
	fmt.Fprintln(out, "secrets:")
	fmt.Fprintf(out, "  file_path: \"%s\"\n", filepath.Dir(keysFlags.output))
	fmt.Fprintln(out, "engine:")
	fmt.Fprintf(out, "  master_key: \"${secret:%s}\"\n", filepath.Base(keysFlags.output))
	return nil
}

func saveKey(path, encoded string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	// #nosec G304 - User-specified output path for the key is expected behavior for a CLI tool.
	file, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	// Enforce permissions even if the file already existed.
	if err := file.Chmod(0600); err != nil {
		return err
	}
	_, err = fmt.Fprintln(file, encoded)
	return err
}
