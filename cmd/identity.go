package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/chatmate/internal/auth"
	"github.com/frahmantamala/chatmate/internal/core/identity"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Create identities and sign logins",
}

var newIdentityCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate an ed25519 identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		id, err := identity.FromBytes(key.Public().(ed25519.PublicKey))
		if err != nil {
			return err
		}
		fmt.Println("identity:", id)
		fmt.Println("key:     ", base58.Encode(key.Seed()))
		return nil
	},
}

var (
	signKey       string
	signTimestamp int64
)

var signLoginCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print a login request body signed with --key",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := base58.Decode(signKey)
		if len(seed) != ed25519.SeedSize {
			return fmt.Errorf("key must be a base58 %d-byte seed", ed25519.SeedSize)
		}
		ts := signTimestamp
		if ts == 0 {
			ts = time.Now().Unix()
		}

		id, sig, err := auth.SignLogin(ed25519.NewKeyFromSeed(seed), ts)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(auth.LoginDTO{
			Identity:  id.String(),
			Timestamp: ts,
			Signature: base58.Encode(sig),
		})
	},
}

func init() {
	signLoginCmd.Flags().StringVar(&signKey, "key", "", "base58 ed25519 seed")
	signLoginCmd.Flags().Int64Var(&signTimestamp, "ts", 0, "unix timestamp to sign (default now)")
	_ = signLoginCmd.MarkFlagRequired("key")

	identityCmd.AddCommand(newIdentityCmd)
	identityCmd.AddCommand(signLoginCmd)
	rootCmd.AddCommand(identityCmd)
}
