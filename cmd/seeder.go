package cmd

import (
	"context"
	"crypto/ed25519"
	stderrors "errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"

	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/core/repository"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

var (
	seedCredits []string
	seedDemo    bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with balances and demo data",
	Long:  `Credit balances to identities and optionally create a demo assistant for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.LoggerWrapper()

		store, err := openStore(cfg, lg)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()

		ctx := context.Background()
		for _, raw := range seedCredits {
			holder, amount, err := parseCredit(raw)
			if err != nil {
				log.Fatalf("invalid --credit %q: %v", raw, err)
			}
			if err := credit(ctx, store, holder, amount); err != nil {
				log.Fatalf("failed to credit %s: %v", holder, err)
			}
			fmt.Printf("Credited %d to %s\n", amount, holder)
		}

		if seedDemo {
			if err := seedDemoData(ctx, store); err != nil {
				log.Fatalf("failed to seed demo data: %v", err)
			}
		}
	},
}

// parseCredit reads "<identity>=<amount>".
func parseCredit(raw string) (identity.ID, uint64, error) {
	holderText, amountText, ok := strings.Cut(raw, "=")
	if !ok {
		return identity.Zero, 0, fmt.Errorf("expected <identity>=<amount>")
	}
	holder, err := identity.Parse(strings.TrimSpace(holderText))
	if err != nil {
		return identity.Zero, 0, err
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(amountText), 10, 64)
	if err != nil {
		return identity.Zero, 0, fmt.Errorf("invalid amount: %w", err)
	}
	return holder, amount, nil
}

func credit(ctx context.Context, store repository.Store, holder identity.ID, amount uint64) error {
	return store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.Ledger().Credit(ctx, holder, amount)
	})
}

// demoKey derives a stable key so repeated seeding yields the same identities.
func demoKey(name string) ed25519.PrivateKey {
	seed := blake2b.Sum256([]byte("chatmate demo " + name))
	return ed25519.NewKeyFromSeed(seed[:])
}

func seedDemoData(ctx context.Context, store repository.Store) error {
	lg := logger.LoggerWrapper()
	service := assistant.NewService(store, nil, lg)

	ownerKey := demoKey("owner")
	visitorKey := demoKey("visitor")
	owner, _ := identity.FromBytes(ownerKey.Public().(ed25519.PublicKey))
	visitor, _ := identity.FromBytes(visitorKey.Public().(ed25519.PublicKey))

	profile, err := service.CreateProfile(ctx, owner, "demo-assistant", 100)
	switch {
	case stderrors.Is(err, errors.ErrDuplicateProfile):
		fmt.Println("demo assistant already exists")
	case err != nil:
		return err
	default:
		fmt.Println("Seeded demo assistant:", profile.Address)
	}

	if err := credit(ctx, store, visitor, 1000); err != nil {
		return err
	}

	fmt.Println("demo owner identity:  ", owner)
	fmt.Println("demo owner key:       ", base58.Encode(ownerKey.Seed()))
	fmt.Println("demo visitor identity:", visitor)
	fmt.Println("demo visitor key:     ", base58.Encode(visitorKey.Seed()))
	return nil
}

func init() {
	seedCmd.Flags().StringSliceVar(&seedCredits, "credit", nil, "credit a balance, as <identity>=<amount> (repeatable)")
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "create a demo assistant and fund a demo visitor")
}
