package internal_test

import (
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/chatmate/internal"
)

var _ = Describe("Config", func() {
	setEnv := func(values map[string]string) {
		for k, v := range values {
			Expect(os.Setenv(k, v)).To(Succeed())
			DeferCleanup(os.Unsetenv, k)
		}
	}

	validSecrets := map[string]string{
		"ACCESS_TOKEN_SECRET":  strings.Repeat("a", 32),
		"REFRESH_TOKEN_SECRET": strings.Repeat("r", 32),
	}

	Describe("LoadConfigFromEnv", func() {
		It("should fall back to defaults around the required secrets", func() {
			setEnv(validSecrets)

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Storage.Driver).To(Equal(internal.StorageDriverPebble))
			Expect(cfg.Security.LoginWindow).To(Equal(5 * time.Minute))
			Expect(cfg.Notifications.Redis.Enabled).To(BeFalse())
			Expect(cfg.Notifications.Webhooks.URLs).To(BeEmpty())
		})

		It("should read lists, durations and booleans", func() {
			setEnv(validSecrets)
			setEnv(map[string]string{
				"WEBHOOK_URLS":    "https://a.example/hook, https://b.example/hook",
				"WEBHOOK_TIMEOUT": "3s",
				"REDIS_ENABLED":   "true",
				"PORT":            "9090",
			})

			cfg, err := internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Notifications.Webhooks.URLs).To(Equal([]string{"https://a.example/hook", "https://b.example/hook"}))
			Expect(cfg.Notifications.Webhooks.Timeout).To(Equal(3 * time.Second))
			Expect(cfg.Notifications.Redis.Enabled).To(BeTrue())
			Expect(cfg.Server.Port).To(Equal(9090))
		})

		It("should fail without token secrets", func() {
			_, err := internal.LoadConfigFromEnv()
			Expect(err).To(MatchError(ContainSubstring("access_token_secret")))
		})

		It("should require a database source for the postgres driver", func() {
			setEnv(validSecrets)
			setEnv(map[string]string{"STORAGE_DRIVER": "postgres"})

			_, err := internal.LoadConfigFromEnv()
			Expect(err).To(MatchError(ContainSubstring("database config")))
		})
	})

	Describe("Validate", func() {
		var cfg *internal.Config

		BeforeEach(func() {
			setEnv(validSecrets)
			var err error
			cfg, err = internal.LoadConfigFromEnv()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject identical token secrets", func() {
			cfg.Security.RefreshTokenSecret = cfg.Security.AccessTokenSecret
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("must differ")))
		})

		It("should reject unknown storage drivers", func() {
			cfg.Storage.Driver = "bolt"
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("unknown storage driver")))
		})

		It("should reject webhook urls without a scheme", func() {
			cfg.Notifications.Webhooks.URLs = []string{"example.com/hook"}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("invalid webhook url")))
		})

		It("should collect every failing section", func() {
			cfg.Storage.PebbleDir = ""
			cfg.Notifications.Redis = internal.RedisConfig{Enabled: true}
			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("storage config")))
			Expect(err).To(MatchError(ContainSubstring("notifications config")))
		})
	})
})
