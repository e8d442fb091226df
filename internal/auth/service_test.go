package auth

import (
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/blake2b"

	errors "github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/clock"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/transport"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

func testKey(name string) ed25519.PrivateKey {
	seed := blake2b.Sum256([]byte("auth test " + name))
	return ed25519.NewKeyFromSeed(seed[:])
}

func loginFor(key ed25519.PrivateKey, ts int64) LoginDTO {
	id, sig, err := SignLogin(key, ts)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return LoginDTO{Identity: id.String(), Timestamp: ts, Signature: base58.Encode(sig)}
}

var _ = ginkgo.Describe("Login signatures", func() {
	ginkgo.It("should verify a signature made by the identity's key", func() {
		id, sig, err := SignLogin(testKey("alice"), 100)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(VerifyLogin(id, 100, sig)).To(gomega.BeTrue())
	})

	ginkgo.It("should bind the signature to its timestamp", func() {
		id, sig, _ := SignLogin(testKey("alice"), 100)
		gomega.Expect(VerifyLogin(id, 101, sig)).To(gomega.BeFalse())
	})

	ginkgo.It("should bind the signature to its identity", func() {
		_, sig, _ := SignLogin(testKey("alice"), 100)
		bob, _, _ := SignLogin(testKey("bob"), 100)
		gomega.Expect(VerifyLogin(bob, 100, sig)).To(gomega.BeFalse())
	})

	ginkgo.It("should reject truncated signatures", func() {
		id, sig, _ := SignLogin(testKey("alice"), 100)
		gomega.Expect(VerifyLogin(id, 100, sig[:10])).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("Auth Service", func() {
	var (
		service *Service
		clk     *clock.Manual
		tokens  *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		clk = clock.NewManual(time.Now().Unix())
		tokens = NewJWTTokenGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)
		service = NewService(tokens, clk, time.Minute, logger.Discard())
	})

	ginkgo.Context("Authenticate", func() {
		ginkgo.It("should issue tokens for a fresh signature", func() {
			dto := loginFor(testKey("alice"), clk.Now())

			issued, err := service.Authenticate(dto)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(issued.Identity).To(gomega.Equal(dto.Identity))
			gomega.Expect(issued.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(issued.RefreshToken).NotTo(gomega.BeEmpty())

			claims, err := service.ValidateAccessToken(issued.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.Identity()).To(gomega.Equal(identity.MustParse(dto.Identity)))
		})

		ginkgo.It("should accept signatures at the edge of the window", func() {
			_, err := service.Authenticate(loginFor(testKey("alice"), clk.Now()-60))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("should refuse stale signatures", func() {
			_, err := service.Authenticate(loginFor(testKey("alice"), clk.Now()-61))
			gomega.Expect(err).To(gomega.MatchError(errors.ErrSignatureExpired))
		})

		ginkgo.It("should refuse a forged signature", func() {
			dto := loginFor(testKey("alice"), clk.Now())
			dto.Signature = loginFor(testKey("mallory"), clk.Now()).Signature

			_, err := service.Authenticate(dto)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidCredentials))
		})

		ginkgo.It("should validate the request", func() {
			_, err := service.Authenticate(LoginDTO{Identity: "nope", Timestamp: clk.Now()})
			appErr, ok := errors.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(errors.ErrCodeValidationFailed))
		})
	})

	ginkgo.Context("RefreshTokens", func() {
		ginkgo.It("should exchange a refresh token for new tokens", func() {
			issued, err := service.Authenticate(loginFor(testKey("alice"), clk.Now()))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			refreshed, err := service.RefreshTokens(issued.RefreshToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(refreshed.Identity).To(gomega.Equal(issued.Identity))
		})

		ginkgo.It("should not accept an access token in place of a refresh token", func() {
			issued, err := service.Authenticate(loginFor(testKey("alice"), clk.Now()))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.RefreshTokens(issued.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidToken))
			_, err = service.ValidateAccessToken(issued.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrInvalidToken))
		})

		ginkgo.It("should report expired tokens", func() {
			expired := NewJWTTokenGenerator("access-secret", "refresh-secret", time.Minute, time.Hour)
			expired.RefreshTokenTTL = -time.Minute
			token, err := expired.GenerateRefreshToken(identity.Derive("alice"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.RefreshTokens(token)
			gomega.Expect(err).To(gomega.MatchError(errors.ErrTokenExpired))
		})
	})
})

var _ = ginkgo.Describe("AuthMiddleware", func() {
	var (
		handler *Handler
		service *Service
		reached bool
		caller  identity.ID
		next    http.Handler
	)

	ginkgo.BeforeEach(func() {
		clk := clock.NewManual(time.Now().Unix())
		service = NewService(NewJWTTokenGenerator("a", "r", time.Minute, time.Hour), clk, time.Minute, logger.Discard())
		handler = NewHandler(transport.NewBaseHandler(logger.Discard()), service)
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			caller, _ = errors.CallerFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	})

	ginkgo.It("should attach the token's identity as the caller", func() {
		issued, err := service.Authenticate(loginFor(testKey("alice"), time.Now().Unix()))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+issued.AccessToken)
		recorder := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(recorder, req)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(reached).To(gomega.BeTrue())
		gomega.Expect(caller.String()).To(gomega.Equal(issued.Identity))
	})

	ginkgo.It("should stop requests without a bearer token", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		recorder := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(recorder, req)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(reached).To(gomega.BeFalse())
	})

	ginkgo.It("should stop requests with a garbage token", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		recorder := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(recorder, req)

		gomega.Expect(recorder.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(recorder.Body.String()).To(gomega.ContainSubstring("INVALID_TOKEN"))
	})
})
