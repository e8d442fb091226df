package permission_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/assistant"
	"github.com/frahmantamala/chatmate/internal/core/clock"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/permission"
	"github.com/frahmantamala/chatmate/internal/storage/kv"
	"github.com/frahmantamala/chatmate/internal/transport"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

// asCaller stands in for the auth middleware.
func asCaller(caller identity.ID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !caller.IsZero() {
				r = r.WithContext(internal.ContextWithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
}

var _ = Describe("Handler", func() {
	var (
		owner    identity.ID
		visitor  identity.ID
		address  identity.ID
		handler  *permission.Handler
		caller   identity.ID
		router   *chi.Mux
		recorder *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		store, err := kv.OpenInMemory(logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)

		owner = identity.Derive("owner")
		visitor = identity.Derive("visitor")
		_, err = assistant.NewService(store, nil, logger.Discard()).CreateProfile(context.Background(), owner, "helper", 10)
		Expect(err).NotTo(HaveOccurred())
		address = identity.AssistantAddress(owner)

		service := permission.NewService(store, clock.NewManual(1_000), nil, logger.Discard())
		handler = permission.NewHandler(transport.NewBaseHandler(logger.Discard()), service)
		caller = owner
		recorder = httptest.NewRecorder()
	})

	serve := func(method, target, body string) {
		router = chi.NewRouter()
		router.Use(asCaller(caller))
		router.Put("/assistants/{assistant}/permissions/{visitor}", handler.GrantAccess)
		router.Delete("/assistants/{assistant}/permissions/{visitor}", handler.RevokeAccess)
		router.Get("/assistants/{assistant}/permissions/{visitor}", handler.GetPermission)
		router.Get("/assistants/{assistant}/permissions/{visitor}/valid", handler.CheckValid)
		router.Get("/assistants/{assistant}/permissions/{visitor}/access", handler.RequireAccess)

		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(recorder, req)
	}

	path := func(suffix string) string {
		return "/assistants/" + address.String() + "/permissions/" + visitor.String() + suffix
	}

	decode := func() map[string]interface{} {
		var body map[string]interface{}
		Expect(json.Unmarshal(recorder.Body.Bytes(), &body)).To(Succeed())
		return body
	}

	It("should grant access for the owner", func() {
		serve(http.MethodPut, path(""), `{"permission_type":"schedule","expires_at":2000}`)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		body := decode()
		Expect(body).To(HaveKeyWithValue("permission_type", "schedule"))
		Expect(body).To(HaveKeyWithValue("expires_at", BeNumerically("==", 2000)))
		Expect(body).To(HaveKeyWithValue("valid", true))
	})

	It("should default to a permanent chat permission", func() {
		serve(http.MethodPut, path(""), `{}`)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		body := decode()
		Expect(body).To(HaveKeyWithValue("permission_type", "chat"))
		Expect(body).NotTo(HaveKey("expires_at"))
	})

	It("should answer 403 when a visitor tries to grant", func() {
		caller = visitor
		serve(http.MethodPut, path(""), `{}`)

		Expect(recorder.Code).To(Equal(http.StatusForbidden))
		Expect(recorder.Body.String()).To(ContainSubstring("ACCESS_VIOLATION"))
	})

	It("should answer 401 without a caller", func() {
		caller = identity.Zero
		serve(http.MethodPut, path(""), `{}`)

		Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reject an unknown permission type", func() {
		serve(http.MethodPut, path(""), `{"permission_type":"admin"}`)

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Body.String()).To(ContainSubstring("INVALID_PERMISSION_TYPE"))
	})

	It("should reject a malformed identity in the path", func() {
		serve(http.MethodGet, "/assistants/not-base58!/permissions/"+visitor.String()+"/valid", "")

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report validity without a record", func() {
		serve(http.MethodGet, path("/valid"), "")

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(decode()).To(HaveKeyWithValue("valid", false))
	})

	It("should gate access with 204 and 403", func() {
		serve(http.MethodGet, path("/access"), "")
		Expect(recorder.Code).To(Equal(http.StatusForbidden))
		Expect(recorder.Body.String()).To(ContainSubstring("ACCESS_DENIED"))

		recorder = httptest.NewRecorder()
		serve(http.MethodPut, path(""), `{}`)
		Expect(recorder.Code).To(Equal(http.StatusOK))

		recorder = httptest.NewRecorder()
		serve(http.MethodGet, path("/access"), "")
		Expect(recorder.Code).To(Equal(http.StatusNoContent))
	})

	It("should answer 404 when revoking a missing permission", func() {
		serve(http.MethodDelete, path(""), "")

		Expect(recorder.Code).To(Equal(http.StatusNotFound))
		Expect(recorder.Body.String()).To(ContainSubstring("PERMISSION_NOT_FOUND"))
	})
})
