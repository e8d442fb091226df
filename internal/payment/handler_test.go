package payment_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/chatmate/internal"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/payment"
	"github.com/frahmantamala/chatmate/internal/transport"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

var _ = Describe("Handler", func() {
	var (
		f        *fixture
		router   *chi.Mux
		recorder *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		f = newFixture(30)
		handler := payment.NewHandler(transport.NewBaseHandler(logger.Discard()), f.service)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(internal.ContextWithCaller(r.Context(), f.visitor)))
			})
		})
		router.Post("/assistants/{assistant}/access-payments", handler.PayForAccess)
		router.Post("/assistants/{assistant}/tips", handler.Tip)
		router.Get("/accounts/{identity}/balance", handler.GetBalance)
		recorder = httptest.NewRecorder()
	})

	post := func(target, body string) {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(recorder, req)
	}

	decode := func(v interface{}) {
		Expect(json.Unmarshal(recorder.Body.Bytes(), v)).To(Succeed())
	}

	It("should return a receipt with the purchased permission", func() {
		f.credit(f.visitor, 30)

		post("/assistants/"+f.address.String()+"/access-payments", `{"declared_owner":"`+f.owner.String()+`"}`)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		var receipt payment.ReceiptResponse
		decode(&receipt)
		Expect(receipt.Kind).To(Equal("access_fee"))
		Expect(receipt.Amount).To(Equal(uint64(30)))
		Expect(receipt.Payer).To(Equal(f.visitor.String()))
		Expect(receipt.Permission).NotTo(BeNil())
		Expect(receipt.Permission.Valid).To(BeTrue())
		Expect(receipt.Permission.PaidAmount).To(Equal(uint64(30)))
	})

	It("should answer 402 when the visitor cannot pay", func() {
		post("/assistants/"+f.address.String()+"/access-payments", `{"declared_owner":"`+f.owner.String()+`"}`)

		Expect(recorder.Code).To(Equal(http.StatusPaymentRequired))
		Expect(recorder.Body.String()).To(ContainSubstring("TRANSFER_FAILED"))
	})

	It("should answer 400 for a missing declared owner", func() {
		post("/assistants/"+f.address.String()+"/access-payments", `{}`)

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject unknown body fields", func() {
		post("/assistants/"+f.address.String()+"/tips", `{"declared_owner":"`+f.owner.String()+`","amount":1,"memo":"hi"}`)

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
	})

	It("should answer 400 for a zero tip", func() {
		post("/assistants/"+f.address.String()+"/tips", `{"declared_owner":"`+f.owner.String()+`","amount":0}`)

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Body.String()).To(ContainSubstring("INVALID_AMOUNT"))
	})

	It("should show balances after a tip", func() {
		f.credit(f.visitor, 10)
		post("/assistants/"+f.address.String()+"/tips", `{"declared_owner":"`+f.owner.String()+`","amount":4}`)
		Expect(recorder.Code).To(Equal(http.StatusOK))

		recorder = httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/accounts/"+f.owner.String()+"/balance", nil))

		Expect(recorder.Code).To(Equal(http.StatusOK))
		var balance payment.BalanceResponse
		decode(&balance)
		Expect(balance).To(Equal(payment.BalanceResponse{Holder: f.owner.String(), Balance: 4}))
	})

	It("should reject a malformed holder", func() {
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/accounts/"+identity.Zero.String()+"0OIl/balance", nil))

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
	})
})
