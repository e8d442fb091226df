package internal_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/chatmate/internal"
)

var _ = Describe("AppError", func() {
	It("should keep sentinels intact when adding a cause", func() {
		cause := fmt.Errorf("disk on fire")
		wrapped := errors.ErrAssistantNotFound.WithCause(cause)

		Expect(errors.ErrAssistantNotFound.Cause).To(BeNil())
		Expect(stderrors.Is(wrapped, errors.ErrAssistantNotFound)).To(BeTrue())
		Expect(stderrors.Is(wrapped, cause)).To(BeTrue())
		Expect(wrapped.Error()).To(ContainSubstring("disk on fire"))
	})

	It("should tell marketplace kinds apart", func() {
		Expect(stderrors.Is(errors.ErrAccessDenied, errors.ErrPermissionExpired)).To(BeFalse())
		Expect(stderrors.Is(errors.ErrAccessViolation, errors.ErrAccessDenied)).To(BeFalse())
		Expect(stderrors.Is(fmt.Errorf("tx: %w", errors.ErrNoFeeRequired), errors.ErrNoFeeRequired)).To(BeTrue())
	})

	It("should find codes anywhere in the chain", func() {
		err := errors.NewTransferFailedError(errors.ErrInvalidAmount)
		Expect(errors.HasCode(err, errors.ErrCodeTransferFailed)).To(BeTrue())
		Expect(errors.HasCode(err, errors.ErrCodeInvalidAmount)).To(BeTrue())
		Expect(errors.HasCode(err, errors.ErrCodeAccessDenied)).To(BeFalse())
		Expect(errors.HasCode(fmt.Errorf("plain"), errors.ErrCodeAccessDenied)).To(BeFalse())
	})

	It("should map kinds to status codes", func() {
		cases := map[*errors.AppError]int{
			errors.ErrNoFeeRequired:                  http.StatusUnprocessableEntity,
			errors.ErrInvalidAmount:                  http.StatusBadRequest,
			errors.ErrInvalidOwner:                   http.StatusBadRequest,
			errors.ErrPermissionExpired:              http.StatusForbidden,
			errors.ErrAccessDenied:                   http.StatusForbidden,
			errors.ErrAccessViolation:                http.StatusForbidden,
			errors.ErrDuplicateProfile:               http.StatusConflict,
			errors.ErrPermissionNotFound:             http.StatusNotFound,
			errors.NewTransferFailedError(nil):       http.StatusPaymentRequired,
			errors.ErrEarningsOverflow:               http.StatusInternalServerError,
			errors.NewInternalError("boom", nil):     http.StatusInternalServerError,
			errors.NewUnauthorizedError("x", "CODE"): http.StatusUnauthorized,
		}
		for appErr, status := range cases {
			got, _ := appErr.ToHTTPResponse()
			Expect(got).To(Equal(status), string(appErr.Code))
		}
	})

	It("should render the error envelope without the cause", func() {
		_, body := errors.ErrInvalidOwner.WithCause(fmt.Errorf("secret detail")).ToHTTPResponse()
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{"error":{"type":"VALIDATION_ERROR","code":"INVALID_OWNER","message":"invalid owner"}}`))
	})

	It("should prefer field messages for validation errors", func() {
		appErr := errors.NewValidationFieldError("username", "username is required", errors.ErrCodeInvalidUsername)
		Expect(appErr.Error()).To(Equal("username is required"))
		Expect(appErr.GetDetailedMessage()).To(Equal("username is required"))

		found, ok := errors.IsAppError(fmt.Errorf("wrapped: %w", appErr))
		Expect(ok).To(BeTrue())
		Expect(found.Code).To(Equal(errors.ErrCodeValidationFailed))
	})
})
