package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

type lineItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=1000"`
}

type createRequest struct {
	Items []lineItem `json:"items" validate:"required,min=1,dive"`
	Notes *string    `json:"notes"`
}

func jsonRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	var req createRequest
	err := DecodeJSONBody(jsonRequest(`{"items":[{"product_id":"not-a-uuid","quantity":0}]}`), &req)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid uuid", details["items[0].product_id"])
	assert.Equal(t, "is required", details["items[0].quantity"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": `{"items":[],"coupon":"FREE"}`,
		"wrong type":    `{"items":"rice"}`,
		"two objects":   `{"items":[{"product_id":"5f0c8a52-8a4b-4c4e-9a53-7d0f0f0c9b10","quantity":1}]} {}`,
		"broken syntax": `{"items":[`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req createRequest
			err := DecodeJSONBody(jsonRequest(body), &req)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	big := `{"notes":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	var req createRequest
	err := DecodeJSONBody(jsonRequest(big), &req)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestDecodeOptionalJSONBodyAcceptsEmpty(t *testing.T) {
	var req struct {
		Note *string `json:"note"`
	}
	require.NoError(t, DecodeOptionalJSONBody(jsonRequest(""), &req))
	assert.Nil(t, req.Note)

	require.NoError(t, DecodeOptionalJSONBody(jsonRequest(`{"note":"left at gate"}`), &req))
	require.NotNil(t, req.Note)
	assert.Equal(t, "left at gate", *req.Note)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Ọjà", SanitizeString("  Ọjàọba  ", 3))
	assert.Equal(t, "line one\nline two", SanitizeString("line one\nline two\x00", 0))
	assert.Equal(t, "ab", SanitizeString("ab \x07", 10))

	blank := "   "
	assert.Nil(t, SanitizeOptional(&blank, 10))
	assert.Nil(t, SanitizeOptional(nil, 10))
	note := " ring twice "
	assert.Equal(t, "ring twice", *SanitizeOptional(&note, 0))
}
