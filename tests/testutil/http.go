package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase calls one gin handler directly, without a router or middleware.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           any
	ExpectedStatus int
	// Setup runs after the request is attached, before the handler
	Setup    func(t *testing.T, tc *TestContext)
	Validate func(t *testing.T, tc *TestContext)
}

// RunHTTPTestCases runs each case as a subtest.
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase sends tc to handler and checks the status.
// GET / is used when Method or Path are empty.
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	method, path := tc.Method, tc.Path
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}

	var body io.Reader
	if tc.Body != nil {
		raw, err := json.Marshal(tc.Body)
		require.NoError(t, err, "Failed to marshal request body")
		body = bytes.NewReader(raw)
	}

	ctx := NewTestContext(t)
	ctx.Context.Request = httptest.NewRequest(method, path, body)
	if body != nil {
		ctx.Context.Request.Header.Set("Content-Type", "application/json")
	}
	if tc.Setup != nil {
		tc.Setup(t, ctx)
	}

	handler(ctx.Context)

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, ctx.ResponseCode(), ctx.Recorder.Body.String())
	}
	if tc.Validate != nil {
		tc.Validate(t, ctx)
	}
}

// DecodeResponse parses the recorded body as the API envelope.
func DecodeResponse(t *testing.T, tc *TestContext) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &resp), "Failed to parse API response")
	return resp
}

// AssertErrorResponse checks for a failed envelope carrying expectedCode
// and returns its error object.
func AssertErrorResponse(t *testing.T, tc *TestContext, expectedCode string) *dto.ErrorInfo {
	t.Helper()

	resp := DecodeResponse(t, tc)
	assert.False(t, resp.Success, "Expected success to be false")
	require.NotNil(t, resp.Error, "Expected error object in response")
	assert.Equal(t, expectedCode, resp.Error.Code, "Unexpected error code")
	return resp.Error
}
