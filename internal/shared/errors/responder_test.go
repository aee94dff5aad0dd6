package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var errSoldOut = errors.New("sold out")

func soldOutMapper(err error) (ProblemDetail, bool) {
	if errors.Is(err, errSoldOut) {
		return ErrInsufficientInventory.WithDetail(err.Error()), true
	}
	return ProblemDetail{}, false
}

func serve(t *testing.T, responder *Responder, err error) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/orders", nil)
	responder.RespondError(c, err)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return rec, problem
}

func TestResponder_MapperWins(t *testing.T) {
	responder := NewResponder("https://errors.example.com", soldOutMapper)
	rec, problem := serve(t, responder, fmt.Errorf("create: %w", errSoldOut))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	require.Equal(t, "https://errors.example.com"+TypeInsufficientInventory, problem.Type)
	require.Equal(t, "create: sold out", problem.Detail)
	require.Equal(t, "/orders", problem.Instance)
}

func TestResponder_FallsBackToInternal(t *testing.T) {
	rec, problem := serve(t, NewResponder(""), errors.New("database unreachable"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "database unreachable", problem.Detail)
}

func TestResponder_EmbeddedProblem(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", NewNotFoundProblem("order", "o-1"))
	rec, problem := serve(t, NewResponder(""), wrapped)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "order", problem.Extensions["resourceType"])
	require.Equal(t, http.StatusNotFound, HTTPStatusFromError(wrapped))
}

func TestWithExtension_DoesNotMutateTemplate(t *testing.T) {
	_ = ErrValidation.WithExtension("field", "quantity")
	require.Nil(t, ErrValidation.Extensions)
}
