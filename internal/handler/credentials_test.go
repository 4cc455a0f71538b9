package handler

import (
	"database/sql"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oxhollow/ferrite/internal/store"
	"github.com/oxhollow/ferrite/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCredentialHandler_GetCredentials(t *testing.T) {
	t.Run("success - credentials listed", func(t *testing.T) {
		// arrange
		credential := generateCredential()
		mockService := new(testutil.MockCredentialService)
		mockService.On(
			"ListCredentials", mock.Anything,
		).Return([]*store.Credential{credential}, nil)

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/credentials", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		h := NewCredentialHandler(mockService)

		// act
		err := h.GetCredentials(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), credential.Username)
	})
	t.Run("success - no credentials", func(t *testing.T) {
		// arrange
		mockService := new(testutil.MockCredentialService)
		mockService.On("ListCredentials", mock.Anything).Return(nil, sql.ErrNoRows)

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/credentials", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		h := NewCredentialHandler(mockService)

		// act
		err := h.GetCredentials(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCredentialHandler_GetCredential(t *testing.T) {
	t.Run("success - credential found", func(t *testing.T) {
		// arrange
		credential := generateCredential()
		mockService := new(testutil.MockCredentialService)
		mockService.On(
			"GetCredentialByID", mock.Anything, credential.CredentialID,
		).Return(credential, nil)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodGet,
			fmt.Sprintf("/api/credentials/%d", credential.CredentialID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("credential_id")
		c.SetParamValues(fmt.Sprintf("%d", credential.CredentialID))
		h := NewCredentialHandler(mockService)

		// act
		err := h.GetCredential(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), credential.Username)
	})
	t.Run("failure - credential not found", func(t *testing.T) {
		// arrange
		credentialID := rand.Int63()
		mockService := new(testutil.MockCredentialService)
		mockService.On(
			"GetCredentialByID", mock.Anything, credentialID,
		).Return(nil, sql.ErrNoRows)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodGet, fmt.Sprintf("/api/credentials/%d", credentialID), nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("credential_id")
		c.SetParamValues(fmt.Sprintf("%d", credentialID))
		h := NewCredentialHandler(mockService)

		// act
		err := h.GetCredential(c)

		// assert
		assert.Error(t, err)
		httpErr := err.(*echo.HTTPError)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestCredentialHandler_PostCredentials(t *testing.T) {
	t.Run("success - credential created", func(t *testing.T) {
		// arrange
		credential := generateCredential()
		mockService := new(testutil.MockCredentialService)
		mockService.On(
			"CreateCredential", mock.Anything,
			credential.Username, credential.Description, "testprivatekey",
		).Return(credential, nil)

		e := echo.New()
		body := fmt.Sprintf(
			`{"username": %q, "description": %q, "ssh_private_key": "testprivatekey"}`,
			credential.Username, credential.Description,
		)
		req := httptest.NewRequest(
			http.MethodPost, "/api/credentials", strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		h := NewCredentialHandler(mockService)

		// act
		err := h.PostCredentials(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), credential.Username)
	})
}

func TestCredentialHandler_PatchCredential(t *testing.T) {
	t.Run("success - credential updated", func(t *testing.T) {
		// arrange
		credential := generateCredential()
		mockService := new(testutil.MockCredentialService)
		mockService.On(
			"UpdateCredential", mock.Anything,
			credential.CredentialID, credential.Username, credential.Description,
		).Return(nil)

		e := echo.New()
		body := fmt.Sprintf(
			`{"username": %q, "description": %q}`,
			credential.Username, credential.Description,
		)
		req := httptest.NewRequest(
			http.MethodPatch,
			fmt.Sprintf("/api/credentials/%d", credential.CredentialID),
			strings.NewReader(body),
		)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("credential_id")
		c.SetParamValues(fmt.Sprintf("%d", credential.CredentialID))
		h := NewCredentialHandler(mockService)

		// act
		err := h.PatchCredential(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestCredentialHandler_DeleteCredential(t *testing.T) {
	t.Run("success - credential deleted", func(t *testing.T) {
		// arrange
		credential := generateCredential()
		mockService := new(testutil.MockCredentialService)
		mockService.On(
			"DeleteCredential", mock.Anything, credential.CredentialID,
		).Return(nil)

		e := echo.New()
		req := httptest.NewRequest(
			http.MethodDelete,
			fmt.Sprintf("/api/credentials/%d", credential.CredentialID),
			nil,
		)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("credential_id")
		c.SetParamValues(fmt.Sprintf("%d", credential.CredentialID))
		h := NewCredentialHandler(mockService)

		// act
		err := h.DeleteCredential(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func generateCredential() *store.Credential {
	return &store.Credential{
		CredentialID:      rand.Int63(),
		Username:          fmt.Sprintf("testuser%d", time.Now().UnixNano()),
		Description:       "test credential",
		SSHPrivateKeyHash: "testprivatekeyhash",
	}
}
