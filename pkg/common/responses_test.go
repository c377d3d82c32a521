package common_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Steiynbrodt/Osint-Mindmap/pkg/common"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) common.APIResponse {
	t.Helper()
	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	common.RespondJSON(rec, http.StatusCreated, map[string]string{"id": "n1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]interface{}{"id": "n1"}, resp.Data)
}

func TestRespondAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	common.RespondAppError(rec, fmt.Errorf("get: %w", pkgerrors.NewNotFoundError("node", "n4")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "n4", resp.Error.Details["id"])
}

func TestRespondAppError_HidesPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	common.RespondAppError(rec, fmt.Errorf("dial tcp 10.0.0.3:6379: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL", resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestParseJSONBody(t *testing.T) {
	type body struct {
		Label string `json:"label"`
	}

	tests := []struct {
		name    string
		payload string
		max     int64
		wantErr bool
	}{
		{"valid", `{"label":"acme"}`, 1024, false},
		{"unknown field", `{"label":"acme","colour":"red"}`, 1024, true},
		{"malformed", `{"label":`, 1024, true},
		{"too large", `{"label":"` + strings.Repeat("a", 64) + `"}`, 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var got body
			err := common.ParseJSONBody(req, &got, tt.max)
			if tt.wantErr {
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "acme", got.Label)
		})
	}
}
