package shared

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrflow/internal/domain/workflow"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2026-03-04T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("04/03/2026")
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=20", nil)
	assert.Equal(t, workflow.Page{Limit: 200, Offset: 20}, ParsePagination(r, workflow.ListPage))

	r = httptest.NewRequest(http.MethodGet, "/?limit=-1&offset=x", nil)
	assert.Equal(t, workflow.Page{Limit: 50, Offset: 0}, ParsePagination(r, workflow.ListPage))

	r = httptest.NewRequest(http.MethodGet, "/?limit=300", nil)
	assert.Equal(t, workflow.Page{Limit: 300}, ParsePagination(r, workflow.PageBounds{Default: 100, Max: 500}))
}

func TestSetTotal(t *testing.T) {
	rec := httptest.NewRecorder()
	SetTotal(rec, 42)
	assert.Equal(t, "42", rec.Header().Get("X-Total-Count"))
}

func TestValidatorReject(t *testing.T) {
	v := NewValidator()
	v.Required("type", " ")
	v.Date("startDate", "yesterday")
	assert.Nil(t, v.OptionalDate("dueDate", ""))

	rec := httptest.NewRecorder()
	require.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []struct {
					Field string `json:"field"`
				} `json:"fields"`
			} `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, "req-1", body.RequestID)
	require.Len(t, body.Error.Details.Fields, 2)
	assert.Equal(t, "startDate", body.Error.Details.Fields[0].Field)

	assert.False(t, NewValidator().Reject(httptest.NewRecorder(), ""))
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"x"}`))
	require.True(t, DecodeJSON(httptest.NewRecorder(), r, "", &dst))
	assert.Equal(t, "x", dst.Name)

	rec := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"unknown":1}`))
	assert.False(t, DecodeJSON(rec, r, "", &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeOptionalJSON(t *testing.T) {
	var dst struct {
		Note string `json:"note"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.True(t, DecodeOptionalJSON(httptest.NewRecorder(), r, "", &dst))

	r = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"note":`))
	assert.False(t, DecodeOptionalJSON(httptest.NewRecorder(), r, "", &dst))
}
