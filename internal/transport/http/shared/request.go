package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"hrflow/internal/transport/http/api"
)

// DecodeJSON decodes a single JSON object into dst, writing the failure
// response itself when it returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, requestID string, dst any) bool {
	return decode(w, r, requestID, dst, false)
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be empty.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, requestID string, dst any) bool {
	return decode(w, r, requestID, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, requestID string, dst any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return false
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
	return false
}

// SetTotal exposes a list total the way list endpoints report it.
func SetTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}
