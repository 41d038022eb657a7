package response

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteResponse encodes v as the JSON body of a 200 response
func WriteResponse(w http.ResponseWriter, r *http.Request, v interface{}) {
	writeJSON(w, http.StatusOK, v)
}

// WriteError encodes e with its status code. A nil e is reported as unexpected.
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	if e == nil {
		e = ErrUnexpected()
	}
	writeJSON(w, e.StatusCode, e)
}

// NotFound and MethodNotAllowed let the router reply in the same shape as the handlers

func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, ErrNotFound())
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, ErrMethodNotAllowed())
}
