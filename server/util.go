// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bvk/makerbot/api"
	"github.com/bvk/makerbot/job"
	"github.com/bvk/makerbot/ledger"
)

func httpPostJSONHandler[REQ, RESP any](f func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, &api.Error{Code: "MethodNotAllowed", Message: r.Method})
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			writeError(w, http.StatusBadRequest, &api.Error{Code: "InvalidArgument", Message: fmt.Sprintf("invalid payload: %v", err)})
			return
		}
		resp, err := f(r.Context(), req)
		if err != nil {
			status, code := errorStatus(err)
			if status == http.StatusInternalServerError {
				slog.ErrorContext(r.Context(), "could not handle api request", "path", r.URL.Path, "err", err)
			}
			writeError(w, status, &api.Error{Code: code, Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// errorStatus returns the http status code and the api error code for an
// error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, job.ErrAlreadyRunning):
		return http.StatusConflict, "AlreadyRunning"
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, ledger.ErrMalformedCredential):
		return http.StatusBadRequest, "MalformedCredential"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusUnprocessableEntity, "AccountNotFound"
	case errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest, "InvalidArgument"
	case errors.Is(err, os.ErrClosed):
		return http.StatusServiceUnavailable, "Unavailable"
	case ledger.Classify(err) == ledger.Validation:
		return http.StatusBadRequest, "InvalidArgument"
	}
	return http.StatusInternalServerError, "Internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("could not write json response (ignored)", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, e *api.Error) {
	writeJSON(w, status, e)
}
