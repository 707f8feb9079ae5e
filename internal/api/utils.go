package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/susu3304/tozlow/internal/escrow"
)

func generateRandomString(length int) string {
	// base64 encoding increases size by ~4/3, so we need fewer input bytes
	byteLength := (length * 3) / 4
	if byteLength < length {
		byteLength = length
	}

	b := make([]byte, byteLength)
	rand.Read(b)
	encoded := base64.URLEncoding.EncodeToString(b)
	if len(encoded) > length {
		return encoded[:length]
	}
	return encoded
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEscrowError answers with the error kind and its user-facing message.
func writeEscrowError(w http.ResponseWriter, err error) {
	kind := escrow.KindOf(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: %v", err)
		kind = "Internal"
	}
	writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": escrow.Message(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, escrow.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrTransferFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, escrow.ErrNotEnoughParticipants),
		errors.Is(err, escrow.ErrTooManyParticipants),
		errors.Is(err, escrow.ErrDuplicateParticipant),
		errors.Is(err, escrow.ErrInvalidParticipant),
		errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidVotingPeriod),
		errors.Is(err, escrow.ErrInvalidAbsent),
		errors.Is(err, escrow.ErrCannotVoteSelf):
		return http.StatusBadRequest
	case escrow.KindOf(err) != "":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func sessionID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}
