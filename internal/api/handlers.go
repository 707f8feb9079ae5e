package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/susu3304/tozlow/internal/escrow"
)

type memberView struct {
	Index        int            `json:"index"`
	UserID       escrow.Address `json:"user_id"`
	Deposited    bool           `json:"deposited"`
	Voted        bool           `json:"voted"`
	AbsenceVotes int            `json:"absence_votes"`
}

type sessionView struct {
	escrow.Session
	VotingPeriodSeconds int64         `json:"voting_period_seconds"`
	VoteEnd             time.Time     `json:"vote_end"`
	Status              escrow.Status `json:"status"`
	Members             []memberView  `json:"members"`
}

func newSessionView(st *escrow.State, now time.Time) sessionView {
	v := sessionView{
		Session:             st.Session,
		VotingPeriodSeconds: int64(st.VotingPeriod / time.Second),
		VoteEnd:             st.VoteEnd(),
		Status:              st.StatusAt(now),
	}
	for i, p := range st.Participants {
		v.Members = append(v.Members, memberView{
			Index:        i,
			UserID:       p,
			Deposited:    st.Deposited[p],
			Voted:        st.Voted[p],
			AbsenceVotes: st.AbsenceVotes[p],
		})
	}
	return v
}

// Public handlers
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	count, err := a.escrow.SessionCount(r.Context())
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	asset, err := a.escrow.AssetAddress(r.Context())
	if err != nil {
		writeEscrowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_count":  count,
		"asset":          asset,
		"asset_decimals": a.config.AssetDecimals,
	})
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	st, err := a.escrow.Session(r.Context(), id)
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(st, a.escrow.Now()))
}

func (a *API) handleParticipantAt(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}

	addr, err := a.escrow.ParticipantAt(r.Context(), id, index)
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"index":   index,
		"user_id": addr,
	})
}

func (a *API) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	events, err := a.db.SessionEvents(r.Context(), id)
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	if events == nil {
		events = []escrow.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Protected handlers
func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	ids, err := a.db.SessionsByUser(r.Context(), claims.UserID, 50)
	if err != nil {
		writeEscrowError(w, err)
		return
	}

	now := a.escrow.Now()
	views := []sessionView{}
	for _, id := range ids {
		st, err := a.escrow.Session(r.Context(), id)
		if err != nil {
			writeEscrowError(w, err)
			return
		}
		views = append(views, newSessionView(st, now))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req struct {
		Amount              int64     `json:"amount"`
		Deadline            time.Time `json:"deadline"`
		VotingPeriodSeconds *int64    `json:"voting_period_seconds"`
		Participants        []string  `json:"participants"`
		ChannelID           string    `json:"channel_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	period := a.config.DefaultVotingPeriod
	if req.VotingPeriodSeconds != nil {
		if *req.VotingPeriodSeconds > math.MaxInt64/int64(time.Second) {
			writeEscrowError(w, escrow.ErrInvalidVotingPeriod)
			return
		}
		period = time.Duration(*req.VotingPeriodSeconds) * time.Second
	}
	participants := make([]escrow.Address, len(req.Participants))
	for i, p := range req.Participants {
		participants[i] = escrow.Address(p)
	}

	id, err := a.escrow.CreateSession(r.Context(), escrow.Address(claims.UserID), escrow.CreateParams{
		Amount:       req.Amount,
		Deadline:     req.Deadline,
		VotingPeriod: period,
		Participants: participants,
		ChannelID:    req.ChannelID,
	})
	if err != nil {
		writeEscrowError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id": id,
	})
}

func (a *API) handleDeposit(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	if err := a.escrow.Deposit(r.Context(), id, escrow.Address(claims.UserID)); err != nil {
		writeEscrowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "deposited",
	})
}

func (a *API) handleCastVote(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var req struct {
		Absent string `json:"absent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.escrow.CastVote(r.Context(), id, escrow.Address(claims.UserID), escrow.Address(req.Absent)); err != nil {
		writeEscrowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "vote recorded",
	})
}

func (a *API) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	res, err := a.escrow.FinalizeSession(r.Context(), id)
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleWallet(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	balance, err := a.db.Balance(r.Context(), claims.UserID)
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	entries, err := a.db.Entries(r.Context(), claims.UserID, 20)
	if err != nil {
		writeEscrowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": claims.UserID,
		"balance": balance,
		"entries": entries,
	})
}

func (a *API) handleCredit(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if !a.config.IsAdmin(claims.UserID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Amount int64  `json:"amount"`
		Memo   string `json:"memo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount <= 0 {
		http.Error(w, "user_id and a positive amount are required", http.StatusBadRequest)
		return
	}

	balance, err := a.db.Credit(r.Context(), req.UserID, req.Amount, req.Memo)
	if err != nil {
		writeEscrowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": req.UserID,
		"balance": balance,
	})
}
