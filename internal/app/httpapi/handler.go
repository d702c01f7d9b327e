package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	app "github.com/MicroTip-Network/tip_layer/internal/app"
	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
)

// handler bundles HTTP endpoints for the tipping engine.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API. Reads are open;
// writes require a Bearer proof covering the acting participant.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/tips", h.tips)
	mux.HandleFunc("/tips/count", h.tipsCount)
	mux.HandleFunc("/withdrawals", h.withdrawals)
	mux.HandleFunc("/participants/", h.participantResources)
	mux.HandleFunc("/auth/proofs", h.issueProof)
	mux.HandleFunc("/healthz", h.health)
	return mux
}

func (h *handler) tips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Token   string `json:"token"`
		Amount  string `json:"amount"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tipID, err := h.app.Tipping.SendTip(r.Context(), bearerProof(r), payload.From, payload.To, payload.Token, amount, payload.Message)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"tip_id": tipID})
}

func (h *handler) withdrawals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		User   string `json:"user"`
		Token  string `json:"token"`
		Amount string `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Tipping.Withdraw(r.Context(), bearerProof(r), payload.User, payload.Token, amount); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) tipsCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	count, err := h.app.Tipping.GetTotalTipsCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"count": count})
}

func (h *handler) participantResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/participants"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	participant := parts[0]

	switch parts[1] {
	case "balance":
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		if token == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("token query parameter is required"))
			return
		}
		bal, err := h.app.Tipping.GetBalance(r.Context(), participant, token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, balanceView(bal))

	case "profile":
		profile, err := h.app.Tipping.GetUserProfile(r.Context(), participant)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, profileView(profile))

	case "tips":
		received, err := h.app.Tipping.GetTipsForUser(r.Context(), participant)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		views := make([]tipView, 0, len(received))
		for _, record := range received {
			views = append(views, newTipView(record))
		}
		writeJSON(w, http.StatusOK, views)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) issueProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Participant string `json:"participant"`
		TTLSeconds  int64  `json:"ttl_seconds"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.Participant) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("participant is required"))
		return
	}
	if payload.TTLSeconds <= 0 {
		payload.TTLSeconds = 3600
	}

	proof, err := h.app.Auth.IssueProof(payload.Participant, time.Duration(payload.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"proof": proof})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Response views render amounts as decimal strings so clients never lose
// precision on 128-bit values.

type balanceResponse struct {
	TotalReceived string `json:"total_received"`
	Available     string `json:"available"`
	Withdrawn     string `json:"withdrawn"`
	Token         string `json:"token"`
}

func balanceView(bal tip.Balance) balanceResponse {
	return balanceResponse{
		TotalReceived: bal.TotalReceived.String(),
		Available:     bal.Available.String(),
		Withdrawn:     bal.Withdrawn.String(),
		Token:         bal.Token,
	}
}

type profileResponse struct {
	TipsSent         uint64 `json:"tips_sent"`
	TipsReceived     uint64 `json:"tips_received"`
	TotalSent        string `json:"total_sent"`
	TotalReceived    string `json:"total_received"`
	FirstInteraction uint64 `json:"first_interaction"`
}

func profileView(profile tip.UserProfile) profileResponse {
	return profileResponse{
		TipsSent:         profile.TipsSent,
		TipsReceived:     profile.TipsReceived,
		TotalSent:        profile.TotalSent.String(),
		TotalReceived:    profile.TotalReceived.String(),
		FirstInteraction: profile.FirstInteraction,
	}
}

type tipView struct {
	ID        uint64 `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Message   string `json:"message"`
	Timestamp uint64 `json:"timestamp"`
	Token     string `json:"token"`
}

func newTipView(record tip.Tip) tipView {
	return tipView{
		ID:        record.ID,
		From:      record.From,
		To:        record.To,
		Amount:    record.Amount.String(),
		Message:   record.Message,
		Timestamp: record.Timestamp,
		Token:     record.Token,
	}
}

func bearerProof(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func parseAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("amount is required")
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, tip.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, tip.ErrInvalidAmount),
		errors.Is(err, tip.ErrSelfTip),
		errors.Is(err, tip.ErrMessageTooLong):
		return http.StatusBadRequest
	case errors.Is(err, tip.ErrNoBalance):
		return http.StatusNotFound
	case errors.Is(err, tip.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, tip.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
