package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"staking-sync/internal/reconciler"
	"staking-sync/internal/registry"
	"staking-sync/internal/storage"
)

// Reconciler runs one reconciliation cycle.
type Reconciler interface {
	ReconcileAll(ctx context.Context) reconciler.Report
}

type stakingView struct {
	TokenAddress   string      `json:"token_address"`
	StakingAddress string      `json:"staking_address"`
	DisplayName    string      `json:"display_name"`
	ProjectName    string      `json:"project_name"`
	ChainName      string      `json:"chain_name"`
	Stablecoin     bool        `json:"is_stablecoin"`
	Categories     []string    `json:"categories"`
	LogoURL        string      `json:"logo_url"`
	APY            json.Number `json:"apy"`
	TVL            json.Number `json:"tvl"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func toView(rec storage.StakingRecord) stakingView {
	categories := rec.Categories
	if categories == nil {
		categories = []string{}
	}
	return stakingView{
		TokenAddress:   rec.TokenAddress,
		StakingAddress: rec.StakingAddress,
		DisplayName:    rec.DisplayName,
		ProjectName:    rec.ProjectName,
		ChainName:      rec.ChainName,
		Stablecoin:     rec.Stablecoin,
		Categories:     categories,
		LogoURL:        rec.LogoURL,
		APY:            json.Number(rec.APY.String()),
		TVL:            json.Number(rec.TVL.String()),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

// ListStaking returns every stored record.
func ListStaking(store storage.RecordReader, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.GetAll(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("failed to list staking records")
			http.Error(w, `{"error":"Failed to fetch staking data"}`, http.StatusInternalServerError)
			return
		}

		views := make([]stakingView, 0, len(records))
		for _, rec := range records {
			views = append(views, toView(rec))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// GetStaking returns the record for the token address in the URL.
func GetStaking(store storage.RecordReader, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address, ok := registry.ParseAddress(chi.URLParam(r, "address"))
		if !ok {
			http.Error(w, `{"error":"Invalid token address"}`, http.StatusBadRequest)
			return
		}

		rec, err := store.GetByKey(r.Context(), address)
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, `{"error":"Staking data not found"}`, http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("token_address", address).Msg("failed to get staking record")
			http.Error(w, `{"error":"Failed to fetch staking data"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toView(rec))
	}
}

type entryResult struct {
	TokenKey     string `json:"token_key"`
	TokenAddress string `json:"token_address"`
	Status       string `json:"status"`
	Stage        string `json:"stage,omitempty"`
	Created      bool   `json:"created"`
	Error        string `json:"error,omitempty"`
}

type updateResponse struct {
	Message   string        `json:"message"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []entryResult `json:"results"`
}

// UpdateStaking runs one reconciliation cycle and reports per-entry outcomes.
// The response is 200 whenever the cycle iterated the registry. The cycle
// runs to completion even if the client goes away.
func UpdateStaking(rec Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := rec.ReconcileAll(context.WithoutCancel(r.Context()))

		resp := updateResponse{
			Message:   "Staking data updated successfully",
			Succeeded: report.Succeeded(),
			Failed:    report.Failed(),
			Results:   make([]entryResult, 0, len(report.Results)),
		}
		if resp.Failed > 0 {
			resp.Message = "Staking data update completed with failures"
		}
		for _, res := range report.Results {
			out := entryResult{
				TokenKey:     res.TokenKey,
				TokenAddress: res.TokenAddress,
				Status:       string(res.Status),
				Stage:        res.Stage,
				Created:      res.Created,
			}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}
			resp.Results = append(resp.Results, out)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
