package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/request"
	"github.com/wardenbot/warden/pkg/transcripts"
)

// historyDays is how many per-day rows the stats endpoint returns.
const historyDays = 30

// transcriptController serves stored transcript artifacts as JSON.
func (a *App) transcriptController() Controller {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		t, err := a.store.Get(id)
		if errors.Is(err, transcripts.ErrNotFound) {
			a.writeJSON(w, http.StatusNotFound, request.NewMessage("Transcript not found"))
			return
		} else if err != nil {
			a.Error("Error loading transcript", slog.String(logging.KeyError, err.Error()))
			a.writeJSON(w, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			return
		}

		a.writeJSON(w, http.StatusOK, t)
	}
}

// guildStatsController serves the guild's live counts plus its recent per-day
// history.
func (a *App) guildStatsController() Controller {
	type response struct {
		Stats   *entities.GuildStats   `json:"stats"`
		History []*entities.DailyStats `json:"history"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		guildID := mux.Vars(r)["id"]

		stats, err := a.stats.Snapshot(r.Context(), guildID)
		if err != nil {
			a.Error("Error getting guild stats", slog.String(logging.KeyGuildID, guildID), slog.String(logging.KeyError, err.Error()))
			a.writeJSON(w, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			return
		}

		history, err := a.stats.History(r.Context(), guildID, historyDays)
		if err != nil {
			a.Error("Error getting guild stats history", slog.String(logging.KeyGuildID, guildID), slog.String(logging.KeyError, err.Error()))
			a.writeJSON(w, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			return
		}

		a.writeJSON(w, http.StatusOK, &response{Stats: stats, History: history})
	}
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
	}
}
