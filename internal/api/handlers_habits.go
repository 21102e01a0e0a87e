package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/habit-stake/internal/logging"
	"github.com/habit-stake/internal/service"
	"github.com/habit-stake/internal/types"
)

// requireOwner extracts the authenticated owner from the request headers.
// In production this would come from auth middleware.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := r.Header.Get("X-User-ID")
	if ownerID == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "User ID required", nil)
		return "", false
	}
	return ownerID, true
}

// handleCreateHabit handles POST /api/habits
func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var input service.CreateHabitInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.OwnerID = ownerID

	habit, err := s.habits.Create(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, habit)
}

// handleListHabits handles GET /api/habits
func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	habits, err := s.habits.List(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"habits": habits,
		"count":  len(habits),
	})
}

// handleGetHabit handles GET /api/habits/:id
func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	habitID := mux.Vars(r)["id"]

	view, err := s.habits.Get(r.Context(), habitID, ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleUpdateHabit handles PUT /api/habits/:id
func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var input service.UpdateHabitInput
	if err := parseJSONBody(r, &input); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	input.HabitID = mux.Vars(r)["id"]
	input.OwnerID = ownerID

	habit, err := s.habits.Update(r.Context(), &input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, habit)
}

// handleDeleteHabit handles DELETE /api/habits/:id - deactivates the habit
func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	habitID := mux.Vars(r)["id"]

	if err := s.habits.Delete(r.Context(), habitID, ownerID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     habitID,
		"active": false,
	})
}

// handleLogHabit handles POST /api/habits/:id/log - record and settle a
// daily outcome
func (s *Server) handleLogHabit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req struct {
		Date      string `json:"date,omitempty"`
		Completed bool   `json:"completed"`
		Notes     string `json:"notes,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	input := &service.LogInput{
		HabitID:   mux.Vars(r)["id"],
		OwnerID:   ownerID,
		Completed: req.Completed,
		Notes:     req.Notes,
		Source:    types.SourceUser,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid date, expected YYYY-MM-DD", map[string]interface{}{
				"date": req.Date,
			})
			return
		}
		input.Date = &date
	}

	result, err := s.settlement.Log(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"log":   result.Log,
		"habit": result.Habit,
	}
	if result.Transaction != nil {
		response["transaction"] = result.Transaction
	}
	if result.SettlementPending {
		response["settlementPending"] = true
		response["settlementError"] = result.SettlementError
	}

	if msg := s.encourage(r, result); msg != "" {
		response["encouragement"] = msg
	}

	respondJSON(w, http.StatusCreated, response)
}

// encourage asks the coach for a message. Failures only cost the message.
func (s *Server) encourage(r *http.Request, result *service.LogResult) string {
	if s.encourager == nil {
		return ""
	}

	event := "log"
	switch {
	case result.Log.RewardTriggered:
		event = "reward"
	case result.Log.PunishmentTriggered:
		event = "punishment"
	}

	msg, err := s.encourager.Generate(r.Context(), service.EncouragementContext{
		OwnerID:   result.Habit.OwnerID,
		HabitName: result.Habit.Name,
		Completed: result.Log.Completed,
		Streak:    result.Habit.CurrentStreak,
		Event:     event,
	})
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("encouragement unavailable")
		return ""
	}
	return msg
}

// handleGetStats handles GET /api/habits/:id/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}
	habitID := mux.Vars(r)["id"]

	stats, err := s.settlement.Stats(r.Context(), habitID, ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
