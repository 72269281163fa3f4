package handlers

import (
	"net/http"

	"wordcraft/internal/domain"
)

func (a *App) ProfileGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.Profiles.GetByID(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, p)
}

func (a *App) ProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if !a.decode(w, r, &patch) {
		return
	}
	if err := patch.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}
	userID := a.currentUserID(r)
	if patch.Empty() {
		a.ProfileGet(w, r)
		return
	}
	p, err := a.Profiles.Update(r.Context(), userID, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, p)
}

// ProfileDelete removes the account. Its profile, documents and sessions go
// with it and open event streams are told the session ended.
func (a *App) ProfileDelete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if err := a.Accounts.Delete(r.Context(), userID); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Logger.Info().Str("user_id", userID).Msg("account deleted")
	if a.Hub != nil {
		a.Hub.EndUser(userID)
	}
	w.WriteHeader(http.StatusNoContent)
}
