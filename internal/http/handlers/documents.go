package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wordcraft/internal/domain"
)

func (a *App) DocumentsList(w http.ResponseWriter, r *http.Request) {
	docs, err := a.Documents.ListByOwner(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": docs})
}

func (a *App) DocumentCreate(w http.ResponseWriter, r *http.Request) {
	var draft domain.DocumentDraft
	if !a.decode(w, r, &draft) {
		return
	}
	draft = draft.Normalize()
	if !draft.Tool.Valid() {
		a.fail(w, r, domain.Validation("unknown tool %q", draft.Tool))
		return
	}
	d, err := a.Documents.Create(r.Context(), a.currentUserID(r), draft)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, d)
}

func (a *App) DocumentUpdate(w http.ResponseWriter, r *http.Request) {
	var patch domain.DocumentPatch
	if !a.decode(w, r, &patch) {
		return
	}
	if err := patch.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}
	id, ok := a.documentID(w, r)
	if !ok {
		return
	}
	if err := a.Documents.Update(r.Context(), a.currentUserID(r), id, patch); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) DocumentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := a.documentID(w, r)
	if !ok {
		return
	}
	if err := a.Documents.Delete(r.Context(), a.currentUserID(r), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// documentID reads the {id} path parameter. Malformed ids cannot exist and
// answer 404.
func (a *App) documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		a.fail(w, r, domain.ErrNotFound)
		return "", false
	}
	return id, true
}
