package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/food-for-zot/grocer/internal/aggregate"
	"github.com/food-for-zot/grocer/internal/model"
	"github.com/food-for-zot/grocer/internal/rank"
	"github.com/food-for-zot/grocer/internal/recipe"
	"github.com/food-for-zot/grocer/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePrices serves GET /api/prices?grocery=<item>.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("grocery")

	resp, err := s.aggregator.Aggregate(r.Context(), query)
	if err != nil {
		if errors.Is(err, aggregate.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, "grocery query parameter is required")
			return
		}
		zap.L().Error("aggregate failed", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRank serves POST /api/prices/rank.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req model.RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ranked, err := s.ranker.Rank(r.Context(), req.Query, req.Results)
	if err != nil {
		switch {
		case errors.Is(err, rank.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "query and results are required")
		case errors.Is(err, rank.ErrModelUnavailable):
			zap.L().Error("rank model call failed", zap.String("query", req.Query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "ranking model unavailable")
		default:
			zap.L().Error("rank failed", zap.String("query", req.Query), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "ranking failed")
		}
		return
	}

	if ranked == nil {
		ranked = []model.ProductResult{}
	}
	writeJSON(w, http.StatusOK, ranked)
}

// handleGenerateRecipe serves POST /api/recipes/generate.
func (s *Server) handleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var req model.RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.recipes.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, recipe.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, "at least one ingredient is required")
			return
		}
		zap.L().Error("recipe generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recipe generation failed")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListDocs(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := s.docs.List(r.Context(), collection)
		if err != nil {
			zap.L().Error("list documents failed", zap.String("collection", collection), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list failed")
			return
		}

		out := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			fields, err := doc.Fields()
			if err != nil {
				continue
			}
			fields["id"] = doc.ID
			out = append(out, fields)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleCreateDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		id, err := s.docs.Add(r.Context(), collection, body)
		if err != nil {
			zap.L().Error("create document failed", zap.String("collection", collection), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func (s *Server) handleGetDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := s.docs.Get(r.Context(), collection, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "document not found")
				return
			}
			zap.L().Error("get document failed", zap.String("collection", collection), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get failed")
			return
		}

		fields, err := doc.Fields()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "corrupt document")
			return
		}
		fields["id"] = doc.ID
		writeJSON(w, http.StatusOK, fields)
	}
}

func (s *Server) handleUpdateDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := s.docs.Update(r.Context(), collection, id, fields); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "document not found")
				return
			}
			zap.L().Error("update document failed", zap.String("collection", collection), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "update failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	}
}

func (s *Server) handleDeleteDoc(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.docs.Delete(r.Context(), collection, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "document not found")
				return
			}
			zap.L().Error("delete document failed", zap.String("collection", collection), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListItems mutates a grocery list's items field via array
// union or array remove.
func (s *Server) handleListItems(remove bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req struct {
			Items []any `json:"items"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, "items are required")
			return
		}

		var err error
		if remove {
			err = s.docs.ArrayRemove(r.Context(), "lists", id, "items", req.Items...)
		} else {
			err = s.docs.ArrayUnion(r.Context(), "lists", id, "items", req.Items...)
		}
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "list not found")
				return
			}
			zap.L().Error("list items mutation failed", zap.String("list", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "mutation failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	}
}
