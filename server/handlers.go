package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/recserve/core"
)

// 线上协议与原前端约定一致：snake_case 字段，genres 用 '|' 连接。

type recommendRequest struct {
	UserID       int64 `json:"user_id"`
	TopKRetrieve int   `json:"top_k_retrieve"`
	TopNFinal    int   `json:"top_n_final"`
}

type recommendationJSON struct {
	Rank           int     `json:"rank"`
	MovieID        int64   `json:"movie_id"`
	Title          string  `json:"title"`
	Genres         string  `json:"genres"`
	Year           int     `json:"year"`
	RankingScore   float64 `json:"ranking_score"`
	RetrievalScore float64 `json:"retrieval_score"`
}

type recommendResponse struct {
	UserID          int64                `json:"user_id"`
	Gender          string               `json:"gender"`
	Age             int                  `json:"age"`
	Occupation      int                  `json:"occupation"`
	Recommendations []recommendationJSON `json:"recommendations"`
}

type userResponse struct {
	UserID     int64  `json:"user_id"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Occupation int    `json:"occupation"`
}

type movieResponse struct {
	MovieID int64  `json:"movie_id"`
	Title   string `json:"title"`
	Genres  string `json:"genres"`
	Year    int    `json:"year"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service":        "recserve",
		"catalog_loaded": true,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":  s.resolver.UserCount(),
		"total_movies": s.store.Len(),
		"total_genres": s.store.GenreCount(),
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, core.NewDomainError(core.ModuleProfile, core.ErrorCodeInvalidParameter,
			"user id must be an integer"))
		return
	}

	prof, err := s.resolver.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		UserID:     prof.UserID,
		Gender:     prof.Gender,
		Age:        prof.Age,
		Occupation: prof.Occupation,
	})
}

func (s *Server) handleMovie(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	if err != nil {
		writeError(w, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidParameter,
			"movie id must be an integer"))
		return
	}

	meta, err := s.store.MetadataOf(movieID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movieResponse{
		MovieID: meta.MovieID,
		Title:   meta.Title,
		Genres:  meta.GenresString(),
		Year:    meta.Year,
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidParameter,
			"malformed request body"))
		return
	}

	res, err := s.svc.Recommend(r.Context(), req.UserID, req.TopKRetrieve, req.TopNFinal)
	if err != nil {
		if domainErr := core.GetDomainError(err); domainErr != nil {
			recommendErrors.WithLabelValues(domainErr.Code).Inc()
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Int64("user_id", req.UserID).Msg("recommend failed")
		writeError(w, err)
		return
	}

	recs := make([]recommendationJSON, len(res.Recommendations))
	for i, rec := range res.Recommendations {
		recs[i] = recommendationJSON{
			Rank:           rec.Rank,
			MovieID:        rec.MovieID,
			Title:          rec.Title,
			Genres:         core.JoinGenres(rec.Genres),
			Year:           rec.Year,
			RankingScore:   rec.RankingScore,
			RetrievalScore: rec.RetrievalScore,
		}
	}
	writeJSON(w, http.StatusOK, recommendResponse{
		UserID:          res.UserID,
		Gender:          res.Gender,
		Age:             res.Age,
		Occupation:      res.Occupation,
		Recommendations: recs,
	})
}

// writeError 把领域错误映射为结构化错误响应。
// 非领域错误和内部类错误一律 500 + 通用消息，不泄漏内部细节。
func writeError(w http.ResponseWriter, err error) {
	domainErr := core.GetDomainError(err)
	if domainErr == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorBody{Code: core.ErrorCodeInternalError, Message: "internal error"},
		})
		return
	}

	var status int
	message := domainErr.Message
	switch domainErr.Code {
	case core.ErrorCodeInvalidParameter:
		status = http.StatusBadRequest
	case core.ErrorCodeUserNotFound, core.ErrorCodeNotFound:
		status = http.StatusNotFound
	case core.ErrorCodeScoreError, core.ErrorCodeInternalError:
		status = http.StatusInternalServerError
		message = "internal error" // 打分细节不外露
	default:
		status = http.StatusInternalServerError
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: domainErr.Code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
