package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/floppyflax/beer-pong-league-sub000/middleware"
	"github.com/floppyflax/beer-pong-league-sub000/services"
)

type LeagueHandler struct {
	leagueService  services.LeagueService
	rankingService services.RankingService
}

func NewLeagueHandler(leagueService services.LeagueService, rankingService services.RankingService) *LeagueHandler {
	return &LeagueHandler{
		leagueService:  leagueService,
		rankingService: rankingService,
	}
}

func (h *LeagueHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		services.CreateLeagueInput
		AnonymousUserID *string `json:"anonymous_user_id,omitempty"`
	}

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	applyCreator(r, &input.CreatorUserID, &input.CreatorAnonymousUserID, input.AnonymousUserID)

	league, err := h.leagueService.Create(r.Context(), input.CreateLeagueInput)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"league": league}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	league, err := h.leagueService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"league": league}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) List(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.leagueService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"leagues": leagues}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.leagueService.Rename(r.Context(), id, input.Name); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := map[string]string{"message": "league renamed"}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.leagueService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LeagueHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.AddPlayerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.leagueService.AddPlayer(r.Context(), leagueID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"player": player}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Ranking returns the league's global standings, best rating first.
func (h *LeagueHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.rankingService.LeagueGlobalRanking(r.Context(), leagueID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"ranking": players}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LeagueHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	leagueID, err := getIDFromURL(r, "leagueID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	err = r.ParseMultipartForm(32 << 20)
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get logo file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for logo"))
		return
	}

	league, err := h.leagueService.UploadLogo(r.Context(), leagueID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"league": league}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// applyCreator resolves the creating identity for write endpoints that are
// open to both authenticated and anonymous users. A JWT-authenticated user
// wins; otherwise the anonymous id supplied in the body is used.
func applyCreator(r *http.Request, creatorUserID, creatorAnonymousUserID **string, anonymousUserID *string) {
	if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
		*creatorUserID = &userID
		return
	}
	*creatorAnonymousUserID = anonymousUserID
}
