package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/service/explore"
	"github.com/coraldao/vote-wallet/service/masternode"
	"github.com/coraldao/vote-wallet/service/voting"
	"github.com/coraldao/vote-wallet/store"
)

func New(
	votingc *voting.Controller,
	explorec *explore.Controller,
	masternodes core.MasternodeService,
	geo core.GeoService,
	properties core.PropertyStore,
	logger *slog.Logger,
) *Server {
	return &Server{
		voting:      votingc,
		explore:     explorec,
		masternodes: masternodes,
		geo:         geo,
		properties:  properties,
		logger:      logger.With("server", "api"),
	}
}

type Server struct {
	voting      *voting.Controller
	explore     *explore.Controller
	masternodes core.MasternodeService
	geo         core.GeoService
	properties  core.PropertyStore
	logger      *slog.Logger
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/voting", func(r chi.Router) {
		r.Get("/snapshot", s.votingSnapshot)
		r.Post("/refresh", s.votingRefresh)
		r.Post("/filters", s.votingApplyFilters)
		r.Post("/search", s.votingSearch)
		r.Post("/vote-first-submitted", s.votingVoteFirstSubmitted)

		r.Route("/requests/{request_id}", func(r chi.Router) {
			r.Get("/votes-left", s.votesLeft)
			r.Post("/vote", s.voteAction(s.voting.Vote))
			r.Post("/revoke", s.voteAction(s.voting.Revoke))
			r.Post("/block", s.voteAction(s.voting.Block))
			r.Post("/unblock", s.voteAction(s.voting.Unblock))
		})
	})

	r.Route("/explore", func(r chi.Router) {
		r.Get("/snapshot", s.exploreSnapshot)
		r.Post("/segment", s.exploreSegment)
		r.Post("/search", s.exploreSearch)
		r.Post("/next-page", s.exploreNextPage)
		r.Get("/geocode", s.exploreGeocode)
	})

	r.Route("/masternode/keys", func(r chi.Router) {
		r.Get("/", s.listMasternodeKeys)
		r.Post("/", s.registerMasternodeKey)
	})

	r.Route("/preferences/{key}", func(r chi.Router) {
		r.Get("/", s.getPreference)
		r.Put("/", s.setPreference)
	})

	return r
}

func (s *Server) votingSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.voting.Snapshots().Latest()
	if !ok {
		renderError(w, http.StatusNotFound, "no snapshot yet, refresh first")
		return
	}

	renderJSON(w, http.StatusOK, snap)
}

func (s *Server) votingRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.voting.Refresh(r.Context()); err != nil {
		renderError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	snap, _ := s.voting.Snapshots().Latest()
	renderJSON(w, http.StatusOK, snap)
}

func (s *Server) votingApplyFilters(w http.ResponseWriter, r *http.Request) {
	var filters core.VotingFilters
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		renderError(w, http.StatusBadRequest, "invalid filters")
		return
	}

	if filters.SortBy > core.SortByVotesDescending || filters.FilterBy > core.FilterByNotApproved {
		renderError(w, http.StatusBadRequest, "invalid filters")
		return
	}

	if err := s.voting.Apply(r.Context(), filters); err != nil {
		renderError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	snap, _ := s.voting.Snapshots().Latest()
	renderJSON(w, http.StatusOK, snap)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) votingSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid query")
		return
	}

	// Applied after the debounce window, against the cached groups.
	s.voting.SetQuery(req.Query)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) votingVoteFirstSubmitted(w http.ResponseWriter, r *http.Request) {
	if err := s.voting.VoteForAllFirstSubmitted(r.Context()); err != nil {
		renderError(w, http.StatusInternalServerError, "batch vote failed")
		return
	}

	snap, _ := s.voting.Snapshots().Latest()
	renderJSON(w, http.StatusOK, snap)
}

func (s *Server) votesLeft(w http.ResponseWriter, r *http.Request) {
	left := s.voting.VotesLeft(chi.URLParam(r, "request_id"))
	renderJSON(w, http.StatusOK, map[string]int{"votes_left": left})
}

func (s *Server) voteAction(action func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "request_id")

		if err := action(r.Context(), id); err != nil {
			if store.IsErrNotFound(err) {
				renderError(w, http.StatusNotFound, "request not found")
				return
			}

			renderError(w, http.StatusInternalServerError, "action failed")
			return
		}

		signal, _ := s.voting.Actions().Latest()
		renderJSON(w, http.StatusOK, signal)
	}
}

func (s *Server) listMasternodeKeys(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, s.masternodes.Keys(r.Context()))
}

type registerKeyRequest struct {
	Key string `json:"key"`
	IP  string `json:"ip"`
}

func (s *Server) registerMasternodeKey(w http.ResponseWriter, r *http.Request) {
	var req registerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid body")
		return
	}

	key, err := s.masternodes.Register(r.Context(), req.Key, req.IP)
	switch {
	case errors.Is(err, masternode.ErrInvalidKey), errors.Is(err, masternode.ErrInvalidIP):
		renderError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		renderError(w, http.StatusInternalServerError, "register failed")
		return
	}

	renderJSON(w, http.StatusCreated, key)
}

func (s *Server) exploreSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.explore.Snapshots().Latest()
	if !ok {
		renderError(w, http.StatusNotFound, "no snapshot yet, pick a segment first")
		return
	}

	renderJSON(w, http.StatusOK, snap)
}

type segmentRequest struct {
	Segment explore.Segment `json:"segment"`
}

func (s *Server) exploreSegment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Segment > explore.SegmentATMsBuySell {
		renderError(w, http.StatusBadRequest, "invalid segment")
		return
	}

	if err := s.explore.SwitchSegment(r.Context(), req.Segment); err != nil {
		renderError(w, http.StatusInternalServerError, "segment load failed")
		return
	}

	snap, _ := s.explore.Snapshots().Latest()
	renderJSON(w, http.StatusOK, snap)
}

func (s *Server) exploreSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid query")
		return
	}

	if err := s.explore.Fetch(r.Context(), req.Query); err != nil {
		renderError(w, http.StatusInternalServerError, "search failed")
		return
	}

	snap, _ := s.explore.Snapshots().Latest()
	renderJSON(w, http.StatusOK, snap)
}

func (s *Server) exploreNextPage(w http.ResponseWriter, r *http.Request) {
	if err := s.explore.FetchNextPage(r.Context()); err != nil {
		renderError(w, http.StatusInternalServerError, "next page failed")
		return
	}

	snap, _ := s.explore.Snapshots().Latest()
	renderJSON(w, http.StatusOK, snap)
}

func (s *Server) exploreGeocode(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		renderError(w, http.StatusBadRequest, "q is required")
		return
	}

	loc, err := s.geo.Geocode(r.Context(), query)
	if err != nil {
		s.logger.Error("geo.Geocode", "err", err)
		renderError(w, http.StatusBadGateway, "geocode failed")
		return
	}

	renderJSON(w, http.StatusOK, loc)
}

func (s *Server) getPreference(w http.ResponseWriter, r *http.Request) {
	var value bool
	if err := s.properties.Get(r.Context(), chi.URLParam(r, "key"), &value); err != nil {
		renderError(w, http.StatusInternalServerError, "read failed")
		return
	}

	renderJSON(w, http.StatusOK, map[string]bool{"value": value})
}

type preferenceRequest struct {
	Value bool `json:"value"`
}

func (s *Server) setPreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := s.properties.Set(r.Context(), chi.URLParam(r, "key"), req.Value); err != nil {
		renderError(w, http.StatusInternalServerError, "write failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
