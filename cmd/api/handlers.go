package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mordian/w40k-companion/internal/datasheet"
	"github.com/mordian/w40k-companion/internal/mathhammer"
	"github.com/mordian/w40k-companion/internal/models"
	"github.com/mordian/w40k-companion/internal/roster"
	"github.com/mordian/w40k-companion/internal/session"
	"github.com/mordian/w40k-companion/internal/stats"
)

// server bundles the stores behind the HTTP handlers.
type server struct {
	log      *zap.Logger
	store    *datasheet.Store
	sessions *session.Store
	rosters  *roster.Store
	stats    *stats.Store
	hub      *session.Hub
}

func (s *server) routes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	api.HandleFunc("/factions", s.handleFactions).Methods(http.MethodGet)
	api.HandleFunc("/factions/{faction}/units", s.handleUnits).Methods(http.MethodGet)
	api.HandleFunc("/factions/{faction}/units/{unit}", s.handleUnitDetail).Methods(http.MethodGet)
	api.HandleFunc("/factions/{faction}/units/{unit}/{resource}", s.handleUnitResource).Methods(http.MethodGet)

	api.HandleFunc("/mathhammer", s.handleCalc).Methods(http.MethodPost)
	api.HandleFunc("/mathhammer/matrix", s.handleMatrix).Methods(http.MethodPost)
	api.HandleFunc("/mathhammer/brief", s.handleBrief).Methods(http.MethodPost)

	api.HandleFunc("/sessions", s.handleSessionCreate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.handleSessionGet).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/log", s.handleSessionLog).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/feed", s.handleSessionFeed).Methods(http.MethodGet)

	api.HandleFunc("/rosters", s.handleRosterList).Methods(http.MethodGet)
	api.HandleFunc("/rosters", s.handleRosterCreate).Methods(http.MethodPost)
	api.HandleFunc("/rosters/{id}", s.handleRosterGet).Methods(http.MethodGet)
	api.HandleFunc("/rosters/{id}", s.handleRosterDelete).Methods(http.MethodDelete)

	api.HandleFunc("/stats/daily", s.handleStatsDaily).Methods(http.MethodGet)
	api.HandleFunc("/stats/user", s.handleStatsUser).Methods(http.MethodGet)
}

// logRequests logs one debug line per request.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"factions": len(s.store.FactionsList),
		"units":    len(s.store.UnitsByID),
	})
}

func (s *server) handleFactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.FactionsList)
}

func (s *server) handleUnits(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["faction"]
	fac, ok := s.store.FindFaction(ref)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown faction: "+ref)
		return
	}
	// copy before filtering so the store's slice stays untouched
	src := s.store.UnitsByFac[fac.ID]
	units := make([]datasheet.Unit, len(src))
	copy(units, src)

	q := r.URL.Query()
	if role := strings.ToLower(q.Get("role")); role != "" {
		filtered := units[:0]
		for _, u := range units {
			if strings.ToLower(u.Role) == role {
				filtered = append(filtered, u)
			}
		}
		units = filtered
	}
	if needle := strings.ToLower(q.Get("q")); needle != "" {
		filtered := units[:0]
		for _, u := range units {
			if strings.Contains(strings.ToLower(u.Name), needle) {
				filtered = append(filtered, u)
			}
		}
		units = filtered
	}
	// sort param: name|id (default name)
	switch strings.ToLower(q.Get("sort")) {
	case "id":
		sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	default:
		sort.Slice(units, func(i, j int) bool {
			return strings.ToLower(units[i].Name) < strings.ToLower(units[j].Name)
		})
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = len(units)
	}
	if offset > len(units) {
		offset = len(units)
	}
	end := offset + limit
	if end > len(units) {
		end = len(units)
	}
	writeJSON(w, units[offset:end])
}

// resolveUnit maps the {faction}/{unit} path segments onto a datasheet,
// writing the 404 itself when either segment is unknown.
func (s *server) resolveUnit(w http.ResponseWriter, r *http.Request) (datasheet.Unit, bool) {
	v := mux.Vars(r)
	fac, ok := s.store.FindFaction(v["faction"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown faction: "+v["faction"])
		return datasheet.Unit{}, false
	}
	u, ok := s.store.FindUnit(fac.ID, v["unit"])
	if !ok {
		writeError(w, http.StatusNotFound, "unknown unit: "+v["unit"])
		return datasheet.Unit{}, false
	}
	return u, true
}

func (s *server) handleUnitDetail(w http.ResponseWriter, r *http.Request) {
	u, ok := s.resolveUnit(w, r)
	if !ok {
		return
	}
	detail, ok := s.store.Detail(u.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown unit: "+u.ID)
		return
	}
	writeJSON(w, detail)
}

func (s *server) handleUnitResource(w http.ResponseWriter, r *http.Request) {
	u, ok := s.resolveUnit(w, r)
	if !ok {
		return
	}
	switch mux.Vars(r)["resource"] {
	case "weapons":
		list := s.store.WargearByDS[u.ID]
		if list == nil {
			list = []datasheet.Wargear{}
		}
		writeJSON(w, list)
	case "models":
		list := s.store.ModelsByDS[u.ID]
		if list == nil {
			list = []datasheet.Model{}
		}
		writeJSON(w, list)
	case "keywords":
		list := s.store.KeywordsByDS[u.ID]
		if list == nil {
			list = []datasheet.Keyword{}
		}
		writeJSON(w, list)
	case "abilities":
		list := s.store.AbilitiesByDS[u.ID]
		if list == nil {
			list = []datasheet.Ability{}
		}
		writeJSON(w, list)
	case "costs":
		list := s.store.CostsByDS[u.ID]
		if list == nil {
			list = []datasheet.ModelCost{}
		}
		writeJSON(w, list)
	default:
		writeError(w, http.StatusNotFound, "unsupported path")
	}
}

// writeCalcError maps engine validation failures to a 400 carrying the
// offending field; anything else is a 500.
func writeCalcError(w http.ResponseWriter, err error) {
	var ve *mathhammer.ValidationError
	if errors.As(err, &ve) {
		writeFieldError(w, http.StatusBadRequest, ve.Field, ve.Reason)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var req models.CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	wp, def, mods, err := req.Build()
	if err != nil {
		writeCalcError(w, err)
		return
	}
	res, err := mathhammer.Calculate(wp, def, mods)
	if err != nil {
		writeCalcError(w, err)
		return
	}
	out := models.NewCalcResult(res)

	user := r.URL.Query().Get("username")
	if req.Trace {
		if sim, err := mathhammer.Simulate(wp, def, mods, nil); err == nil {
			out.Trace = sim
			s.stats.RecordSim(user)
		}
	}
	s.stats.RecordCalc(user, req.Weapon.Name, req.Defender.Name, out.ExpectedDamage, out.ExpectedKills)
	writeJSON(w, out)
}

func (s *server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	var req models.MatrixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Weapons) == 0 || len(req.Defenders) == 0 {
		writeError(w, http.StatusBadRequest, "weapons and defenders required")
		return
	}
	weapons, defenders, mods, err := req.Build()
	if err != nil {
		writeCalcError(w, err)
		return
	}
	writeJSON(w, models.NewMatrixResult(mathhammer.Matrix(weapons, defenders, mods)))
}

func (s *server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string   `json:"name"`
		Players []string `json:"players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rec, err := s.sessions.Create(body.Name, body.Players)
	if err != nil {
		s.log.Error("create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not persist session")
		return
	}
	writeJSON(w, rec)
}

func (s *server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, rec)
}

func (s *server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var e session.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rec, err := s.sessions.Append(id, e)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.log.Error("append session entry", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not persist entry")
		return
	}
	s.hub.Broadcast(id, models.WsMsg{Type: "entry", Data: rec.Entries[len(rec.Entries)-1]})
	writeJSON(w, rec)
}

func (s *server) handleSessionFeed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	conn, err := session.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.String("id", id), zap.Error(err))
		return
	}
	s.hub.Serve(id, conn)
}

func (s *server) handleRosterList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rosters.List())
}

func (s *server) handleRosterCreate(w http.ResponseWriter, r *http.Request) {
	var body roster.Roster
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	roster.Price(&body, s.store)
	created, err := s.rosters.Create(body)
	if err != nil {
		s.log.Error("create roster", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not persist roster")
		return
	}
	writeJSON(w, created)
}

func (s *server) handleRosterGet(w http.ResponseWriter, r *http.Request) {
	ro, ok := s.rosters.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "roster not found")
		return
	}
	writeJSON(w, ro)
}

func (s *server) handleRosterDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.rosters.Delete(mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			writeError(w, http.StatusNotFound, "roster not found")
			return
		}
		s.log.Error("delete roster", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete roster")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
