// Package rest implements the broker's optional HTTP adapter, mirroring
// the management/control protocol's service operations over a
// gorilla/mux router: each Server fronts exactly one network's
// aggregator, matching the single-trust-boundary-per-aggregator scope
// the rest of this broker holds to. Service handles are minted with
// google/uuid so a client can address a service without remembering its
// numeric id.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dpbroker/dpb/pkg/aggregator"
	"github.com/dpbroker/dpb/pkg/auth"
	"github.com/dpbroker/dpb/pkg/bandwidth"
	"github.com/dpbroker/dpb/pkg/planner"
	"github.com/dpbroker/dpb/pkg/service"
	"github.com/dpbroker/dpb/pkg/util"
)

// ActivationTimeout bounds how long an activate/deactivate/release
// request waits before the REST layer gives up and reports 500, per the
// "500 when activation exceeds the server-side timeout" contract.
const ActivationTimeout = 30 * time.Second

// Server fronts one network's Aggregator with the REST surface.
type Server struct {
	network *aggregator.Aggregator
	checker *auth.Checker
	router  *mux.Router

	mu      sync.Mutex
	handles map[string]int64
}

// NewServer builds a Server for network, enforcing checker's permission
// policy on every mutating request.
func NewServer(network *aggregator.Aggregator, checker *auth.Checker) *Server {
	s := &Server{
		network: network,
		checker: checker,
		handles: make(map[string]int64),
	}
	s.router = mux.NewRouter().StrictSlash(false)
	s.router.HandleFunc("/create-service", s.handleCreateService).Methods(http.MethodPost)
	s.router.HandleFunc("/service/by-handle/{uuid}", s.handlePutByHandle).Methods(http.MethodPut)
	s.router.HandleFunc("/service/by-handle/{uuid}", s.handleDeleteByHandle).Methods(http.MethodDelete)
	s.router.HandleFunc("/service/{id}/{op}", s.handleServiceOp).Methods(http.MethodPost)
	s.router.HandleFunc("/services", s.handleListServices).Methods(http.MethodGet)
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

type circuitSpec struct {
	Terminal string  `json:"terminal"`
	In       float64 `json:"in"`
	Out      float64 `json:"out"`
}

type createServiceRequest struct {
	Handle    string        `json:"handle,omitempty"`
	Endpoints []circuitSpec `json:"endpoints"`
}

func (s *Server) createService(req createServiceRequest) (*service.Service, *planner.Result, error) {
	endpoints := make([]planner.Endpoint, len(req.Endpoints))
	pairs := make([]bandwidth.Pair, len(req.Endpoints))
	for i, c := range req.Endpoints {
		endpoints[i] = planner.Endpoint{Index: i, Terminal: c.Terminal, Network: s.network.Name()}
		pairs[i] = bandwidth.Pair{Ingress: bandwidth.Exact(c.In), Egress: bandwidth.Exact(c.Out)}
	}
	return s.network.InitiateService(context.Background(), planner.Request{
		Endpoints: endpoints,
		Function:  bandwidth.NewPairFunction(pairs),
	})
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, auth.PermServiceDefine, nil); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	var body createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	handle := body.Handle
	if handle == "" {
		handle = uuid.New().String()
	}

	s.mu.Lock()
	if _, exists := s.handles[handle]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, errors.New("handle already bound"))
		return
	}
	s.mu.Unlock()

	svc, result, err := s.createService(body)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	s.handles[handle] = svc.ID()
	s.mu.Unlock()

	groups := make(map[string]int, len(result.Groups))
	for network, eps := range result.Groups {
		groups[network] = len(eps)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"handle":     handle,
		"service-id": svc.ID(),
		"groups":     groups,
	})
}

func (s *Server) handlePutByHandle(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, auth.PermServiceDefine, nil); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	handle := mux.Vars(r)["uuid"]

	s.mu.Lock()
	if _, exists := s.handles[handle]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, errors.New("handle already bound"))
		return
	}
	s.mu.Unlock()

	var body createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	svc, _, err := s.createService(body)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	s.handles[handle] = svc.ID()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"handle": handle, "service-id": svc.ID()})
}

func (s *Server) handleDeleteByHandle(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, auth.PermServiceRelease, nil); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	handle := mux.Vars(r)["uuid"]

	s.mu.Lock()
	id, exists := s.handles[handle]
	s.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, errors.New("handle not bound"))
		return
	}

	svc, err := s.network.GetService(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	ctx, cancel := contextWithTimeout(ActivationTimeout)
	defer cancel()
	if err := svc.Release(ctx); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.mu.Lock()
	delete(s.handles, handle)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

type awaitStatusRequest struct {
	States    []string `json:"states"`
	TimeoutMs int      `json:"timeout-ms"`
}

type defineRequest struct {
	Segments []service.Segment `json:"segments"`
}

func (s *Server) handleServiceOp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := parseServiceID(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	svc, err := s.network.GetService(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	op := vars["op"]
	perm, ok := opPermission(op)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown operation"))
		return
	}
	if err := s.authorize(r, perm, nil); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	ctx, cancel := contextWithTimeout(ActivationTimeout)
	defer cancel()

	switch op {
	case "activate":
		if err := svc.Activate(ctx); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	case "deactivate":
		if err := svc.Deactivate(ctx); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	case "release":
		if err := svc.Release(ctx); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	case "define":
		var body defineRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := svc.Define(ctx, body.Segments); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	case "await-status":
		var body awaitStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		states := make([]service.State, 0, len(body.States))
		for _, name := range body.States {
			st, err := service.ParseState(name)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			states = append(states, st)
		}
		timeout := time.Duration(body.TimeoutMs) * time.Millisecond
		got := svc.AwaitStatus(states, timeout)
		writeJSON(w, http.StatusOK, map[string]interface{}{"state": got.String()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"state": svc.State().String()})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r, auth.PermServiceView, nil); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	ids := s.network.GetServiceIDs()
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		svc, err := s.network.GetService(id)
		if err != nil {
			continue
		}
		out = append(out, map[string]interface{}{"id": id, "state": svc.State().String()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"services": out})
}

func opPermission(op string) (auth.Permission, bool) {
	switch op {
	case "activate":
		return auth.PermServiceActivate, true
	case "deactivate":
		return auth.PermServiceDeactivate, true
	case "release":
		return auth.PermServiceRelease, true
	case "define":
		return auth.PermServiceDefine, true
	case "await-status":
		return auth.PermServiceView, true
	default:
		return "", false
	}
}

// authorize checks perm for the request's basic-auth user (REST requests
// authenticate with HTTP basic auth, verified upstream by the checker's
// own network policy rather than a session handshake).
func (s *Server) authorize(r *http.Request, perm auth.Permission, actx *auth.Context) error {
	username, _, ok := r.BasicAuth()
	if !ok {
		username = "unknown"
	}
	return s.checker.CheckUser(username, perm, actx)
}

func statusFor(err error) int {
	var notFound *util.NotFoundError
	var conflict *util.ConflictError
	var stateErr *util.StateError
	var validation *util.ValidationError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &stateErr), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrCapacityExhausted), errors.Is(err, util.ErrInferiorFailure),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func parseServiceID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
