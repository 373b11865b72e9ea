package protocol

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dpbroker/dpb/pkg/aggregator"
	"github.com/dpbroker/dpb/pkg/auth"
	"github.com/dpbroker/dpb/pkg/audit"
	"github.com/dpbroker/dpb/pkg/bandwidth"
	"github.com/dpbroker/dpb/pkg/planner"
	"github.com/dpbroker/dpb/pkg/service"
	"github.com/dpbroker/dpb/pkg/trunk"
)

// Session tracks the stateful context one connected caller accumulates
// across messages: the network and service currently selected (set by
// "network" and "service"), the circuit endpoints being assembled
// before "initiate", and the access level authorized for this
// connection. The CLI and the SSH protocol share exactly this
// accumulator model, one command building on the last.
type Session struct {
	broker   *aggregator.Broker
	checkers map[string]*auth.Checker
	user     string

	outMu *sync.Mutex
	out   io.Writer

	mu            sync.Mutex
	accessControl bool
	droppedPrivs  bool

	networkName string
	network     *aggregator.Aggregator
	svc         *service.Service

	pendingEndpoints []planner.Endpoint
	pendingPairs     []bandwidth.Pair
}

func newSession(user string, broker *aggregator.Broker, checkers map[string]*auth.Checker, out io.Writer, outMu *sync.Mutex) *Session {
	return &Session{user: user, broker: broker, checkers: checkers, out: out, outMu: outMu}
}

func (s *Session) sendEvent(msg Message) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return writeMessage(s.out, msg)
}

// checker returns the auth.Checker bound to network, or ErrNoControl if
// no authorization policy is configured for it.
func (s *Session) checker(network string) (*auth.Checker, error) {
	c, ok := s.checkers[network]
	if !ok {
		return nil, fmt.Errorf("no authorization policy configured for network %q", network)
	}
	return c, nil
}

// authorize checks perm against the currently selected network's policy,
// requiring both a prior authz-control grant and the specific
// permission.
func (s *Session) authorize(perm auth.Permission, ctx *auth.Context) (string, error) {
	if !s.accessControl {
		return ErrUnprivileged, fmt.Errorf("session has not authorized control access")
	}
	checker, err := s.checker(s.networkName)
	if err != nil {
		return ErrNoControl, err
	}
	if err := checker.CheckUser(s.user, perm, ctx); err != nil {
		return ErrUnauthorized, err
	}
	return "", nil
}

// Dispatch handles one request and returns its reply. A handler that
// needs to push further messages later (only "watch") does so directly
// through sendEvent from its own goroutine, concurrently with Dispatch
// returning the initial acknowledgement.
func (s *Session) Dispatch(req Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Type() {
	case "network":
		return s.handleNetwork(req)
	case "new-service":
		return s.handleNewService(req)
	case "service":
		return s.handleService(req)
	case "add-circuit":
		return s.handleAddCircuit(req)
	case "set-flow":
		return s.handleSetFlow(req)
	case "clear-circuits":
		s.pendingEndpoints = nil
		s.pendingPairs = nil
		return reply(req, nil)
	case "initiate":
		return s.handleInitiate(req)
	case "activate":
		return s.handleLifecycle(req, (*service.Service).Activate)
	case "deactivate":
		return s.handleLifecycle(req, (*service.Service).Deactivate)
	case "release":
		return s.handleLifecycle(req, (*service.Service).Release)
	case "watch":
		return s.handleWatch(req)
	case "add-terminal":
		return s.handleAddTerminal(req)
	case "remove-terminal":
		return s.handleRemoveTerminal(req)
	case "add-trunk":
		return s.handleAddTrunk(req)
	case "remove-trunk":
		return s.handleRemoveTrunk(req)
	case "open-labels":
		return s.handleLabels(req, true)
	case "close-labels":
		return s.handleLabels(req, false)
	case "provide":
		return s.handleProvideWithdraw(req, true)
	case "withdraw":
		return s.handleProvideWithdraw(req, false)
	case "set-delay":
		return s.handleSetDelay(req)
	case "commission":
		return s.handleCommission(req, true)
	case "decommission":
		return s.handleCommission(req, false)
	case "authz-control":
		return s.handleAuthz(req, true)
	case "authz-mgmt":
		return s.handleAuthz(req, false)
	case "drop-privs":
		s.accessControl = false
		s.droppedPrivs = true
		return reply(req, nil)
	default:
		return errorReply(req, ErrUnknownCommand, fmt.Errorf("unknown command %q", req.Type()))
	}
}

func (s *Session) handleAuthz(req Message, control bool) Message {
	network := req.str("network-name")
	if network == "" {
		network = s.networkName
	}
	if control && s.droppedPrivs {
		return errorReply(req, ErrUnprivileged, fmt.Errorf("session has permanently dropped control privileges"))
	}
	if network != "" {
		if _, err := s.checker(network); err != nil {
			return errorReply(req, ErrNoControl, err)
		}
	}
	s.accessControl = control
	return reply(req, nil)
}

func (s *Session) handleNetwork(req Message) Message {
	name := req.str("network-name")
	a, err := s.broker.Network(name)
	if err != nil {
		return errorReply(req, ErrNoNetwork, err)
	}
	s.networkName = name
	s.network = a
	s.svc = nil
	s.pendingEndpoints = nil
	s.pendingPairs = nil
	return reply(req, map[string]interface{}{"network-name": name})
}

func (s *Session) requireNetwork(req Message) (Message, bool) {
	if s.network == nil {
		return errorReply(req, ErrNoNetwork, fmt.Errorf("no network selected")), false
	}
	return Message{}, true
}

func (s *Session) requireService(req Message) (Message, bool) {
	if s.svc == nil {
		return errorReply(req, ErrNoService, fmt.Errorf("no service selected")), false
	}
	return Message{}, true
}

func (s *Session) handleNewService(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermServiceDefine, &auth.Context{}); err != nil {
		return errorReply(req, tag, err)
	}
	s.pendingEndpoints = nil
	s.pendingPairs = nil
	return reply(req, nil)
}

func (s *Session) handleService(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	id, ok := req.Num("service-id")
	if !ok {
		return errorReply(req, ErrBadArgument, fmt.Errorf("service-id is required"))
	}
	svc, err := s.network.GetService(int64(id))
	if err != nil {
		return errorReply(req, ErrNoService, err)
	}
	s.svc = svc
	return reply(req, map[string]interface{}{"service-id": svc.ID(), "state": svc.State().String()})
}

func (s *Session) handleAddCircuit(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	terminal := req.str("terminal")
	if terminal == "" {
		return errorReply(req, ErrBadArgument, fmt.Errorf("terminal is required"))
	}
	if _, err := s.network.GetTerminal(terminal); err != nil {
		return errorReply(req, ErrNoTerminal, err)
	}
	idx := len(s.pendingEndpoints)
	s.pendingEndpoints = append(s.pendingEndpoints, planner.Endpoint{
		Index:    idx,
		Terminal: terminal,
		Network:  s.networkName,
	})
	s.pendingPairs = append(s.pendingPairs, bandwidth.Pair{})
	return reply(req, map[string]interface{}{"index": idx})
}

func (s *Session) handleSetFlow(req Message) Message {
	if len(s.pendingEndpoints) == 0 {
		return errorReply(req, ErrNoCircuit, fmt.Errorf("no circuit to set flow on; call add-circuit first"))
	}
	idx := len(s.pendingEndpoints) - 1
	in, hasIn := req.Num("in")
	out, hasOut := req.Num("out")
	pair := s.pendingPairs[idx]
	if hasIn {
		pair.Ingress = bandwidth.Exact(in)
	}
	if hasOut {
		pair.Egress = bandwidth.Exact(out)
	}
	s.pendingPairs[idx] = pair
	return reply(req, nil)
}

func (s *Session) handleInitiate(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermServiceDefine, &auth.Context{}); err != nil {
		return errorReply(req, tag, err)
	}
	if len(s.pendingEndpoints) == 0 {
		return errorReply(req, ErrNoCircuit, fmt.Errorf("no circuits defined; call add-circuit first"))
	}

	fn := bandwidth.NewPairFunction(s.pendingPairs)
	parent, result, err := s.network.InitiateService(context.Background(), planner.Request{
		Endpoints: s.pendingEndpoints,
		Function:  fn,
	})
	if err != nil {
		return errorReply(req, ErrBadArgument, err)
	}

	s.svc = parent
	s.pendingEndpoints = nil
	s.pendingPairs = nil

	groups := make(map[string]int, len(result.Groups))
	for network, eps := range result.Groups {
		groups[network] = len(eps)
	}
	return reply(req, map[string]interface{}{
		"service-id": parent.ID(),
		"groups":     groups,
	})
}

func (s *Session) handleLifecycle(req Message, fn func(*service.Service, context.Context) error) Message {
	if m, ok := s.requireService(req); !ok {
		return m
	}
	perm := auth.PermServiceActivate
	switch req.Type() {
	case "deactivate":
		perm = auth.PermServiceDeactivate
	case "release":
		perm = auth.PermServiceRelease
	}
	if tag, err := s.authorize(perm, &auth.Context{Service: fmt.Sprint(s.svc.ID())}); err != nil {
		return errorReply(req, tag, err)
	}
	if err := fn(s.svc, context.Background()); err != nil {
		return errorReply(req, ErrBadArgument, err)
	}
	return reply(req, map[string]interface{}{"state": s.svc.State().String()})
}

func (s *Session) handleWatch(req Message) Message {
	if m, ok := s.requireService(req); !ok {
		return m
	}
	svc := s.svc
	go func() {
		ch := svc.Subscribe()
		for evt := range ch {
			msg := event("status", map[string]interface{}{
				"txn":        req.Txn(),
				"service-id": evt.ServiceID,
				"state":      evt.State.String(),
			})
			if evt.Err != nil {
				msg["error-detail"] = evt.Err.Error()
			}
			if err := s.sendEvent(msg); err != nil {
				return
			}
		}
	}()
	return reply(req, nil)
}

func (s *Session) handleAddTerminal(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTerminalAdd, &auth.Context{}); err != nil {
		return errorReply(req, tag, err)
	}
	name := req.str("terminal")
	if name == "" {
		return errorReply(req, ErrBadArgument, fmt.Errorf("terminal is required"))
	}
	if err := s.network.AddTerminal(name, s.networkName); err != nil {
		return errorReply(req, ErrTerminalMgmt, err)
	}
	return reply(req, nil)
}

func (s *Session) handleRemoveTerminal(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTerminalRemove, &auth.Context{}); err != nil {
		return errorReply(req, tag, err)
	}
	name := req.str("terminal")
	if err := s.network.RemoveTerminal(name); err != nil {
		return errorReply(req, ErrTerminalMgmt, err)
	}
	return reply(req, nil)
}

func (s *Session) handleAddTrunk(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTrunkCommission, &auth.Context{}); err != nil {
		return errorReply(req, tag, err)
	}
	name := req.str("trunk")
	start := req.str("start-terminal")
	end := req.str("end-terminal")
	if name == "" || start == "" || end == "" {
		return errorReply(req, ErrBadArgument, fmt.Errorf("trunk, start-terminal, and end-terminal are required"))
	}
	t := trunk.New(name, start, end)
	if err := s.network.AddTrunk(t); err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	s.audit(req, audit.EventTypeCommission, name, "")
	return reply(req, nil)
}

func (s *Session) handleRemoveTrunk(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTrunkDecommission, &auth.Context{}); err != nil {
		return errorReply(req, tag, err)
	}
	name := req.str("trunk")
	if err := s.network.RemoveTrunk(name); err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	return reply(req, nil)
}

func (s *Session) trunkFromRequest(req Message) (*trunk.Trunk, error) {
	name := req.str("trunk")
	if name == "" {
		return nil, fmt.Errorf("trunk is required")
	}
	return s.network.FindTrunk(name)
}

func (s *Session) handleLabels(req Message, open bool) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTrunkCommission, &auth.Context{Trunk: req.str("trunk")}); err != nil {
		return errorReply(req, tag, err)
	}
	t, err := s.trunkFromRequest(req)
	if err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	lo, _ := req.Num("lo")
	hi, _ := req.Num("hi")
	side := trunk.Start
	if req.str("side") == "end" {
		side = trunk.End
	}
	var labelErr error
	if open {
		labelErr = t.DefineLabelRange(side, int(lo), int(hi))
	} else if side == trunk.Start {
		labelErr = t.RevokeStartLabelRange(int(lo), int(hi))
	} else {
		labelErr = t.RevokeEndLabelRange(int(lo), int(hi))
	}
	if labelErr != nil {
		return errorReply(req, ErrTrunkMgmt, labelErr)
	}
	return reply(req, nil)
}

func (s *Session) handleProvideWithdraw(req Message, provide bool) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTrunkProvide, &auth.Context{Trunk: req.str("trunk")}); err != nil {
		return errorReply(req, tag, err)
	}
	t, err := s.trunkFromRequest(req)
	if err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	up, _ := req.Num("up")
	down, _ := req.Num("down")
	if provide {
		err = t.Provide(up, down)
	} else {
		err = t.Withdraw(up, down)
	}
	if err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	return reply(req, nil)
}

func (s *Session) handleSetDelay(req Message) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	if tag, err := s.authorize(auth.PermTrunkCommission, &auth.Context{Trunk: req.str("trunk")}); err != nil {
		return errorReply(req, tag, err)
	}
	t, err := s.trunkFromRequest(req)
	if err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	ms, _ := req.Num("delay-ms")
	t.SetDelay(time.Duration(ms) * time.Millisecond)
	return reply(req, nil)
}

func (s *Session) handleCommission(req Message, commission bool) Message {
	if m, ok := s.requireNetwork(req); !ok {
		return m
	}
	perm := auth.PermTrunkCommission
	if !commission {
		perm = auth.PermTrunkDecommission
	}
	if tag, err := s.authorize(perm, &auth.Context{Trunk: req.str("trunk")}); err != nil {
		return errorReply(req, tag, err)
	}
	t, err := s.trunkFromRequest(req)
	if err != nil {
		return errorReply(req, ErrTrunkMgmt, err)
	}
	if commission {
		t.Commission()
	} else {
		t.Decommission()
	}
	s.audit(req, audit.EventTypeCommission, t.Name(), "")
	return reply(req, map[string]interface{}{"commissioned": t.IsCommissioned()})
}

func (s *Session) audit(req Message, eventType audit.EventType, trunkName, serviceName string) {
	evt := audit.NewEvent(s.user, trunkName, string(eventType))
	evt.Service = serviceName
	evt.Success = true
	_ = audit.Log(evt)
}
