package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"comandas-go/internal/httpx"
	"comandas-go/internal/orders"
)

type printOutcome struct {
	Printed bool   `json:"printed"`
	Error   string `json:"error,omitempty"`
}

type createOrderResponse struct {
	Order orderView    `json:"order"`
	Print printOutcome `json:"print"`
}

func (s *Server) OrderCreate(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	res, err := s.App.Orders().Create(r.Context(), s.App.Actor(r), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createOrderResponse{
		Order: newOrderView(*res.Order),
		Print: printOutcome{Printed: res.Printed, Error: res.PrintError},
	})
}

func (s *Server) OrderList(w http.ResponseWriter, r *http.Request) {
	list, err := s.App.Orders().List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orderViews(list)})
}

func (s *Server) OrderGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := s.App.Orders().Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newOrderView(*o))
}

func (s *Server) OrderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := s.App.Orders().History(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order_id": id, "history": entries})
}

type modifyOrderResponse struct {
	Order         orderView       `json:"order"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	NewTotal      decimal.Decimal `json:"new_total"`
	Delta         decimal.Decimal `json:"delta"`
	Changes       int             `json:"changes"`
}

func (s *Server) OrderModify(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var in orders.ModifyInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	res, err := s.App.Orders().Modify(r.Context(), s.App.Actor(r), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, modifyOrderResponse{
		Order:         newOrderView(*res.Order),
		PreviousTotal: res.PreviousTotal,
		NewTotal:      res.NewTotal,
		Delta:         res.Delta,
		Changes:       res.Changes,
	})
}

func (s *Server) OrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if !s.decodeJSON(w, r, &in) {
		return
	}
	to, ok := orders.ParseStatus(in.Status)
	if !ok {
		s.badRequest(w, r, "unknown status "+in.Status)
		return
	}

	o, err := s.App.Orders().SetStatus(r.Context(), s.App.Actor(r), id, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newOrderView(*o))
}

// OrderPrint reprints the kitchen ticket. Printer failures come back as 502/503 but
// never touch the order.
func (s *Server) OrderPrint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := s.App.Orders().Print(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, createOrderResponse{Order: newOrderView(*o), Print: printOutcome{Printed: true}})
}

/* ---------------- Approval ---------------- */

type decisionInput struct {
	Reason string `json:"reason"`
}

// decodeDecision accepts an empty body: the reason is optional.
func (s *Server) decodeDecision(w http.ResponseWriter, r *http.Request) (decisionInput, bool) {
	var in decisionInput
	if r.ContentLength == 0 {
		return in, true
	}
	return in, s.decodeJSON(w, r, &in)
}

func (s *Server) OrderApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	in, ok := s.decodeDecision(w, r)
	if !ok {
		return
	}
	o, err := s.App.Orders().Approve(r.Context(), s.App.Actor(r), id, in.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newOrderView(*o))
}

func (s *Server) OrderReject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	in, ok := s.decodeDecision(w, r)
	if !ok {
		return
	}
	o, err := s.App.Orders().Reject(r.Context(), s.App.Actor(r), id, in.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newOrderView(*o))
}

func (s *Server) ApprovalsPending(w http.ResponseWriter, r *http.Request) {
	list, err := s.App.Orders().PendingApprovals(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orderViews(list), "count": len(list)})
}
