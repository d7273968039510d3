package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

// transactionsView is the body of transactions.html.
type transactionsView struct {
	Params       ListParams
	Transactions []core.Transaction
	Pagination   core.Pagination
}

// HasPrev reports whether a previous page exists.
func (v transactionsView) HasPrev() bool { return v.Params.Page > 1 }

// HasNext reports whether a next page exists.
func (v transactionsView) HasNext() bool { return v.Params.Page < v.Pagination.Pages }

// PageURL is the list URL for page n with the current filters.
func (v transactionsView) PageURL(n int) string {
	q := v.Params.Query(n)
	if q == "" {
		return "/dashboard/transactions"
	}
	return "/dashboard/transactions?" + q
}

// transactionFormView is the body of transaction_form.html.
type transactionFormView struct {
	// ID is empty when creating.
	ID         string
	Values     url.Values
	Categories []core.Category
}

// Action is the URL the form posts to.
func (v transactionFormView) Action() string {
	if v.ID == "" {
		return "/dashboard/transactions/new"
	}
	return "/dashboard/transactions/" + v.ID + "/edit"
}

// CategoriesOf filters the options to one type for the select's optgroups.
func (v transactionFormView) CategoriesOf(typ string) []core.Category {
	var out []core.Category
	for _, c := range v.Categories {
		if string(c.Type) == typ {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	params := ParseListParams(r.URL.Query())
	p := s.newPage(r, "Transactions", "transactions")
	view := transactionsView{Params: params}

	page, err := s.client(r).Transactions(r.Context(), params.Filter())
	if err != nil {
		if s.sessionRejected(w, r, applog.OpList, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.LoadFailed = true
	} else {
		view.Transactions = page.Transactions
		view.Pagination = page.Pagination
	}
	p.Data = view

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	if isHTMX(r) && htmxTarget(r) == "tx-table" {
		s.renderPartial(w, r, status, "transactions.html", "tx-table", p)
		return
	}
	s.render(w, r, status, "transactions.html", p)
}

func (s *Server) handleNewTransactionPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Add transaction", "transactions")
	values := url.Values{
		"type": {string(core.Expense)},
		"date": {DefaultFormDate(s.now())},
	}
	if t, err := core.ParseTxType(r.URL.Query().Get("type")); err == nil && t != "" {
		values.Set("type", string(t))
	}
	s.renderTransactionForm(w, r, http.StatusOK, p, transactionFormView{Values: values})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Add transaction", "transactions")
	form := transactionFormView{Values: r.PostForm}

	in, verrs := ParseTransactionForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, p, form)
		return
	}

	tx, err := s.client(r).CreateTransaction(r.Context(), in)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpCreate, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.renderTransactionForm(w, r, statusFor(err), p, form)
		return
	}

	s.afterTransactionMutation(r, amqp.ActionCreated, tx)
	s.mutationDone(w, r, "/dashboard/transactions", "tx-created", string(amqp.ActionCreated))
}

func (s *Server) handleEditTransactionPage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p := s.newPage(r, "Edit transaction", "transactions")

	tx, err := s.client(r).Transaction(r.Context(), id)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpRead, err) {
			return
		}
		s.renderLoadError(w, r, p, err)
		return
	}
	s.renderTransactionForm(w, r, http.StatusOK, p, transactionFormView{ID: id, Values: TransactionFormValues(tx)})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id := r.PathValue("id")
	p := s.newPage(r, "Edit transaction", "transactions")
	form := transactionFormView{ID: id, Values: r.PostForm}

	in, verrs := ParseTransactionForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, p, form)
		return
	}

	tx, err := s.client(r).UpdateTransaction(r.Context(), id, in)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpUpdate, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.renderTransactionForm(w, r, statusFor(err), p, form)
		return
	}

	s.afterTransactionMutation(r, amqp.ActionUpdated, tx)
	s.mutationDone(w, r, "/dashboard/transactions", "tx-updated", string(amqp.ActionUpdated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.client(r).DeleteTransaction(r.Context(), id); err != nil {
		if s.sessionRejected(w, r, applog.OpDelete, err) {
			return
		}
		s.mutationFailed(w, r, "/dashboard/transactions", err)
		return
	}

	s.afterTransactionMutation(r, amqp.ActionDeleted, core.Transaction{ID: id})
	s.mutationDone(w, r, "/dashboard/transactions", "tx-deleted", string(amqp.ActionDeleted))
}

// renderTransactionForm loads the category options and renders the form.
// A failed category load still renders the form, with the notice set.
func (s *Server) renderTransactionForm(w http.ResponseWriter, r *http.Request, status int, p pageData, form transactionFormView) {
	cats, err := s.categories(r)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpList, err) {
			return
		}
		if p.Notice == nil {
			p.Notice = errorNotice(err)
		}
	}
	form.Categories = cats
	p.Data = form
	s.render(w, r, status, "transaction_form.html", p)
}

// afterTransactionMutation drops cached reads, logs the change and publishes
// the mirror event. Publishing never fails the request.
func (s *Server) afterTransactionMutation(r *http.Request, action amqp.Action, tx core.Transaction) {
	sess := currentSession(r)
	s.invalidate(sess.ID)
	s.appMetrics.transactions.Add(1)
	s.structuredLogger.LogTransactionMutation(r.Context(), string(action), tx.ID, tx.Title, string(tx.Type), tx.Amount.Plain())

	if s.publisher == nil {
		return
	}
	ev := amqp.NewTransactionEvent(action, tx, sess.User.ID)
	// the request may be gone by the time the broker answers
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishTransactionEvent(ctx, ev); err != nil {
		s.appMetrics.eventsFailed.Add(1)
		s.structuredLogger.LogError(r.Context(), "Mirror event not published", err,
			applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithTransaction(tx.ID, tx.Title, string(tx.Type), tx.Amount.Plain()))
		return
	}
	s.appMetrics.eventsPublished.Add(1)
}

// mutationDone finishes a successful POST: htmx gets triggers and a
// redirect, plain forms get a 303 carrying the notice.
func (s *Server) mutationDone(w http.ResponseWriter, r *http.Request, next, notice, action string) {
	target := withNotice(next, notice)
	if !isHTMX(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	b := NewHTMXResponse().Redirect(target)
	if action != "" {
		b.TriggerTransactionsChanged(action)
	} else {
		b.TriggerCategoriesChanged()
	}
	b.Write(w)
}

// mutationFailed reports a failed POST that has no form to re-render.
func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, back string, err error) {
	msg := api.UserMessage(err)
	if isHTMX(r) {
		NewHTMXResponse().
			Status(statusFor(err)).
			TriggerErrorNotification(msg).
			Write(w)
		return
	}
	p := s.newPage(r, "Something went wrong", "")
	p.Notice = errorNotice(err)
	p.Data = errorView{Code: statusFor(err), Message: msg, Back: back}
	s.render(w, r, statusFor(err), "error.html", p)
}

// renderLoadError shows error.html for a record that could not be loaded.
func (s *Server) renderLoadError(w http.ResponseWriter, r *http.Request, p pageData, err error) {
	code := statusFor(err)
	msg := api.UserMessage(err)
	if errors.Is(err, api.ErrNotFound) {
		msg = "That record no longer exists."
	}
	p.Notice = errorNotice(err)
	p.LoadFailed = true
	p.Data = errorView{Code: code, Message: msg}
	s.render(w, r, code, "error.html", p)
}
