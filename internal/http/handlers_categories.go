package http

import (
	"net/http"
	"net/url"

	"finboard/internal/core"
	applog "finboard/internal/log"
)

// categoriesView is the body of categories.html.
type categoriesView struct {
	Income  []core.Category
	Expense []core.Category
	// FormID names the form being re-rendered: "new" or a category id.
	FormID string
	Values url.Values
}

// categories returns the session's categories, from cache when possible.
func (s *Server) categories(r *http.Request) ([]core.Category, error) {
	key := currentSession(r).ID + ":categories"
	if cats, ok := s.categoryCache.Get(key); ok {
		return cats, nil
	}
	cats, err := s.client(r).Categories(r.Context(), "")
	if err != nil {
		return nil, err
	}
	s.categoryCache.Set(key, cats)
	return cats, nil
}

func splitByType(cats []core.Category) (income, expense []core.Category) {
	for _, c := range cats {
		switch c.Type {
		case core.Income:
			income = append(income, c)
		case core.Expense:
			expense = append(expense, c)
		}
	}
	return income, expense
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Categories", "categories")
	s.renderCategories(w, r, http.StatusOK, p, categoriesView{Values: url.Values{"type": {string(core.Expense)}, "color": {"#3b82f6"}}})
}

// renderCategories fills in the lists and renders the page. A failed load
// still renders, with the notice and the failed state set.
func (s *Server) renderCategories(w http.ResponseWriter, r *http.Request, status int, p pageData, view categoriesView) {
	cats, err := s.categories(r)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpList, err) {
			return
		}
		if p.Notice == nil {
			p.Notice = errorNotice(err)
		}
		p.LoadFailed = true
		if status == http.StatusOK {
			status = statusFor(err)
		}
	}
	view.Income, view.Expense = splitByType(cats)
	p.Data = view
	s.render(w, r, status, "categories.html", p)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Categories", "categories")
	view := categoriesView{FormID: "new", Values: r.PostForm}

	in, verrs := ParseCategoryForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.renderCategories(w, r, http.StatusUnprocessableEntity, p, view)
		return
	}

	cat, err := s.client(r).CreateCategory(r.Context(), in)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpCreate, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.renderCategories(w, r, statusFor(err), p, view)
		return
	}

	s.afterCategoryMutation(r, applog.OpCreate, cat.ID)
	s.mutationDone(w, r, "/dashboard/categories", "cat-created", "")
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id := r.PathValue("id")
	p := s.newPage(r, "Categories", "categories")
	view := categoriesView{FormID: id, Values: r.PostForm}

	in, verrs := ParseCategoryForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.renderCategories(w, r, http.StatusUnprocessableEntity, p, view)
		return
	}

	if _, err := s.client(r).UpdateCategory(r.Context(), id, in); err != nil {
		if s.sessionRejected(w, r, applog.OpUpdate, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.renderCategories(w, r, statusFor(err), p, view)
		return
	}

	s.afterCategoryMutation(r, applog.OpUpdate, id)
	s.mutationDone(w, r, "/dashboard/categories", "cat-updated", "")
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.client(r).DeleteCategory(r.Context(), id); err != nil {
		if s.sessionRejected(w, r, applog.OpDelete, err) {
			return
		}
		s.mutationFailed(w, r, "/dashboard/categories", err)
		return
	}
	s.afterCategoryMutation(r, applog.OpDelete, id)
	s.mutationDone(w, r, "/dashboard/categories", "cat-deleted", "")
}

func (s *Server) handleDefaultCategories(w http.ResponseWriter, r *http.Request) {
	if err := s.client(r).CreateDefaultCategories(r.Context()); err != nil {
		if s.sessionRejected(w, r, applog.OpCreate, err) {
			return
		}
		s.mutationFailed(w, r, "/dashboard/categories", err)
		return
	}
	s.afterCategoryMutation(r, applog.OpCreate, "defaults")
	s.mutationDone(w, r, "/dashboard/categories", "cat-defaults", "")
}

func (s *Server) afterCategoryMutation(r *http.Request, op, id string) {
	sess := currentSession(r)
	s.invalidate(sess.ID)
	s.logger.InfoContext(r.Context(), "Category "+op+" forwarded",
		applog.FieldOperation, op,
		applog.FieldCategoryID, id,
		applog.FieldSessionID, sess.ID)
}
