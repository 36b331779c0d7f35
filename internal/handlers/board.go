// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campusboard/internal/auth"
	"campusboard/internal/board"
	"campusboard/internal/middleware"
	"campusboard/internal/models"
	"campusboard/internal/render"
	"campusboard/internal/store"
)

// Board groups the handlers behind the sign-in wall: boards, search, posts
// and comments.
type Board struct {
	renderer *render.Renderer
	board    *board.Service
	master   auth.Master
}

// NewBoard creates a new Board handler group.
func NewBoard(renderer *render.Renderer, svc *board.Service, master auth.Master) *Board {
	return &Board{
		renderer: renderer,
		board:    svc,
		master:   master,
	}
}

// actor builds the access-rule view of the signed-in member. It is never
// nil so templates can call its methods.
func (h *Board) actor(r *http.Request) *board.Actor {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return &board.Actor{}
	}
	return &board.Actor{
		UserID:      sess.UserID,
		Email:       sess.Email,
		Nickname:    sess.Nickname,
		Affiliation: sess.Affiliation,
		Master:      middleware.IsMasterSession(sess, h.master),
	}
}

func (h *Board) pageData(r *http.Request, title string, cats []models.Category) *render.PageData {
	return &render.PageData{
		Title:      title,
		Categories: cats,
		IsMaster:   h.actor(r).Master,
		Data:       map[string]any{},
	}
}

// --- Boards ---

// Home sends members to the all-posts board.
func (h *Board) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/home/general", http.StatusSeeOther)
}

// General lists every post, newest first.
func (h *Board) General(w http.ResponseWriter, r *http.Request) {
	h.renderBoard(w, r, models.CategoryGeneral, 0, nil)
}

// Category lists the posts of one board.
func (h *Board) Category(w http.ResponseWriter, r *http.Request) {
	h.renderBoard(w, r, chi.URLParam(r, "name"), 0, nil)
}

// renderBoard loads the sidebar and the posts of category concurrently and
// renders the board page. An unknown category renders an inline message.
func (h *Board) renderBoard(w http.ResponseWriter, r *http.Request, category string, status int, flashes []render.Flash) {
	var (
		cats  []models.Category
		posts []models.Post
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		cats, err = h.board.Categories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		if category == models.CategoryGeneral {
			posts, err = h.board.Posts(ctx)
		} else {
			posts, err = h.board.PostsInCategory(ctx, category)
		}
		return err
	})
	err := g.Wait()

	data := h.pageData(r, "nav.home", cats)
	data.Section = category
	data.Status = status
	data.Flashes = flashes
	data.Data["Heading"] = ""

	switch {
	case err != nil:
		slog.Error("load board", "category", category, "error", err)
		data.Data["LoadFailed"] = true
		if data.Status == 0 {
			data.Status = http.StatusInternalServerError
		}
	case category == models.CategoryMaster:
		data.Data["Heading"] = h.renderer.T(r, "category.master")
		data.Data["Posts"] = posts
	default:
		i := slices.IndexFunc(cats, func(c models.Category) bool { return c.Name == category })
		if i < 0 {
			data.Data["NotFound"] = true
			if data.Status == 0 {
				data.Status = http.StatusNotFound
			}
			break
		}
		data.Data["Heading"] = cats[i].Label
		data.Data["Posts"] = posts
	}

	h.renderer.Page(w, r, "board", data)
}

// Search lists the posts whose title starts with the query. A blank or
// malformed query shows the hint without touching the store.
func (h *Board) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if !utf8.ValidString(q) {
		// No title can start with it, and PostgreSQL rejects the bytes.
		q = ""
	}

	var (
		cats  []models.Category
		posts = []models.Post{}
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		cats, err = h.board.Categories(ctx)
		return err
	})
	if q != "" {
		g.Go(func() error {
			found, err := h.board.Search(ctx, q)
			if err != nil {
				return err
			}
			posts = found
			return nil
		})
	}

	data := h.pageData(r, "search.title", nil)
	if err := g.Wait(); err != nil {
		slog.Error("search posts", "query", q, "error", err)
		data.Status = http.StatusInternalServerError
		data.Flashes = []render.Flash{{Type: "error", Message: "error.generic"}}
	}
	data.Categories = cats
	data.Section = "search"
	data.Query = q
	data.Data["Posts"] = posts

	h.renderer.Page(w, r, "search", data)
}

// --- Categories ---

// AddCategory creates a board from the submitted label. Master only.
func (h *Board) AddCategory(w http.ResponseWriter, r *http.Request) {
	label := r.FormValue("label")
	if flash := validateLabel(label); flash != nil {
		h.renderBoard(w, r, models.CategoryGeneral, http.StatusUnprocessableEntity, []render.Flash{*flash})
		return
	}

	cat, err := h.board.AddCategory(r.Context(), h.actor(r), label)
	if err != nil {
		status, flash := boardError(err)
		h.renderBoard(w, r, models.CategoryGeneral, status, []render.Flash{flash})
		return
	}

	slog.Info("category added", "name", cat.Name)
	http.Redirect(w, r, cat.Path, http.StatusSeeOther)
}

// RemoveCategory deletes a board. Master only; protected boards stay.
func (h *Board) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.board.RemoveCategory(r.Context(), h.actor(r), name); err != nil {
		status, flash := boardError(err)
		h.renderBoard(w, r, models.CategoryGeneral, status, []render.Flash{flash})
		return
	}

	slog.Info("category removed", "name", name)
	http.Redirect(w, r, "/home/general", http.StatusSeeOther)
}

// --- Posts ---

// NewPostPage renders the post form. The board from ?category= is
// preselected when the member may write to it.
func (h *Board) NewPostPage(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	var flashes []render.Flash
	if category == models.CategoryGeneral {
		flashes = []render.Flash{{Type: "info", Message: "post.general_blocked"}}
	}
	h.renderPostForm(w, r, category, "", "", 0, flashes)
}

func (h *Board) renderPostForm(w http.ResponseWriter, r *http.Request, category, title, content string, status int, flashes []render.Flash) {
	actor := h.actor(r)

	var cats, writable []models.Category
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		cats, err = h.board.Categories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		writable, err = h.board.WritableCategories(ctx, actor)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.Error("load post form", "error", err)
		status = http.StatusInternalServerError
		flashes = append(flashes, render.Flash{Type: "error", Message: "error.generic"})
	}

	if !actor.CanPostTo(category) {
		category = ""
	}

	data := h.pageData(r, "post.create.title", cats)
	data.Section = category
	data.Status = status
	data.Flashes = flashes
	data.Data["Selected"] = category
	data.Data["Writable"] = writable
	data.Data["Title"] = title
	data.Data["Content"] = content
	data.Data["MaxTitle"] = maxTitleLen

	h.renderer.Page(w, r, "post_create", data)
}

// CreatePost stores a new post and returns to its board.
func (h *Board) CreatePost(w http.ResponseWriter, r *http.Request) {
	category := r.FormValue("category")
	title := r.FormValue("title")
	content := r.FormValue("content")

	if flash := validatePost(title, content); flash != nil {
		h.renderPostForm(w, r, category, title, content, http.StatusUnprocessableEntity, []render.Flash{*flash})
		return
	}

	post, err := h.board.CreatePost(r.Context(), h.actor(r), board.PostInput{
		Title:    title,
		Content:  content,
		Category: category,
	})
	if err != nil {
		status, flash := boardError(err)
		h.renderPostForm(w, r, category, title, content, status, []render.Flash{flash})
		return
	}

	slog.Info("post created", "post_id", post.ID, "category", post.Category)
	http.Redirect(w, r, boardPathFor(post.Category), http.StatusSeeOther)
}

// boardPathFor returns the board a member lands on after posting. Master
// notices are read from the all-posts board.
func boardPathFor(category string) string {
	if category == models.CategoryMaster || category == models.CategoryGeneral {
		return "/home/general"
	}
	return models.CategoryPath(category)
}

// PostDetail renders a post with its comments. ?edit=1 opens the post
// editor and ?edit_comment=<id> the editor of one comment.
func (h *Board) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	q := r.URL.Query()
	h.renderPost(w, r, id, ok, postView{
		editing:     q.Get("edit") == "1",
		editComment: q.Get("edit_comment"),
	})
}

type postView struct {
	editing     bool
	editComment string
	status      int
	flashes     []render.Flash
}

// renderPost loads the sidebar, the post and its comments concurrently.
func (h *Board) renderPost(w http.ResponseWriter, r *http.Request, id uuid.UUID, valid bool, v postView) {
	actor := h.actor(r)

	var (
		cats     []models.Category
		post     *models.Post
		comments = []models.Comment{}
		writable []models.Category
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		cats, err = h.board.Categories(ctx)
		return err
	})
	if valid {
		g.Go(func() error {
			var err error
			post, err = h.board.Post(ctx, id)
			return err
		})
		g.Go(func() error {
			list, err := h.board.Comments(ctx, id)
			if err != nil {
				return err
			}
			comments = list
			return nil
		})
	}
	if v.editing {
		g.Go(func() error {
			var err error
			writable, err = h.board.WritableCategories(ctx, actor)
			return err
		})
	}
	err := g.Wait()

	data := h.pageData(r, "post.not_found", cats)
	data.Status = v.status
	data.Flashes = v.flashes
	data.Data["Actor"] = actor
	data.Data["EditComment"] = v.editComment

	switch {
	case err != nil:
		slog.Error("load post", "post_id", id, "error", err)
		data.Status = http.StatusInternalServerError
		data.Flashes = append(data.Flashes, render.Flash{Type: "error", Message: "error.generic"})
	case post == nil:
		if data.Status == 0 {
			data.Status = http.StatusNotFound
		}
	default:
		data.Title = "nav.home"
		data.Section = post.Category
		data.Data["Post"] = post
		data.Data["Comments"] = comments
		data.Data["Editing"] = v.editing && actor.CanEditPost(post)
		data.Data["Writable"] = writable
	}

	h.renderer.Page(w, r, "post_detail", data)
}

// EditPost saves the post editor. Author only.
func (h *Board) EditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.renderPost(w, r, id, false, postView{})
		return
	}

	title := r.FormValue("title")
	content := r.FormValue("content")
	if flash := validatePost(title, content); flash != nil {
		h.renderPost(w, r, id, true, postView{
			editing: true,
			status:  http.StatusUnprocessableEntity,
			flashes: []render.Flash{*flash},
		})
		return
	}

	u := models.PostUpdate{Title: &title, Content: &content}
	if category := r.FormValue("category"); category != "" {
		u.Category = &category
	}
	if err := h.board.UpdatePost(r.Context(), h.actor(r), id, u); err != nil {
		status, flash := boardError(err)
		h.renderPost(w, r, id, true, postView{editing: true, status: status, flashes: []render.Flash{flash}})
		return
	}

	slog.Info("post updated", "post_id", id)
	http.Redirect(w, r, "/post/"+id.String(), http.StatusSeeOther)
}

// DeletePost removes a post. Author or master.
func (h *Board) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.renderPost(w, r, id, false, postView{})
		return
	}

	if err := h.board.DeletePost(r.Context(), h.actor(r), id); err != nil {
		status, flash := boardError(err)
		h.renderPost(w, r, id, true, postView{status: status, flashes: []render.Flash{flash}})
		return
	}

	slog.Info("post deleted", "post_id", id)
	http.Redirect(w, r, "/home/general", http.StatusSeeOther)
}

// --- Comments ---

// AddComment attaches a comment to the post.
func (h *Board) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		h.renderPost(w, r, id, false, postView{})
		return
	}

	text := r.FormValue("text")
	if flash := validateComment(text); flash != nil {
		h.renderPost(w, r, id, true, postView{status: http.StatusUnprocessableEntity, flashes: []render.Flash{*flash}})
		return
	}

	if _, err := h.board.AddComment(r.Context(), h.actor(r), id, text); err != nil {
		status, flash := boardError(err)
		h.renderPost(w, r, id, true, postView{status: status, flashes: []render.Flash{flash}})
		return
	}

	http.Redirect(w, r, "/post/"+id.String(), http.StatusSeeOther)
}

// EditComment replaces a comment's text. Author only.
func (h *Board) EditComment(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	cid, cok := commentID(r)
	if !ok || !cok {
		h.renderPost(w, r, id, ok, postView{status: http.StatusNotFound})
		return
	}

	text := r.FormValue("text")
	if flash := validateComment(text); flash != nil {
		h.renderPost(w, r, id, true, postView{
			editComment: cid.String(),
			status:      http.StatusUnprocessableEntity,
			flashes:     []render.Flash{*flash},
		})
		return
	}

	if err := h.board.UpdateComment(r.Context(), h.actor(r), id, cid, text); err != nil {
		status, flash := boardError(err)
		h.renderPost(w, r, id, true, postView{status: status, flashes: []render.Flash{flash}})
		return
	}

	http.Redirect(w, r, "/post/"+id.String(), http.StatusSeeOther)
}

// DeleteComment removes a comment. Author or master.
func (h *Board) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	cid, cok := commentID(r)
	if !ok || !cok {
		h.renderPost(w, r, id, ok, postView{status: http.StatusNotFound})
		return
	}

	if err := h.board.DeleteComment(r.Context(), h.actor(r), id, cid); err != nil {
		status, flash := boardError(err)
		h.renderPost(w, r, id, true, postView{status: status, flashes: []render.Flash{flash}})
		return
	}

	http.Redirect(w, r, "/post/"+id.String(), http.StatusSeeOther)
}

func postID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func commentID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "commentID"))
	return id, err == nil
}

// boardError maps a service error to a status and a localised message.
// Unexpected errors are logged; their text never reaches the page.
func boardError(err error) (int, render.Flash) {
	var protected *store.ProtectedCategoryError
	switch {
	case errors.Is(err, board.ErrPermission):
		return http.StatusForbidden, render.Flash{Type: "error", Message: "error.permission"}
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound, render.Flash{Type: "error", Message: "post.not_found"}
	case errors.Is(err, board.ErrUnknownCategory):
		return http.StatusBadRequest, render.Flash{Type: "error", Message: "category.unknown"}
	case errors.Is(err, board.ErrInvalidInput):
		return http.StatusUnprocessableEntity, render.Flash{Type: "error", Message: "error.invalid_input"}
	case errors.As(err, &protected):
		return http.StatusBadRequest, render.Flash{Type: "error", Message: "category.protected", Args: []any{protected.Name}}
	case errors.Is(err, store.ErrDuplicateCategory):
		return http.StatusConflict, render.Flash{Type: "error", Message: "category.duplicate"}
	case errors.Is(err, store.ErrInvalidCategory):
		return http.StatusBadRequest, render.Flash{Type: "error", Message: "category.invalid"}
	case errors.Is(err, store.ErrRegistryConflict):
		return http.StatusConflict, render.Flash{Type: "error", Message: "category.conflict"}
	default:
		slog.Error("board request failed", "error", err)
		return http.StatusInternalServerError, render.Flash{Type: "error", Message: "error.generic"}
	}
}
