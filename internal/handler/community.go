package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/uniprep/copilot/internal/i18n"
	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

type postRequest struct {
	ContentID string              `json:"contentId"`
	Type      model.ContentType   `json:"type"`
	Title     string              `json:"title"`
	Content   json.RawMessage     `json:"content"`
	Metadata  *model.PostMetadata `json:"metadata"`
}

type voteRequest struct {
	VoteType model.VoteType `json:"voteType"`
}

type commentRequest struct {
	Content string `json:"content"`
}

type cloneRequest struct {
	SubjectID string `json:"subjectId"`
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.PostFilter{
		University: q.Get("university"),
		Branch:     q.Get("branch"),
		Subject:    q.Get("subject"),
		Topic:      q.Get("topic"),
		Type:       model.ContentType(q.Get("type")),
		Limit:      queryInt(r, "limit", store.DefaultPostLimit),
		Skip:       queryInt(r, "skip", 0),
	}
	if sem, err := strconv.Atoi(q.Get("semester")); err == nil {
		f.Semester = sem
	}
	posts, err := h.store.ListPosts(f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleGetPost counts a view and returns the post. A post shared without
// its own payload shows the content it was shared from.
func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.ViewPost(chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "PostNotFound")
		return
	}
	if post.Content == nil && post.ContentID != "" {
		payload, err := h.store.ContentPayload(post.ContentID)
		switch {
		case err == nil:
			post.Content = payload
		case !errors.Is(err, store.ErrNotFound):
			h.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, post)
}

// handleCreatePost shares content. Metadata not given in the request is
// taken from the author's profile.
func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	uid := userID(r)
	post := model.CommunityPost{UserID: uid, ContentID: req.ContentID, Type: req.Type, Title: strings.TrimSpace(req.Title)}

	if req.ContentID != "" {
		src, err := h.store.GetContent(uid, req.ContentID)
		if err != nil {
			h.storeError(w, r, err, "ContentNotFound")
			return
		}
		if post.Type == "" {
			post.Type = src.Type
		}
		if post.Title == "" {
			post.Title = src.Title
		}
	}
	if !post.Type.Valid() {
		h.message(w, r, http.StatusBadRequest, "ContentTypeInvalid")
		return
	}
	if post.Title == "" {
		h.required(w, r, "title")
		return
	}
	if len(req.Content) > 0 && string(req.Content) != "null" {
		payload, err := model.DecodePayload(post.Type, req.Content)
		if err != nil {
			h.badRequest(w, r)
			return
		}
		post.Content = payload
	}

	user, err := h.store.GetUser(uid)
	if err != nil {
		h.storeError(w, r, err, "UserNotFound")
		return
	}
	if req.Metadata != nil {
		post.Metadata = *req.Metadata
	}
	if post.Metadata.University == "" {
		post.Metadata.University = user.University
	}
	if post.Metadata.Branch == "" {
		post.Metadata.Branch = user.Branch
	}
	if post.Metadata.Semester == 0 {
		post.Metadata.Semester = user.Semester
	}

	created, err := h.store.CreatePost(post)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if !req.VoteType.Valid() {
		h.message(w, r, http.StatusBadRequest, "VoteInvalid")
		return
	}
	tally, err := h.store.Vote(chi.URLParam(r, "id"), userID(r), req.VoteType)
	if err != nil {
		h.storeError(w, r, err, "PostNotFound")
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *Handler) handleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		h.message(w, r, http.StatusBadRequest, "CommentRequired")
		return
	}
	comment, err := h.store.AddComment(chi.URLParam(r, "id"), userID(r), content)
	if err != nil {
		h.storeError(w, r, err, "PostNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetPost(id); err != nil {
		h.storeError(w, r, err, "PostNotFound")
		return
	}
	comments, err := h.store.ListComments(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// handleClonePost copies a post into one of the caller's subjects. The
// source content is used while it still exists, else the post's own payload.
func (h *Handler) handleClonePost(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	if req.SubjectID == "" {
		h.required(w, r, "subjectId")
		return
	}
	post, err := h.store.GetPost(chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err, "PostNotFound")
		return
	}
	payload := post.Content
	if post.ContentID != "" {
		src, err := h.store.ContentPayload(post.ContentID)
		switch {
		case err == nil && src != nil:
			payload = src
		case err != nil && !errors.Is(err, store.ErrNotFound):
			h.fail(w, r, err)
			return
		}
	}

	generatedAt := time.Now().UTC()
	cloned, err := h.store.CreateContent(model.GeneratedContent{
		UserID:    userID(r),
		SubjectID: req.SubjectID,
		Type:      post.Type,
		Title:     post.Title + " (Cloned)",
		Topic:     post.Metadata.Topic,
		Content:   payload,
		Metadata:  model.ContentMetadata{GeneratedAt: &generatedAt},
	})
	if err != nil {
		h.storeError(w, r, err, "SubjectNotFound")
		return
	}
	writeJSON(w, http.StatusCreated, cloned)
}

func (h *Handler) handleReportPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	count, status, err := h.store.Report(id)
	if err != nil {
		h.storeError(w, r, err, "PostNotFound")
		return
	}
	if status == model.PostReported {
		slog.Info("post removed from feed", "post", id, "reports", count)
	}
	writeJSON(w, http.StatusOK, messageBody{Message: i18n.Tp(r.Context(), "PostReported", count)})
}
