package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/rfaulkner7/semaj/internal/config"
	"github.com/rfaulkner7/semaj/internal/models"
	"github.com/rfaulkner7/semaj/internal/store"
)

// PostsHandler mutates the posts document through a ConditionalStore.
// Each request is a fresh read-modify-write: read the document and its
// revision, mutate in memory, write back guarded by that revision. A
// concurrent writer makes the write fail with a conflict; there is no
// retry, the caller resubmits.
type PostsHandler struct {
	store store.ConditionalStore
	cfg   config.Config
}

func NewPostsHandler(s store.ConditionalStore, cfg config.Config) *PostsHandler {
	return &PostsHandler{store: s, cfg: cfg}
}

type CreatePostRequest struct {
	models.PostInput
	Secret string `json:"secret"`
}

type CreatePostResponse struct {
	OK   bool        `json:"ok"`
	Post models.Post `json:"post"`
}

type DeletePostRequest struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Date   string `json:"date"`
	Secret string `json:"secret"`
}

type DeletePostResponse struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted"`
}

// Create appends a new post at the head of the document.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.AllowPublicPosts {
		respondError(w, http.StatusForbidden, "Public posting disabled")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if h.cfg.PostSharedSecret != "" && !secretMatches(req.Secret, h.cfg.PostSharedSecret) {
		respondError(w, http.StatusUnauthorized, "Invalid secret")
		return
	}

	if h.cfg.Misconfigured() {
		h.respondMisconfigured(w)
		return
	}

	post, err := models.NewPost(req.PostInput)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, revision, err := h.loadPosts(r)
	if err != nil {
		log.Printf("create: load posts: %v", err)
		h.respondUpstream(w, "Failed to load posts", err, nil)
		return
	}

	posts = append([]models.Post{post}, posts...)
	if err := h.savePosts(r, posts, revision, "Add post: "+post.Title); err != nil {
		log.Printf("create: save posts: %v", err)
		h.respondUpstream(w, "Failed to save post", err, nil)
		return
	}

	respondJSON(w, http.StatusOK, CreatePostResponse{OK: true, Post: post})
}

// Delete removes a post by id, or by exact title+date when no id is
// given.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeletePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Deletion stays protected: a configured secret must match, and
	// without one the public flag has to be set explicitly.
	if h.cfg.PostSharedSecret != "" {
		if !secretMatches(req.Secret, h.cfg.PostSharedSecret) {
			respondError(w, http.StatusUnauthorized, "Invalid secret")
			return
		}
	} else if !h.cfg.AllowPublicPosts {
		respondError(w, http.StatusForbidden, "Deletion disabled")
		return
	}

	if h.cfg.Misconfigured() {
		h.respondMisconfigured(w)
		return
	}

	if req.ID == "" && (req.Title == "" || req.Date == "") {
		respondError(w, http.StatusBadRequest, "Provide id or title+date")
		return
	}

	diag := map[string]interface{}{"id": req.ID, "title": req.Title, "date": req.Date}

	posts, revision, err := h.loadPosts(r)
	if err != nil {
		log.Printf("delete: load posts: %v", err)
		h.respondUpstream(w, "Failed to load posts", err, diag)
		return
	}

	remaining := make([]models.Post, 0, len(posts))
	deleted := ""
	for _, p := range posts {
		match := false
		if req.ID != "" {
			match = p.ID == req.ID
		} else {
			match = p.Title == req.Title && p.Date == req.Date
		}
		if match {
			deleted = p.Key()
			continue
		}
		remaining = append(remaining, p)
	}

	if len(remaining) == len(posts) {
		respondError(w, http.StatusNotFound, "Post not found")
		return
	}

	message := "Delete post " + req.ID
	if req.ID == "" {
		message = "Delete post " + req.Title
	}
	if err := h.savePosts(r, remaining, revision, message); err != nil {
		log.Printf("delete: save posts: %v", err)
		h.respondUpstream(w, "Failed to save posts", err, diag)
		return
	}

	respondJSON(w, http.StatusOK, DeletePostResponse{OK: true, Deleted: deleted})
}

// List serves the current document as a raw JSON array, the same shape
// the static site reads. Missing or unparseable documents come back as
// an empty array.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Misconfigured() {
		h.respondMisconfigured(w)
		return
	}
	posts, _, err := h.loadPosts(r)
	if err != nil {
		log.Printf("list: load posts: %v", err)
		h.respondUpstream(w, "Failed to load posts", err, nil)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

// loadPosts reads and parses the posts document. A missing document
// or unparseable content yields the empty slice with the revision
// from the read, never an error; only upstream failures propagate.
func (h *PostsHandler) loadPosts(r *http.Request) ([]models.Post, string, error) {
	content, revision, err := h.store.Read(r.Context(), h.cfg.PostsPath)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Post{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var posts []models.Post
	if err := json.Unmarshal(content, &posts); err != nil || posts == nil {
		posts = []models.Post{}
	}
	return posts, revision, nil
}

func (h *PostsHandler) savePosts(r *http.Request, posts []models.Post, revision, message string) error {
	content, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return err
	}
	return h.store.WriteIf(r.Context(), h.cfg.PostsPath, content, revision, message)
}

func (h *PostsHandler) respondMisconfigured(w http.ResponseWriter) {
	var diag map[string]interface{}
	if h.cfg.Debug {
		diag = map[string]interface{}{
			"haveToken": h.cfg.GitHubToken != "",
			"haveRepo":  h.cfg.GitHubRepo != "",
		}
	}
	respondErrorDebug(w, http.StatusInternalServerError,
		"Server misconfigured: missing GITHUB_TOKEN or GITHUB_REPO", diag)
}

// respondUpstream maps store failures to a 500 with a generic message.
// Operational detail is only exposed through diagnostics when debug is
// on.
func (h *PostsHandler) respondUpstream(w http.ResponseWriter, message string, err error, diag map[string]interface{}) {
	if errors.Is(err, store.ErrConflict) {
		message = message + ": concurrent update, please resubmit"
	}
	if h.cfg.Debug {
		if diag == nil {
			diag = map[string]interface{}{}
		}
		diag["cause"] = err.Error()
		var upstream *store.UpstreamError
		if errors.As(err, &upstream) {
			diag["upstreamStatus"] = upstream.Status
		}
	}
	respondErrorDebug(w, http.StatusInternalServerError, message, diag)
}

func secretMatches(provided, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondErrorDebug(w http.ResponseWriter, status int, message string, diagnostics map[string]interface{}) {
	if diagnostics == nil {
		respondError(w, status, message)
		return
	}
	respondJSON(w, status, map[string]interface{}{
		"error":       message,
		"diagnostics": diagnostics,
	})
}
