package http

import (
	"encoding/json"
	"net/http"

	"github.com/Strob0t/actions-bridge/internal/service"
)

// Handlers holds the services behind the bridge routes.
type Handlers struct {
	Commands     *service.CommandService
	Files        *service.FileService
	Git          *service.GitService
	PullRequests *service.PullRequestService
	BodyLimit    int64
}

type runRequest struct {
	Cmd string `json:"cmd"`
}

type writeRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

type gitRequest struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

type readResponse struct {
	OK      bool   `json:"ok"`
	Content string `json:"content"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// RunCommand handles POST /run.
func (h *Handlers) RunCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[runRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	res, err := h.Commands.Run(r.Context(), req.Cmd)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ReadFile handles GET /read?path=.
func (h *Handlers) ReadFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !requireField(w, path, "path") {
		return
	}

	content, err := h.Files.Read(r.Context(), path)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readResponse{OK: true, Content: content})
}

// WriteFile handles POST /write.
func (h *Handlers) WriteFile(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[writeRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	if !requireField(w, req.Path, "path") {
		return
	}
	if req.Content == nil {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if err := h.Files.Write(r.Context(), req.Path, *req.Content); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// GitOp handles POST /git.
func (h *Handlers) GitOp(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[gitRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}

	res, err := h.Git.Execute(r.Context(), req.Op, req.Args)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// OpenPullRequest handles POST /github/pr. The forge response is relayed
// unchanged.
func (h *Handlers) OpenPullRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.PullRequestInput](w, r, h.BodyLimit)
	if !ok {
		return
	}

	raw, err := h.PullRequests.Open(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}
