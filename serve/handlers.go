package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mvdwal/stevedore"
)

// --- Liveness & Auth ---

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "up")
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Authenticated & Authorized."})
}

// --- Image Handlers ---

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	tags, err := s.images.Images(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handlePullImage(w http.ResponseWriter, r *http.Request) {
	var req PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "invalid request body"})
		return
	}
	if req.Image == "" {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Docker image must be provided."})
		return
	}

	tag, err := s.images.Pull(r.Context(), req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Image %s pulled successfully.", tag)})
}

// --- Container Handlers ---

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "invalid request body"})
		return
	}

	opts := stevedore.CreateOptions{
		Name:    req.Name,
		Image:   req.Image,
		Command: strings.Fields(req.Command),
		Binds:   req.Volumes,
	}

	if err := s.core.Create(r.Context(), opts); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Container %s created successfully.", req.Name)})
}

func (s *Server) handleContainerState(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	rec, err := s.core.State(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleContainerLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	logs, err := s.core.Logs(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LogsResponse{Logs: logs})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "invalid request body"})
		return
	}
	if req.PathInContainer == "" || req.HostDirectory == "" {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "path_to_file_in_container and host_directory must be provided."})
		return
	}

	dest, err := s.core.Download(r.Context(), name, req.PathInContainer, req.HostDirectory)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("File '%s' successfully downloaded.", dest)})
}

func (s *Server) handleStopContainer(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeName(w, r)
	if !ok {
		return
	}

	if err := s.core.Stop(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Container %s stopped successfully.", name)})
}

func (s *Server) handleDeleteContainer(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeName(w, r)
	if !ok {
		return
	}

	if err := s.core.Remove(r.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Container %s deleted successfully.", name)})
}

// decodeName reads a NameRequest body, writing the error response itself
// when the body is invalid or the name is empty.
func decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "invalid request body"})
		return "", false
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Container name must be provided."})
		return "", false
	}
	return req.Name, true
}

// writeError maps core errors onto HTTP statuses. Engine failures pass
// through with their message intact.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stevedore.ErrMissingField):
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: err.Error()})
	case errors.Is(err, stevedore.ErrNotFound), errors.Is(err, stevedore.ErrNotTracked):
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
