package serve

// --- API Request Types ---

// CreateRequest asks for a new container.
type CreateRequest struct {
	Name    string   `json:"name"`
	Image   string   `json:"image"`
	Command string   `json:"command"`
	Volumes []string `json:"volumes,omitempty"` // "host:container[:mode]" binds
}

// PullRequest asks for an image pull.
type PullRequest struct {
	Image string `json:"image"`
}

// NameRequest carries a single container name.
type NameRequest struct {
	Name string `json:"name"`
}

// DownloadRequest asks for a file to be copied out of a container onto
// the host.
type DownloadRequest struct {
	PathInContainer string `json:"path_to_file_in_container"`
	HostDirectory   string `json:"host_directory"`
}

// --- API Response Types ---

// MessageResponse is the generic success or failure payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LogsResponse carries a container's combined log output.
type LogsResponse struct {
	Logs string `json:"logs"`
}
