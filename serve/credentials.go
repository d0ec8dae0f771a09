package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// credentials are the username and password the API authenticates against.
type credentials struct {
	Username string `json:"server_username"`
	Password string `json:"server_password"`
}

// readCredentials loads credentials from the JSON secrets file. The file
// is read on every authenticated request, so credentials can be rotated
// without a restart.
func readCredentials(path string) (credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return credentials{}, fmt.Errorf("read secrets file: %w", err)
	}

	var c credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return credentials{}, fmt.Errorf("parse secrets file: %w", err)
	}

	if c.Username == "" || c.Password == "" {
		return credentials{}, errors.New("secrets file missing server_username or server_password")
	}

	return c, nil
}
