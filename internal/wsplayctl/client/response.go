package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/wrale/wsplay/api/types/v1alpha1"
)

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 << 10

// decodeResponse checks the status and decodes a JSON body into target
func decodeResponse(resp *http.Response, target interface{}) error {
	if err := checkStatus(resp); err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// checkStatus turns a non-2xx daemon response into an error carrying the
// daemon's message when it sent one
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr v1alpha1.Error
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&apiErr); err != nil {
		return fmt.Errorf("HTTP %d: unable to decode error response", resp.StatusCode)
	}
	if apiErr.Message == "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Message)
}
