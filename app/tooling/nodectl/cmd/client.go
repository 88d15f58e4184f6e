package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// errorResponse is the document the node returns on failure.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// call sends the request to the node and returns the body of a successful
// response. A nil body is returned for a 204.
func call(method string, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(url, "/")+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	wait, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("parsing timeout: %w", err)
	}

	client := http.Client{Timeout: wait}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil

	case resp.StatusCode >= http.StatusBadRequest:
		var er errorResponse
		if err := json.Unmarshal(data, &er); err != nil || er.Error == "" {
			return nil, fmt.Errorf("node responded %s", resp.Status)
		}
		if len(er.Fields) > 0 {
			return nil, fmt.Errorf("node responded %s: %s %v", resp.Status, er.Error, er.Fields)
		}
		return nil, fmt.Errorf("node responded %s: %s", resp.Status, er.Error)
	}

	return data, nil
}

// pretty indents the JSON document for display.
func pretty(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}

	return buf.String()
}

// parseTransaction returns the argument as is when it's a JSON value and
// as a JSON string otherwise, so `nodectl tx hello` submits "hello".
func parseTransaction(arg string) json.RawMessage {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}

	data, _ := json.Marshal(arg)
	return json.RawMessage(data)
}
