package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Dosada05/gauntlet-system/gauntlet"
)

type ProxyHandler struct {
	client *gauntlet.Client
}

func NewProxyHandler(client *gauntlet.Client) *ProxyHandler {
	return &ProxyHandler{client: client}
}

// GauntletSearchHandler handles POST /proxy/gauntlet. The body is relayed to
// the upstream search endpoint with the fixed fields merged in, and the
// upstream response comes back verbatim on success. Upstream failures are
// wrapped so the caller can tell a proxy error from its own bad request.
func (h *ProxyHandler) GauntletSearchHandler(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := readJSON(w, r, &body); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	status, respBody, err := h.client.Forward(r.Context(), body)
	if err != nil {
		errorResponse(w, r, http.StatusBadGateway, err.Error())
		return
	}

	if status >= 400 {
		var details json.RawMessage
		if json.Valid(respBody) {
			details = respBody
		} else {
			details, _ = json.Marshal(string(respBody))
		}
		errorPayload := jsonResponse{
			"error":    "upstream gauntlet search failed",
			"status":   status,
			"response": details,
		}
		if err := writeJSON(w, status, errorPayload, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(respBody); err != nil {
		serverErrorResponse(w, r, err)
	}
}
