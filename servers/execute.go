package servers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reusee/taitrace/explains"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/responses"
	"github.com/reusee/taitrace/sandboxes"
	"github.com/reusee/taitrace/tracing"
)

type executeRequest struct {
	Code      *string        `json:"code"`
	InputData map[string]any `json:"input_data"`
}

type detailResponse struct {
	Detail string `json:"detail" msgpack:"detail"`
}

type executeHandler struct {
	sandbox *sandboxes.Sandbox
	engine  *explains.Engine
	logger  logs.Logger
}

func (h *executeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req executeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil {
		writeDetail(w, r, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return
	}
	if req.Code == nil {
		writeDetail(w, r, http.StatusUnprocessableEntity, "Field required: code")
		return
	}
	code := *req.Code

	output, trace, err := h.sandbox.Run(ctx, code, req.InputData)
	if err != nil {
		var fault *sandboxes.UserCodeFault
		if errors.As(err, &fault) {
			writeDetail(w, r, http.StatusBadRequest, "Execution error: "+fault.Message)
			return
		}
		h.logger.ErrorContext(ctx, "execute",
			"error", logs.WrapSpan(ctx, err),
		)
		writeDetail(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	steps := tracing.SerializeAll(trace)
	explanations, explainErr := h.engine.ExplainAll(ctx, code, steps)
	if explainErr != nil {
		h.logger.WarnContext(ctx, "explanations unavailable",
			"error", explainErr,
		)
	}

	resp, err := responses.Assemble(steps, explanations, explainErr, output)
	if err != nil {
		h.logger.ErrorContext(ctx, "assemble response",
			"error", logs.WrapSpan(ctx, err),
		)
		writeDetail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	contentType := responses.Negotiate(r.Header.Get("Accept"))
	body, err := resp.Encode(contentType)
	if err != nil {
		h.logger.ErrorContext(ctx, "encode response",
			"error", logs.WrapSpan(ctx, err),
		)
		writeDetail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeValue(w, r, status, detailResponse{
		Detail: detail,
	})
}

func writeValue(w http.ResponseWriter, r *http.Request, status int, value any) {
	contentType := responses.Negotiate(r.Header.Get("Accept"))
	body, err := responses.Marshal(contentType, value)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)
}
