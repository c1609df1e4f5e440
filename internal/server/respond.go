package server

import (
	"encoding/json"
	"net/http"

	"vantage/pkg/errors"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" && errors.IsSyntax(err) {
		code = errors.ErrCodeSyntax
	}

	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = errors.UserMessage(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeWorkspaceNotFound, errors.ErrCodeReferenceNotFound,
		errors.ErrCodeStatementNotFound, errors.ErrCodeLayerNotFound,
		errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeSyntax, errors.ErrCodeUnresolvedRef,
		errors.ErrCodeNotLayerBacked, errors.ErrCodeUnknownStatement,
		errors.ErrCodeInvalidInput, errors.ErrCodeInvalidKey,
		errors.ErrCodeInvalidDefinition, errors.ErrCodeInvalidSnapshot:
		status = http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err)
	}
	writeJSON(w, status, body)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
