package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/data"

	"github.com/pkg/errors"
)

var errLogicNotProvided = errors.New("logic not provided")

func getCorrelationId(request *http.Request) string {
	if correlationId := request.Header.Get(data.HeaderCorrelationId); correlationId != "" {
		return correlationId
	}
	return internal.GenerateId()
}

func idFromPath(pathVariables map[string]string) string {
	return pathVariables[data.PathId]
}

// fieldsFromBody decodes the body into a generic field map, numbers are kept
// as json.Number so integral checks happen during validation
func fieldsFromBody(request *http.Request) (map[string]any, error) {
	var fields map[string]any

	defer request.Body.Close()
	decoder := json.NewDecoder(request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, errors.Wrap(data.ErrInvalidInput, err.Error())
	}
	if fields == nil {
		return nil, errors.Wrap(data.ErrInvalidInput, "body must be a JSON object")
	}
	return fields, nil
}

func errorToStatusCode(err error) int {
	switch data.ErrorKind(err) {
	default:
		return http.StatusInternalServerError
	case data.ErrNotFound:
		return http.StatusNotFound
	case data.ErrInvalidInput:
		return http.StatusBadRequest
	case data.ErrUpstreamUnavailable:
		return http.StatusServiceUnavailable
	}
}

func handleResponse(writer http.ResponseWriter, statusCode int, item any) {
	if item == nil || statusCode == http.StatusNoContent {
		writer.WriteHeader(statusCode)
		return
	}
	bytes, err := json.Marshal(item)
	if err != nil {
		statusCode = http.StatusInternalServerError
		bytes, _ = json.Marshal(&data.ErrorResponse{Error: err.Error()})
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	if _, err := writer.Write(bytes); err != nil {
		fmt.Printf("error handling response: %s\n", err)
	}
}
