package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

type envelope map[string]any

// maxJSONBytes caps JSON request bodies. Files travel as multipart and are capped separately.
const maxJSONBytes = 1 << 20

// tooLargeError is returned by the body readers when the client sent more than limit bytes.
type tooLargeError struct {
	limit int64
}

func (e *tooLargeError) Error() string {
	return fmt.Sprintf("request body must not be larger than %d bytes", e.limit)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))

	return nil
}

// success writes the success envelope with data under the "data" key.
func (app *application) success(w http.ResponseWriter, r *http.Request, message string, data envelope) {
	err := app.writeJSON(w, http.StatusOK, envelope{"message": message, "status": statusSuccess, "data": data}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// parseJSON decodes a single JSON object into dst, rejecting unknown fields. The returned error
// is safe to show to the client.
func (app *application) parseJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return jsonBodyError(err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must only contain a single JSON value")
	}

	return nil
}

func jsonBodyError(err error) error {
	var (
		syntaxErr     *json.SyntaxError
		typeErr       *json.UnmarshalTypeError
		maxBytesErr   *http.MaxBytesError
		invalidTarget *json.InvalidUnmarshalError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return &tooLargeError{limit: maxBytesErr.Limit}
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("request body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("request body contains badly-formed JSON")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Errorf("%s must be a %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &typeErr):
		return errors.New("request body must be a JSON object")
	case errors.Is(err, io.EOF):
		return errors.New("request body must not be empty")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return fmt.Errorf("request body contains unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	case errors.As(err, &invalidTarget):
		panic(err)
	default:
		return err
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart reads a multipart form of at most MaxUploadBytes plus room for the text fields.
func (app *application) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := app.config.MaxUploadBytes + 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	err := r.ParseMultipartForm(limit)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			return &tooLargeError{limit: app.config.MaxUploadBytes}
		}
		return fmt.Errorf("request body contains a malformed multipart form: %w", err)
	}

	return nil
}

// readFile returns the contents of the uploaded file in field, or nil when none was sent.
func (app *application) readFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, app.config.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > app.config.MaxUploadBytes {
		return nil, &tooLargeError{limit: app.config.MaxUploadBytes}
	}

	return data, nil
}

// readBodyError writes the response for an error returned by parseJSON, parseMultipart or
// readFile.
func (app *application) readBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *tooLargeError
	if errors.As(err, &tooLarge) {
		app.payloadTooLargeResponse(w, r, tooLarge.limit)
		return
	}
	app.badRequestResponse(w, r, err)
}

func (app *application) readIDParam(r *http.Request, key string) string {
	params := httprouter.ParamsFromContext(r.Context())
	return params.ByName(key)
}

// formInt parses an optional integer form field. An empty field is zero.
func formInt(r *http.Request, field string) (int, error) {
	s := strings.TrimSpace(r.FormValue(field))
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}

	return n, nil
}

// formList returns every value of a repeated form field, splitting comma separated values.
// It returns nil when the field is absent.
func formList(r *http.Request, field string) []string {
	values, ok := r.MultipartForm.Value[field]
	if !ok {
		return nil
	}

	list := []string{}
	for _, v := range values {
		list = append(list, strings.Split(v, ",")...)
	}
	return list
}
