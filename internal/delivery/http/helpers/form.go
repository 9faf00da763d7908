package helpers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
)

// ParseMultipart limits the request body to maxBytes and parses it as
// multipart/form-data. On failure it writes a 400 JSON error and returns false;
// callers should return immediately. On success the caller owns
// r.MultipartForm and should call RemoveAll when done.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes, maxMemory int64) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			WriteJSONError(w, http.StatusBadRequest, "Request must be multipart/form-data")
		case errors.As(err, &tooLarge):
			WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Request exceeds the maximum upload size of %d bytes", tooLarge.Limit))
		default:
			WriteJSONError(w, http.StatusBadRequest, "Malformed multipart request: "+err.Error())
		}
		return false
	}
	return true
}

// RequireFormValues returns the first value of each key, or the first key that
// is absent from the form. A present but empty value is accepted.
func RequireFormValues(form *multipart.Form, keys ...string) (values map[string]string, missing string) {
	values = make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok := form.Value[k]
		if !ok || len(v) == 0 {
			return nil, k
		}
		values[k] = v[0]
	}
	return values, ""
}

// FormFile returns the first file uploaded under key, or nil if none was sent.
func FormFile(form *multipart.Form, key string) *multipart.FileHeader {
	if files := form.File[key]; len(files) > 0 {
		return files[0]
	}
	return nil
}

// ParseID reads an int64 path value. Zero and negative ids parse; lookups
// for them simply find nothing.
func ParseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
