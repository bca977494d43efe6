package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidBody, "could not parse JSON")
		return false
	}
	return true
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		code, field := "invalid_id", "id"
		if param == "resourceID" {
			code, field = "invalid_resource_id", "resource_id"
		}
		writeError(w, http.StatusBadRequest, code, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		fieldError(w, name, "is required")
		return time.Time{}, false
	}
	d, err := schedule.ParseDate(raw)
	if err != nil {
		fieldError(w, name, "must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return d, true
}

func queryRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	if from, ok = queryDate(w, r, "from"); !ok {
		return
	}
	to, ok = queryDate(w, r, "to")
	return
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
