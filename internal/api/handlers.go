// SPDX-License-Identifier: MIT
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mleitner/leavetray/internal/countdown"
	"github.com/mleitner/leavetray/internal/extract"
	"github.com/mleitner/leavetray/internal/report"
	"github.com/mleitner/leavetray/internal/timeutil"
)

type shiftRequest struct {
	Start               string `json:"start"`
	Leave               string `json:"leave"`
	NotifyBeforeMinutes int    `json:"notify_before_minutes"`
}

type statusResponse struct {
	countdown.Status
	Tooltip string `json:"tooltip,omitempty"`
}

type fetchRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
}

type fetchResponse struct {
	Success      bool   `json:"success"`
	EntranceTime string `json:"entrance_time"`
	Source       string `json:"source"`
	Raw          string `json:"raw"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	var req shiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := timeutil.Parse(req.Start)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "start must be a valid HH:MM time")
		return
	}
	leave, err := timeutil.Parse(req.Leave)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "leave must be a valid HH:MM time")
		return
	}
	if req.NotifyBeforeMinutes < 0 {
		s.writeError(w, http.StatusBadRequest, "notify_before_minutes must not be negative")
		return
	}

	s.engine.Submit(countdown.Shift{
		Start:        start,
		Leave:        leave,
		NotifyBefore: req.NotifyBeforeMinutes,
	})
	s.respondStatus(w)
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.engine.Refresh()
	s.respondStatus(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w)
}

func (s *Server) respondStatus(w http.ResponseWriter) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:  s.engine.Status(),
		Tooltip: s.tray.Tooltip(),
	})
}

func (s *Server) handleReportFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	match, err := s.report.FetchEntranceTime(r.Context(), report.FetchOptions{
		EmployeeID: req.EmployeeID,
		Date:       req.Date,
	})
	if err != nil {
		var rerr *report.Error
		switch {
		case errors.As(err, &rerr) && errors.Is(rerr.Sentinel, report.ErrNotConfigured):
			s.writeError(w, http.StatusBadRequest, rerr.Message())
		case errors.As(err, &rerr):
			s.writeError(w, http.StatusBadGateway, rerr.Message())
		case errors.Is(err, extract.ErrNoTime), errors.Is(err, extract.ErrOutOfRange):
			s.writeError(w, http.StatusUnprocessableEntity, "no entrance time found in report response")
		default:
			s.writeError(w, http.StatusInternalServerError, "report fetch failed")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, fetchResponse{
		Success:      true,
		EntranceTime: match.Time,
		Source:       string(match.Source),
		Raw:          match.Raw,
	})
}

func (s *Server) handleReportTest(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.report.TestConnection(r.Context()))
}

func (s *Server) handleIndicatorPNG(w http.ResponseWriter, _ *http.Request) {
	data, ok, err := s.tray.PNG()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "indicator encoding failed")
		return
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "no indicator rendered yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
