package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/bulkimport"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/kvstore"
)

// errorResponse is the structured error payload all failures map to.
type errorResponse struct {
	Error                   string `json:"error"`
	RequiresAcknowledgement bool   `json:"requiresAcknowledgement,omitempty"`
}

// rowPatch extends a row edit with the selection toggle.
type rowPatch struct {
	bulkimport.RowEdit
	Selected *bool `json:"selected,omitempty"`
}

type preferenceBody struct {
	Value string `json:"value"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createImport(c echo.Context) error {
	var req bulkimport.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	session, err := s.manager.Create(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	view := session.Snapshot()
	s.importMetrics.RecordSessionCreated(len(view.Rows), view.InvalidCount)
	return c.JSON(http.StatusCreated, view)
}

func (s *Server) getImport(c echo.Context) error {
	session, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) cancelImport(c echo.Context) error {
	if err := s.manager.Cancel(c.Param("id")); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) patchRow(c echo.Context) error {
	session, index, err := s.sessionRow(c)
	if err != nil {
		return s.mapError(c, err)
	}

	var patch rowPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if err := session.EditRow(index, patch.RowEdit); err != nil {
		return s.mapError(c, err)
	}
	if patch.Selected != nil {
		if err := session.SetSelected(index, *patch.Selected); err != nil {
			return s.mapError(c, err)
		}
	}
	return c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) deleteRow(c echo.Context) error {
	session, index, err := s.sessionRow(c)
	if err != nil {
		return s.mapError(c, err)
	}
	if err := session.DeleteRow(index); err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) registrationCheck(c echo.Context) error {
	reports, err := s.manager.CheckRegistrations(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.importMetrics.RecordRegistrationCheck(0, false)
		return s.mapError(c, err)
	}

	unregistered := 0
	for _, report := range reports {
		unregistered += len(report.Unregistered)
	}
	s.importMetrics.RecordRegistrationCheck(unregistered, true)
	return c.JSON(http.StatusOK, reports)
}

func (s *Server) submit(c echo.Context) error {
	var req bulkimport.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	start := time.Now()
	result, err := s.manager.Submit(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		s.importMetrics.RecordSubmission("error", 0, 0)
		return s.mapError(c, err)
	}

	s.importMetrics.RecordSubmission(string(result.Status), result.DepositCalls, time.Since(start))
	return c.JSON(http.StatusOK, result)
}

func (s *Server) getPreference(c echo.Context) error {
	value, err := s.prefs.Get(c.Request().Context(), c.Param("key"))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "preference not found"})
		}
		s.logger.WithError(err).Error("failed to read preference")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to read preference"})
	}
	return c.JSON(http.StatusOK, preferenceBody{Value: value})
}

func (s *Server) putPreference(c echo.Context) error {
	var body preferenceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := s.prefs.Set(c.Request().Context(), c.Param("key"), body.Value); err != nil {
		s.logger.WithError(err).Error("failed to store preference")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to store preference"})
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionRow resolves the session and row index from the path.
func (s *Server) sessionRow(c echo.Context) (*bulkimport.Session, int, error) {
	session, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return nil, 0, err
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "row index must be a number")
	}
	return session, index, nil
}

// mapError translates pipeline errors into structured HTTP responses.
func (s *Server) mapError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, _ := httpErr.Message.(string)
		return c.JSON(httpErr.Code, errorResponse{Error: msg})
	}

	switch {
	case errors.Is(err, bulkimport.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, bulkimport.ErrAcknowledgementRequired):
		return c.JSON(http.StatusConflict, errorResponse{
			Error:                   err.Error(),
			RequiresAcknowledgement: true,
		})
	case errors.Is(err, bulkimport.ErrSubmissionInProgress):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, bulkimport.ErrQuotaExceeded),
		errors.Is(err, bulkimport.ErrInvalidRows),
		errors.Is(err, bulkimport.ErrNoRowsSelected):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	}

	s.logger.WithError(err).Error("request failed")
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}
