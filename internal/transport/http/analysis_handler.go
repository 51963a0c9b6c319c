package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "pulsecli/internal/errors"
	"pulsecli/internal/middleware"
	"pulsecli/internal/services"
	"pulsecli/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// memoryLimit caps how much of a multipart body is held in memory;
// the rest spills to temp files.
const memoryLimit = 32 << 20

// AnalysisHandler handles analysis HTTP requests with RFC 7807 compliance
type AnalysisHandler struct {
	service        AnalysisServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	params         *middleware.QueryParamValidator
	maxUploadBytes int64
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "analysis_handler")),
		errorHandler:   errorHandler,
		params:         middleware.NewQueryParamValidator(logger, errorHandler),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator("multipart/form-data"))
		r.Post("/analyze", h.Analyze)
		r.Post("/plot", h.Plot)
	})

	r.Get("/runs", h.ListRuns)
	r.Route("/runs/{id}", func(r chi.Router) {
		r.Get("/", h.GetRun)
		r.Get("/report", h.DownloadReport)
	})

	return r
}

// Analyze handles POST /api/analyze. The default response is the
// annotated workbook; format=json returns the run record and the full
// result instead.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	filename, file, opts, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rr, err := h.service.AnalyzeUpload(r.Context(), filename, file, opts)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("X-Run-ID", rr.Run.ID)

	if r.FormValue("format") == "json" {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, rr)
		return
	}

	download := filepath.Base(rr.Run.ReportPath)
	if name := filepath.Base(r.FormValue("output_name")); name != "." && name != "/" && name != "" {
		if filepath.Ext(name) != ".xlsx" {
			name += ".xlsx"
		}
		download = name
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, download))
	http.ServeFile(w, r, rr.Run.ReportPath)
}

// Plot handles POST /api/plot, answering with a PNG preview of one
// channel's signal, threshold and detected peaks.
func (h *AnalysisHandler) Plot(w http.ResponseWriter, r *http.Request) {
	filename, file, opts, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	png, err := h.service.Plot(r.Context(), filename, file, r.FormValue("plot_channel"), opts)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ListRuns handles GET /api/runs
func (h *AnalysisHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.params.ValidateInt(w, r, "limit", 1, 500, 50)
	if !ok {
		return
	}

	runs, err := h.service.Runs(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}

	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, run)
}

// DownloadReport handles GET /api/runs/{id}/report
func (h *AnalysisHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.service.ReportFile(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "downloading report",
		slog.String("run_id", id),
		slog.String("file", filepath.Base(path)))

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// parseUpload extracts the multipart file and the analysis options
// shared by the analyze and plot endpoints. On failure the error
// response has already been written and ok is false.
func (h *AnalysisHandler) parseUpload(w http.ResponseWriter, r *http.Request) (filename string, file multipart.File, opts services.AnalyzeOptions, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		} else {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return "", nil, opts, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return "", nil, opts, false
	}

	if v := r.FormValue("threshold"); v != "" {
		threshold, valid := h.params.ValidateFloat(w, r, "threshold", 0)
		if !valid {
			_ = f.Close()
			return "", nil, opts, false
		}
		opts.Threshold = &threshold
	}
	opts.Channels = r.Form["channel"]
	opts.TimeColumn = r.FormValue("time_column")

	return header.Filename, f, opts, true
}

// handleServiceError maps service sentinels onto API errors before
// handing off to the central error handler.
func (h *AnalysisHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = apierrors.ErrRunNotFound
	case errors.Is(err, services.ErrReportNotFound):
		err = apierrors.NotFoundError("report")
	case errors.Is(err, services.ErrMissingFilename):
		err = apierrors.ErrMissingFile
	}
	h.errorHandler.HandleError(w, r, err)
}
