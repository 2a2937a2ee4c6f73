package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"foreverstream/internal/api"
	"foreverstream/internal/assets"
	"foreverstream/internal/config"
	"foreverstream/internal/logging"
	"foreverstream/internal/metrics"
	"foreverstream/internal/services"
	"foreverstream/internal/trigger"
)

// maxEventBytes bounds trigger request bodies. Storage notifications are a
// few kilobytes.
const maxEventBytes = 1 << 20

const (
	stageIngest      = "ingest"
	stageIngestLocal = "ingest-local"
	stageCompletion  = "completion"
)

type eventFunc func(ctx context.Context, event trigger.ObjectEvent) (trigger.Outcome, error)

type apiServer struct {
	bind     string
	token    string
	logger   *slog.Logger
	daemon   *Daemon
	assetSvc *api.AssetService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:     bind,
		token:    cfg.Paths.APIToken,
		logger:   logger,
		daemon:   d,
		assetSvc: api.NewAssetService(d.store),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// routes builds the router. Trigger handlers may run a full local encode
// before responding, so no write timeout is set on the server.
func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Legacy push route: always processes with the local worker.
	r.Post("/process-video", s.eventHandler(stageIngestLocal, s.daemon.ingest.HandleLocal))

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware(s.token))
		r.Post("/events/raw", s.eventHandler(stageIngest, s.daemon.ingest.Handle))
		r.Post("/events/processed", s.eventHandler(stageCompletion, s.daemon.completion.Handle))
		r.Get("/assets", s.handleAssets)
		r.Get("/assets/{id}", s.handleAsset)
		r.Get("/status", s.handleStatus)
	})
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// eventHandler decodes a push or direct trigger body and runs handle. The
// response code tells push transports whether to redeliver.
func (s *apiServer) eventHandler(stage string, handle eventFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, api.EventResponse{
				Outcome: string(trigger.OutcomeInvalid),
				Error:   fmt.Sprintf("read body: %v", err),
			})
			return
		}
		event, err := trigger.DecodeRequest(body)
		if err != nil {
			s.log().Debug("rejected trigger body", logging.String("stage", stage), logging.Error(err))
			s.writeJSON(w, services.HTTPStatus(err), api.EventResponse{
				Outcome: string(trigger.OutcomeInvalid),
				Error:   err.Error(),
			})
			return
		}

		ctx := services.WithStage(r.Context(), stage)
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			ctx = services.WithRequestID(ctx, reqID)
		}
		outcome, err := handle(ctx, event)
		resp := api.EventResponse{
			Outcome: string(outcome),
			AssetID: eventAssetID(stage, event),
		}
		if err != nil {
			resp.Error = err.Error()
		}
		s.writeJSON(w, services.HTTPStatus(err), resp)
	}
}

func eventAssetID(stage string, event trigger.ObjectEvent) string {
	if stage == stageCompletion {
		id, _ := trigger.AssetIDFromManifest(event.Name)
		return id
	}
	return assets.IDFromObjectName(event.Name)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	deps := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		Backend:      status.Backend,
		StoreBackend: status.StoreBackend,
		RawBucket:    status.RawBucket,
		Processed:    status.Processed,
		LockFilePath: status.LockFilePath,
		Stats:        api.FromStats(status.Stats),
		Dependencies: deps,
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleAssets(w http.ResponseWriter, r *http.Request) {
	statuses, err := api.ParseStatuses(r.URL.Query()["status"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.assetSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []api.Asset{}
	}
	s.writeJSON(w, http.StatusOK, api.AssetListResponse{Items: items})
}

func (s *apiServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	item, err := s.assetSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.AssetResponse{Item: *item})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
