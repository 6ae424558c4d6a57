// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NandaKumar8776/scene-plus-engine/internal/config"
	"github.com/NandaKumar8776/scene-plus-engine/internal/events"
	"github.com/NandaKumar8776/scene-plus-engine/internal/logging"
	"github.com/NandaKumar8776/scene-plus-engine/internal/models"
	"github.com/NandaKumar8776/scene-plus-engine/internal/modelstore"
	"github.com/NandaKumar8776/scene-plus-engine/internal/offers"
	"github.com/NandaKumar8776/scene-plus-engine/internal/pipeline"
	"github.com/NandaKumar8776/scene-plus-engine/internal/profile"
	"github.com/NandaKumar8776/scene-plus-engine/internal/segmentation"
)

// Handler implements the API endpoints over the engine components.
type Handler struct {
	cfg        *config.Config
	segments   *segmentation.Engine
	offers     *offers.Engine
	recorder   *events.Recorder
	eventStore *events.Store
	modelStore *modelstore.Store
	startedAt  time.Time
}

// NewHandler creates the endpoint handler. The event store and model store
// may be nil in tests that do not exercise tracking or persistence.
func NewHandler(
	cfg *config.Config,
	segments *segmentation.Engine,
	offerEngine *offers.Engine,
	recorder *events.Recorder,
	eventStore *events.Store,
	modelStore *modelstore.Store,
) *Handler {
	return &Handler{
		cfg:        cfg,
		segments:   segments,
		offers:     offerEngine,
		recorder:   recorder,
		eventStore: eventStore,
		modelStore: modelStore,
		startedAt:  time.Now(),
	}
}

// writeDomainError maps engine errors onto API responses. Input contract
// violations are client errors; an untrained model is a state conflict.
func writeDomainError(rw *ResponseWriter, err error) {
	var featureErr *models.FeatureError
	var transformErr *models.TransformationError

	switch {
	case models.IsNotTrained(err):
		rw.ModelNotTrained()
	case errors.As(err, &featureErr), errors.As(err, &transformErr):
		rw.BadRequest(err.Error())
	default:
		logging.Error().Err(err).Msg("request failed")
		rw.InternalError("An internal error occurred")
	}
}

// normalizeAndAggregate runs the shared front half of the analytic
// endpoints: raw records to customer profiles.
func (h *Handler) normalizeAndAggregate(source string, records []map[string]any) (*pipeline.Result, []models.CustomerProfile, error) {
	kind, err := pipeline.ParseSourceKind(source)
	if err != nil {
		return nil, nil, err
	}
	normalizer, err := pipeline.NewNormalizer(kind)
	if err != nil {
		return nil, nil, err
	}
	result, err := normalizer.Normalize(records)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := profile.Aggregate(result.Transactions)
	if err != nil {
		return nil, nil, err
	}
	return result, profiles, nil
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	model := map[string]any{
		"trained":  h.segments.IsTrained(),
		"version":  h.segments.Version(),
		"clusters": h.segments.Clusters(),
	}
	if h.segments.IsTrained() {
		model["trained_at"] = h.segments.LastTrainedAt()
	}

	rw.Success(map[string]any{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"model":          model,
	})
}

// HealthLive handles GET /api/v1/health/live. Reports only that the
// process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Checks the event store.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.eventStore != nil {
		if err := h.eventStore.Ping(r.Context()); err != nil {
			logging.Warn().Err(err).Msg("readiness check failed")
			rw.ServiceUnavailable("Event store is not reachable")
			return
		}
	}
	rw.Success(map[string]string{"status": "ready"})
}

// NormalizeTransactions handles POST /api/v1/transactions/normalize.
// Per-record failures are reported in the response, not surfaced as an
// error, so one bad row never blocks a batch.
func (h *Handler) NormalizeTransactions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req NormalizeRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	kind, err := pipeline.ParseSourceKind(req.Source)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	normalizer, err := pipeline.NewNormalizer(kind)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	result, err := normalizer.Normalize(req.Records)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	rw.Success(map[string]any{
		"source":       result.Source,
		"transactions": result.Transactions,
		"valid_count":  len(result.Transactions),
		"error_count":  len(result.Errors),
		"errors":       result.Errors,
	})
}

// TrainSegmentation handles POST /api/v1/segmentation/train. Trains the
// clustering model on the submitted batch and persists the new version.
func (h *Handler) TrainSegmentation(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req NormalizeRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	result, profiles, err := h.normalizeAndAggregate(req.Source, req.Records)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	start := time.Now()
	assignments, err := h.segments.Train(profiles)
	if err != nil {
		writeDomainError(rw, err)
		return
	}
	trainingDuration := time.Since(start)

	if err := h.persistModel(len(profiles), trainingDuration); err != nil {
		// The in-memory model is live; persistence failure only costs
		// restart recovery.
		logging.Error().Err(err).Msg("failed to persist trained model")
	}

	rw.Success(map[string]any{
		"version":              h.segments.Version(),
		"clusters":             h.segments.Clusters(),
		"customer_count":       len(profiles),
		"rejected_records":     len(result.Errors),
		"training_duration_ms": trainingDuration.Milliseconds(),
		"assignments":          assignments,
	})
}

// persistModel snapshots the trained model into the model store and prunes
// old versions.
func (h *Handler) persistModel(customerCount int, trainingDuration time.Duration) error {
	if h.modelStore == nil {
		return nil
	}

	state, err := h.segments.Snapshot()
	if err != nil {
		return err
	}
	meta := modelstore.ModelMetadata{
		Name:               segmentation.ModelName,
		Version:            state.Version,
		TrainedAt:          state.TrainedAt,
		CustomerCount:      customerCount,
		Clusters:           state.Clusters,
		TrainingDurationMS: trainingDuration.Milliseconds(),
	}
	if err := h.modelStore.Save(segmentation.ModelName, state.Version, state, meta); err != nil {
		return err
	}

	if keep := h.cfg.Segmentation.KeepVersions; keep > 0 {
		if _, err := h.modelStore.Prune(segmentation.ModelName, keep); err != nil {
			return err
		}
	}
	return nil
}

// PredictSegments handles POST /api/v1/segments/predict.
func (h *Handler) PredictSegments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req NormalizeRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	_, profiles, err := h.normalizeAndAggregate(req.Source, req.Records)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	assignments, err := h.segments.Predict(profiles)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	rw.Success(map[string]any{
		"model_version": h.segments.Version(),
		"assignments":   assignments,
	})
}

// SegmentProfiles handles GET /api/v1/segments/profiles. Returns each
// segment's centroid in original feature units plus its description.
func (h *Handler) SegmentProfiles(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	profiles, err := h.segments.SegmentProfiles()
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	rw.Success(map[string]any{
		"model_version": h.segments.Version(),
		"segments":      profiles,
	})
}

// GenerateOffers handles POST /api/v1/offers/generate. Normalizes the
// batch, segments the customers on the current model, and returns ranked
// offers per customer. Generation events are recorded for the funnel.
func (h *Handler) GenerateOffers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req GenerateOffersRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	_, profiles, err := h.normalizeAndAggregate(req.Source, req.Records)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	assignments, err := h.segments.Predict(profiles)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	customerOffers, err := h.offers.Generate(profiles, assignments, req.Count)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	if h.recorder != nil {
		segments := make(map[string]string, len(assignments))
		for _, a := range assignments {
			segments[a.CustomerID] = a.Description
		}
		if err := h.recorder.RecordGenerated(r.Context(), customerOffers, segments); err != nil {
			logging.Warn().Err(err).Msg("failed to record generation events")
		}
	}

	rw.Success(map[string]any{
		"model_version": h.segments.Version(),
		"offers":        customerOffers,
	})
}

// TrackOfferEvent handles POST /api/v1/offers/track. Repeat event IDs
// within the dedup window yield 409.
func (h *Handler) TrackOfferEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req TrackEventRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	event := models.OfferEvent{
		EventID:    req.EventID,
		CustomerID: req.CustomerID,
		OfferID:    req.OfferID,
		OfferType:  models.OfferType(req.OfferType),
		EventType:  models.OfferEventType(req.EventType),
		Segment:    req.Segment,
		Value:      req.Value,
		Timestamp:  req.Timestamp,
	}

	recorded, err := h.recorder.Record(r.Context(), event)
	if err != nil {
		if errors.Is(err, events.ErrDuplicateEvent) {
			rw.Conflict("Event " + req.EventID + " was already recorded")
			return
		}
		writeDomainError(rw, err)
		return
	}

	rw.Created(map[string]any{
		"event_id":  recorded.EventID,
		"timestamp": recorded.Timestamp,
	})
}

// OfferAnalytics handles GET /api/v1/offers/analytics. The lookback window
// defaults from config and can be overridden per request.
func (h *Handler) OfferAnalytics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	lookback := h.cfg.Events.LookbackDays
	if raw := r.URL.Query().Get("lookback_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			rw.BadRequest("lookback_days must be a positive integer")
			return
		}
		lookback = parsed
	}

	report, err := h.eventStore.OfferPerformance(r.Context(), lookback)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(report)
}
