package editorial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"journalflow/internal/bootstrap/logging"
	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/errs"
	"journalflow/internal/ports"
)

const (
	defaultReviewWindow = 14 * 24 * time.Hour
	defaultPreviewRunes = 280
	statusCacheTTL      = 24 * time.Hour

	defaultDispatchWorkers = 8
	defaultDispatchTimeout = 30 * time.Second
)

// Deps are the collaborators the engine needs. Cache, Dispatcher and Metrics are optional.
type Deps struct {
	Repo       ports.EditorialRepository
	Issues     ports.IssueRepository
	Outbox     ports.NotificationOutbox
	Directory  ports.DirectoryRepository
	Files      ports.FileStore
	UnitOfWork ports.UnitOfWork
	Cache      ports.Cache
	Dispatcher ports.Dispatcher
	Metrics    ports.Metrics
}

type Options struct {
	PublicURL      string
	TrackingPrefix string
	PreviewRunes   int
	ReviewWindow   time.Duration
	Now            func() time.Time

	// DispatchWorkers bounds concurrent post-commit dispatches. When all are busy
	// committed intents stay pending for the relay.
	DispatchWorkers int
	DispatchTimeout time.Duration
}

// Service is the manuscript workflow engine: lifecycle transitions, reviewer
// assignments and publication binding.
type Service struct {
	repo       ports.EditorialRepository
	issues     ports.IssueRepository
	outbox     ports.NotificationOutbox
	directory  ports.DirectoryRepository
	files      ports.FileStore
	uow        ports.UnitOfWork
	cache      ports.Cache
	dispatcher ports.Dispatcher
	metrics    ports.Metrics

	publicURL      string
	trackingPrefix string
	previewRunes   int
	reviewWindow   time.Duration
	now            func() time.Time

	slots           chan struct{}
	drainMu         sync.Mutex
	dispatchTimeout time.Duration
}

func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		repo:           deps.Repo,
		issues:         deps.Issues,
		outbox:         deps.Outbox,
		directory:      deps.Directory,
		files:          deps.Files,
		uow:            deps.UnitOfWork,
		cache:          deps.Cache,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		publicURL:      strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/"),
		trackingPrefix: strings.TrimSpace(opts.TrackingPrefix),
		previewRunes:   opts.PreviewRunes,
		reviewWindow:   opts.ReviewWindow,
		now:            opts.Now,
	}
	if s.trackingPrefix == "" {
		s.trackingPrefix = "JRNL"
	}
	if s.previewRunes <= 0 {
		s.previewRunes = defaultPreviewRunes
	}
	if s.reviewWindow <= 0 {
		s.reviewWindow = defaultReviewWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	workers := opts.DispatchWorkers
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	s.slots = make(chan struct{}, workers)
	s.dispatchTimeout = opts.DispatchTimeout
	if s.dispatchTimeout <= 0 {
		s.dispatchTimeout = defaultDispatchTimeout
	}
	return s
}

func (s *Service) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("editorial repository is required")
	}
	if s.uow == nil {
		return errors.New("editorial unit of work is required")
	}
	if s.outbox == nil {
		return errors.New("notification outbox is required")
	}
	if s.directory == nil {
		return errors.New("user directory is required")
	}
	return nil
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// effects collects what a committed transition hands off after the transaction.
type effects struct {
	now      time.Time
	intents  []domain.Intent
	statuses map[string]domain.ManuscriptStatus
}

func (e *effects) notify(m domain.Manuscript, key domain.TemplateKey, recipient uint64, payload map[string]string) {
	e.intents = append(e.intents, domain.Intent{
		IdempotencyKey:  uuid.NewString(),
		ManuscriptID:    m.ID,
		TemplateKey:     key,
		RecipientUserID: recipient,
		Payload:         payload,
		CreatedAt:       e.now,
	})
}

func (e *effects) status(m domain.Manuscript) {
	if e.statuses == nil {
		e.statuses = map[string]domain.ManuscriptStatus{}
	}
	e.statuses[m.TrackingCode] = m.Status
}

// transact runs fn in one transaction, stores the collected intents in the outbox
// inside it and hands them to a background dispatch once committed.
func (s *Service) transact(ctx context.Context, operation string, fn func(txCtx context.Context, fx *effects) error) error {
	fx := &effects{now: s.clock()}
	var stored []domain.Intent

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := fn(txCtx, fx); err != nil {
			return err
		}
		if len(fx.intents) == 0 {
			return nil
		}
		out, err := s.outbox.EnqueueIntents(txCtx, fx.intents)
		if err != nil {
			return err
		}
		stored = out
		return nil
	})
	s.observeTransition(operation, err)
	if err != nil {
		if ResultLabel(err) == "error" {
			logging.Error(ctx, "transition failed", slog.Any("err", errs.Loggable(err)))
		} else {
			logging.Debug(ctx, "transition rejected", slog.String("reason", ResultLabel(err)), slog.String("detail", err.Error()))
		}
		return err
	}
	logging.Info(ctx, "transition committed", slog.Int("intents", len(stored)))

	for code, status := range fx.statuses {
		s.setStatusBestEffort(ctx, code, status)
	}
	s.dispatchAsync(ctx, stored)
	return nil
}

// dispatchAsync delivers committed intents off the caller's path. Failures are
// logged and left for the relay; they never fail or delay the transition.
func (s *Service) dispatchAsync(ctx context.Context, intents []domain.Intent) {
	if s.dispatcher == nil || len(intents) == 0 {
		return
	}
	select {
	case s.slots <- struct{}{}:
	default:
		logging.Warn(ctx, "dispatch workers busy, leaving intents to the relay", slog.Int("intents", len(intents)))
		return
	}

	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	go func() {
		defer func() { <-s.slots }()
		defer cancel()
		for _, intent := range intents {
			DispatchIntent(dispatchCtx, s.dispatcher, s.outbox, s.metrics, intent, s.clock)
		}
	}()
}

// Drain waits until every in-flight background dispatch has finished or ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	held := 0
	defer func() {
		for ; held > 0; held-- {
			<-s.slots
		}
	}()
	for held < cap(s.slots) {
		select {
		case s.slots <- struct{}{}:
			held++
		case <-ctx.Done():
			return errs.Wrap(ctx.Err(), "drain dispatch workers")
		}
	}
	return nil
}

// DispatchIntent delivers one stored intent and records the outcome in the outbox.
func DispatchIntent(ctx context.Context, dispatcher ports.Dispatcher, outbox ports.NotificationOutbox, metrics ports.Metrics, intent domain.Intent, now func() time.Time) bool {
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.domain.dispatch"),
		slog.Uint64("intent_id", intent.ID),
		slog.Uint64("manuscript_id", intent.ManuscriptID),
		slog.String("template", string(intent.TemplateKey)),
	)

	if err := dispatcher.Dispatch(ctx, intent); err != nil {
		logging.Warn(logCtx, "notification dispatch failed", slog.Any("err", errs.Loggable(err)))
		if metrics != nil {
			metrics.ObserveDispatch(string(intent.TemplateKey), "failed")
		}
		if markErr := outbox.MarkFailed(ctx, intent.ID, err.Error()); markErr != nil {
			logging.Error(logCtx, "mark intent failed", slog.Any("err", errs.Loggable(markErr)))
		}
		return false
	}

	if metrics != nil {
		metrics.ObserveDispatch(string(intent.TemplateKey), "dispatched")
	}
	if err := outbox.MarkDispatched(ctx, intent.ID, now().UTC()); err != nil {
		logging.Error(logCtx, "mark intent dispatched", slog.Any("err", errs.Loggable(err)))
	}
	return true
}

func (s *Service) observeTransition(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTransition(operation, ResultLabel(err))
}

// ResultLabel classifies an operation outcome for metrics and logs.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateAssignment):
		return "duplicate_assignment"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, domain.ErrConflictingTransition):
		return "conflict"
	default:
		return "error"
	}
}

func statusCacheKey(trackingCode string) string {
	return "manuscript-status:" + trackingCode
}

func (s *Service) setStatusBestEffort(ctx context.Context, trackingCode string, status domain.ManuscriptStatus) {
	if s.cache == nil || trackingCode == "" {
		return
	}
	key := statusCacheKey(trackingCode)
	if err := s.cache.Set(ctx, key, string(status), statusCacheTTL); err != nil {
		logging.Warn(ctx, "status cache write failed", slog.String("tracking_code", trackingCode), slog.Any("err", errs.Loggable(err)))
		// A stale entry would keep answering CurrentStatus until it expires.
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			logging.Error(ctx, "status cache evict failed", slog.String("tracking_code", trackingCode), slog.Any("err", errs.Loggable(delErr)))
		}
	}
}

// backfillStatus caches a status read from the database without overwriting an
// entry a concurrent transition may have written since.
func (s *Service) backfillStatus(ctx context.Context, trackingCode string, status domain.ManuscriptStatus) {
	if s.cache == nil || trackingCode == "" {
		return
	}
	if _, err := s.cache.SetIfAbsent(ctx, statusCacheKey(trackingCode), string(status), statusCacheTTL); err != nil {
		logging.Debug(ctx, "status cache backfill failed", slog.String("tracking_code", trackingCode), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) loadManuscript(ctx context.Context, manuscriptID uint64) (domain.Manuscript, error) {
	m, err := s.repo.GetManuscript(ctx, manuscriptID)
	if err != nil {
		if errors.Is(err, ports.ErrManuscriptNotFound) {
			return domain.Manuscript{}, domain.NotFoundf("manuscript %d", manuscriptID)
		}
		return domain.Manuscript{}, err
	}
	return m, nil
}

func (s *Service) loadAssignment(ctx context.Context, assignmentID uint64) (domain.Assignment, error) {
	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, ports.ErrAssignmentNotFound) {
			return domain.Assignment{}, domain.NotFoundf("assignment %d", assignmentID)
		}
		return domain.Assignment{}, err
	}
	return a, nil
}

// saveManuscript writes next only if the stored row still has prev's status and version.
func (s *Service) saveManuscript(ctx context.Context, prev domain.Manuscript, next domain.Manuscript) (domain.Manuscript, error) {
	if err := next.CheckEditorInvariant(); err != nil {
		return domain.Manuscript{}, err
	}
	saved, err := s.repo.UpdateManuscript(ctx, next, prev.Status, prev.Version)
	if err != nil {
		if errors.Is(err, ports.ErrStaleWrite) {
			return domain.Manuscript{}, &domain.ConflictError{Entity: "manuscript", ID: prev.ID, Expected: string(prev.Status)}
		}
		if errors.Is(err, ports.ErrManuscriptNotFound) {
			return domain.Manuscript{}, domain.NotFoundf("manuscript %d", prev.ID)
		}
		return domain.Manuscript{}, err
	}
	return saved, nil
}

func (s *Service) saveAssignment(ctx context.Context, prev domain.Assignment, next domain.AssignmentStatus, at time.Time) (domain.Assignment, error) {
	saved, err := s.repo.UpdateAssignmentStatus(ctx, prev, next, at)
	if err != nil {
		if errors.Is(err, ports.ErrStaleWrite) {
			return domain.Assignment{}, &domain.ConflictError{Entity: "assignment", ID: prev.ID, Expected: string(prev.Status)}
		}
		if errors.Is(err, ports.ErrAssignmentNotFound) {
			return domain.Assignment{}, domain.NotFoundf("assignment %d", prev.ID)
		}
		return domain.Assignment{}, err
	}
	return saved, nil
}

func (s *Service) appendEvent(ctx context.Context, m domain.Manuscript, actorID uint64, action string, from string, to string, note string, at time.Time) error {
	return s.repo.AppendEvent(ctx, ports.ManuscriptEventCreate{
		ManuscriptID: m.ID,
		ActorID:      actorID,
		Action:       action,
		FromStatus:   from,
		ToStatus:     to,
		Note:         strings.TrimSpace(note),
		CreatedAt:    at,
	})
}

// requireEditor fails with NotFound unless actorID holds an editorial capability.
func (s *Service) requireEditor(ctx context.Context, actorID uint64) error {
	for _, capability := range domain.EditorialCapabilities() {
		ok, err := s.directory.HasCapability(ctx, actorID, capability)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return domain.NotFoundf("editor %d", actorID)
}

func (s *Service) requireUser(ctx context.Context, userID uint64, role string) (ports.UserProfile, error) {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return ports.UserProfile{}, domain.NotFoundf("%s %d", role, userID)
		}
		return ports.UserProfile{}, err
	}
	return user, nil
}

// displayName resolves a user's name for payloads, falling back to a neutral label.
func (s *Service) displayName(ctx context.Context, userID uint64) string {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil || strings.TrimSpace(user.Name) == "" {
		return fmt.Sprintf("user %d", userID)
	}
	return user.Name
}

func (s *Service) checkFile(ctx context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return domain.Invalid("file_ref", "manuscript file is required")
	}
	if s.files == nil {
		return nil
	}
	ok, err := s.files.Exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Invalid("file_ref", fmt.Sprintf("manuscript file %q not found", ref))
	}
	return nil
}

func (s *Service) manuscriptURL(m domain.Manuscript) string {
	return s.publicURL + "/manuscripts/" + m.TrackingCode
}

func (s *Service) reviewURL(a domain.Assignment) string {
	return fmt.Sprintf("%s/reviews/%d", s.publicURL, a.ID)
}

func (s *Service) articleURL(m domain.Manuscript) string {
	if m.Publication != nil && m.Publication.DOI != "" {
		return "https://doi.org/" + m.Publication.DOI
	}
	return s.publicURL + "/articles/" + m.TrackingCode
}

func (s *Service) basePayload(m domain.Manuscript, recipientName string) map[string]string {
	return map[string]string{
		"title":          m.Title,
		"tracking_code":  m.TrackingCode,
		"recipient_name": recipientName,
	}
}

func (s *Service) logger(ctx context.Context, operation string, attrs ...slog.Attr) context.Context {
	base := []slog.Attr{
		slog.String("component", "usecase.editorial"),
		slog.String("operation", operation),
	}
	return logging.WithAttrs(ctx, append(base, attrs...)...)
}

func assignmentEvent(a domain.Assignment, actorID uint64, action string, to domain.AssignmentStatus, at time.Time) ports.ManuscriptEventCreate {
	return ports.ManuscriptEventCreate{
		ManuscriptID: a.ManuscriptID,
		ActorID:      actorID,
		Action:       action,
		FromStatus:   string(a.Status),
		ToStatus:     string(to),
		Note:         fmt.Sprintf("assignment %d", a.ID),
		CreatedAt:    at,
	}
}
