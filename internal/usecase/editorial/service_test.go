package editorial

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/infrastructure/cache"
	"journalflow/internal/infrastructure/persistence/schema"
	"journalflow/internal/infrastructure/persistence/sqlite/repository"
	"journalflow/internal/infrastructure/persistence/sqlite/uow"
	"journalflow/internal/ports"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	fail bool
	// hold, when set, parks every Dispatch until it is closed.
	hold    chan struct{}
	intents []domain.Intent
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, intent domain.Intent) error {
	if d.hold != nil {
		select {
		case <-d.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("transport down")
	}
	d.intents = append(d.intents, intent)
	return nil
}

func (d *recordingDispatcher) sent() []domain.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Intent, len(d.intents))
	copy(out, d.intents)
	return out
}

// flakyCache fails writes on demand and otherwise delegates to the real cache.
type flakyCache struct {
	ports.Cache

	mu       sync.Mutex
	failSets bool
}

func (c *flakyCache) setFailing(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSets = fail
}

func (c *flakyCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	fail := c.failSets
	c.mu.Unlock()
	if fail {
		return errors.New("cache unavailable")
	}
	return c.Cache.Set(ctx, key, value, ttl)
}

type fakeFiles struct {
	missing map[string]bool
}

func (f fakeFiles) Exists(_ context.Context, ref string) (bool, error) {
	return !f.missing[ref], nil
}

type countingMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	dispatches  map[string]int
}

func (m *countingMetrics) ObserveTransition(operation string, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[operation+"/"+result]++
}

func (m *countingMetrics) ObserveDispatch(template string, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches[template+"/"+result]++
}

type fixture struct {
	svc        *Service
	outbox     *repository.NotificationOutbox
	repo       *repository.EditorialRepository
	dispatcher *recordingDispatcher
	metrics    *countingMetrics
	cache      *flakyCache
	now        time.Time

	author    uint64
	editor    uint64
	editor2   uint64
	manager   uint64
	reviewer  uint64
	reviewer2 uint64
	issueID   uint64
	archived  uint64
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "editorial.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := schema.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		outbox:     repository.NewNotificationOutbox(db),
		repo:       repository.NewEditorialRepository(db),
		dispatcher: &recordingDispatcher{},
		metrics:    &countingMetrics{transitions: map[string]int{}, dispatches: map[string]int{}},
		cache:      &flakyCache{Cache: cache.NewKVCache(db)},
		now:        time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	directory := repository.NewDirectoryRepository(db)
	issues := repository.NewIssueRepository(db)

	f.svc = NewService(Deps{
		Repo:       f.repo,
		Issues:     issues,
		Outbox:     f.outbox,
		Directory:  directory,
		Files:      fakeFiles{missing: map[string]bool{"uploads/missing.pdf": true}},
		UnitOfWork: uow.NewUnitOfWork(db),
		Cache:      f.cache,
		Dispatcher: f.dispatcher,
		Metrics:    f.metrics,
	}, Options{
		PublicURL:       "https://journal.example.org/",
		TrackingPrefix:  "JRNL",
		PreviewRunes:    40,
		Now:             func() time.Time { return f.now },
		DispatchWorkers: 64,
	})
	t.Cleanup(func() {
		_ = f.svc.Drain(context.Background())
	})

	ctx := context.Background()
	mustUser := func(name, email string, caps ...string) uint64 {
		t.Helper()
		u, err := f.svc.RegisterUser(ctx, RegisterUserInput{Name: name, Email: email, Capabilities: caps})
		if err != nil {
			t.Fatalf("RegisterUser(%s) error = %v", name, err)
		}
		return u.UserID
	}
	f.author = mustUser("Ada Author", "ada@example.org", "author")
	f.editor = mustUser("Eve Editor", "eve@example.org", "editor")
	f.editor2 = mustUser("Ed Second", "ed@example.org", "editor")
	f.manager = mustUser("Max Manager", "max@example.org", "manager")
	f.reviewer = mustUser("Rita Reviewer", "rita@example.org", "reviewer")
	f.reviewer2 = mustUser("Rob Reviewer", "rob@example.org", "reviewer")

	v, err := f.svc.CreateVolume(ctx, CreateVolumeInput{ActorID: f.manager, Number: 12, Year: 2026})
	if err != nil {
		t.Fatalf("CreateVolume() error = %v", err)
	}
	issue, err := f.svc.CreateIssue(ctx, CreateIssueInput{ActorID: f.manager, VolumeID: v.ID, Number: 3, Year: 2026, Month: 6})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	f.issueID = issue.ID
	old, err := f.svc.CreateIssue(ctx, CreateIssueInput{ActorID: f.manager, VolumeID: v.ID, Number: 1, Year: 2026, Month: 1})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}
	if _, err := f.svc.SetIssueStatus(ctx, SetIssueStatusInput{ActorID: f.manager, IssueID: old.ID, Status: "archived"}); err != nil {
		t.Fatalf("SetIssueStatus() error = %v", err)
	}
	f.archived = old.ID
	return f
}

func (f *fixture) submission() domain.Submission {
	return domain.Submission{
		Title:    "X",
		Abstract: "We study the structure of sparse graphs and prove several bounds on their chromatic number.",
		Keywords: []string{"graphs"},
		Category: "mathematics",
		FileRef:  "uploads/x.pdf",
		Authors: []domain.AuthorRecord{
			{Name: "Ada Author", Email: "ada@example.org", IsPrimary: true},
		},
	}
}

func (f *fixture) submit(t *testing.T) domain.Manuscript {
	t.Helper()
	m, err := f.svc.Submit(context.Background(), SubmitInput{ActorID: f.author, Submission: f.submission()})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return m
}

// reviewing drives a fresh manuscript to reviewing with f.editor handling it.
func (f *fixture) reviewing(t *testing.T) domain.Manuscript {
	t.Helper()
	ctx := context.Background()
	m := f.submit(t)
	if _, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "proceed"}); err != nil {
		t.Fatalf("Screen(proceed) error = %v", err)
	}
	m, err := f.svc.AssignHandlingEditor(ctx, AssignEditorInput{ManuscriptID: m.ID, ActorID: f.manager, EditorID: f.editor})
	if err != nil {
		t.Fatalf("AssignHandlingEditor() error = %v", err)
	}
	return m
}

func (f *fixture) completedReview(t *testing.T, m domain.Manuscript, reviewerID uint64, rec string) domain.Assignment {
	t.Helper()
	ctx := context.Background()
	a, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: reviewerID})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if _, err := f.svc.Respond(ctx, RespondInput{AssignmentID: a.ID, ActorID: reviewerID, Decision: "accept"}); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if _, err := f.svc.SubmitReview(ctx, SubmitReviewInput{
		AssignmentID: a.ID,
		ActorID:      reviewerID,
		Review: domain.ReviewSubmission{
			Scores:           domain.Scores{Relevance: 4, Novelty: 5, Methodology: 4},
			CommentForAuthor: "ok",
			Recommendation:   rec,
		},
	}); err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}
	return a
}

// drain waits for the background dispatches started so far.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.svc.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
}

func intentsFor(t *testing.T, f *fixture, manuscriptID uint64, key domain.TemplateKey) []ports.PendingIntent {
	t.Helper()
	f.drain(t)
	all, err := f.outbox.ListIntents(context.Background(), manuscriptID)
	if err != nil {
		t.Fatalf("ListIntents() error = %v", err)
	}
	var out []ports.PendingIntent
	for _, intent := range all {
		if intent.TemplateKey == key {
			out = append(out, intent)
		}
	}
	return out
}

func TestSubmitEmitsAcknowledgementAndEditorNotices(t *testing.T) {
	f := setupFixture(t)
	m := f.submit(t)

	if m.Status != domain.StatusSubmitted {
		t.Fatalf("Submit() status = %s", m.Status)
	}
	if !domain.ValidTrackingCode(m.TrackingCode) {
		t.Fatalf("Submit() tracking code = %q", m.TrackingCode)
	}

	ack := intentsFor(t, f, m.ID, domain.TemplateSubmissionAck)
	if len(ack) != 1 || ack[0].RecipientUserID != f.author {
		t.Fatalf("submission-ack intents = %+v", ack)
	}
	if ack[0].Payload["action_url"] != "https://journal.example.org/manuscripts/"+m.TrackingCode {
		t.Fatalf("submission-ack action_url = %q", ack[0].Payload["action_url"])
	}

	notices := intentsFor(t, f, m.ID, domain.TemplateNewSubmission)
	recipients := map[uint64]bool{}
	for _, n := range notices {
		recipients[n.RecipientUserID] = true
		if n.Status != domain.IntentDispatched {
			t.Fatalf("new-submission intent status = %s", n.Status)
		}
	}
	if len(notices) != 3 || !recipients[f.editor] || !recipients[f.editor2] || !recipients[f.manager] {
		t.Fatalf("new-submission recipients = %v", recipients)
	}
	if got := len(f.dispatcher.sent()); got != 4 {
		t.Fatalf("dispatched = %d, want 4", got)
	}

	status, err := f.svc.CurrentStatus(context.Background(), m.TrackingCode)
	if err != nil || status != domain.StatusSubmitted {
		t.Fatalf("CurrentStatus() = %s, %v", status, err)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.Submission)
		field  string
	}{
		{name: "missing title", mutate: func(s *domain.Submission) { s.Title = " " }, field: "title"},
		{name: "no primary", mutate: func(s *domain.Submission) { s.Authors[0].IsPrimary = false }, field: "authors"},
		{name: "missing file", mutate: func(s *domain.Submission) { s.FileRef = "uploads/missing.pdf" }, field: "file_ref"},
		{name: "bad email", mutate: func(s *domain.Submission) { s.Authors[0].Email = "nope" }, field: "authors.0.email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := f.submission()
			tt.mutate(&sub)
			_, err := f.svc.Submit(ctx, SubmitInput{ActorID: f.author, Submission: sub})
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Submit() error = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Fatalf("Submit() fields = %v, want %s", verr.Fields, tt.field)
			}
		})
	}

	items, err := f.svc.ListManuscripts(ctx, ports.ManuscriptFilter{})
	if err != nil || len(items) != 0 {
		t.Fatalf("ListManuscripts() = %d, %v", len(items), err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	f := setupFixture(t)

	_, err := f.svc.RegisterUser(context.Background(), RegisterUserInput{Name: " ", Email: "not-an-email"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("RegisterUser() error = %v, want ValidationError", err)
	}
	for _, field := range []string{"name", "email"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Fatalf("RegisterUser() fields = %v, want %s", verr.Fields, field)
		}
	}
}

func TestScreenRejectArchivesAndIsTerminal(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	if _, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "reject"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Screen(reject without notes) error = %v", err)
	}

	got, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "reject", Notes: "Out of scope"})
	if err != nil {
		t.Fatalf("Screen(reject) error = %v", err)
	}
	if got.Status != domain.StatusArchived {
		t.Fatalf("Screen(reject) status = %s", got.Status)
	}
	rejects := intentsFor(t, f, m.ID, domain.TemplateScreeningReject)
	if len(rejects) != 1 || rejects[0].RecipientUserID != f.author || rejects[0].Payload["notes"] != "Out of scope" {
		t.Fatalf("screening-reject intents = %+v", rejects)
	}

	_, err = f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "reject", Notes: "again"})
	var terr *domain.TransitionError
	if !errors.As(err, &terr) || terr.From != string(domain.StatusArchived) {
		t.Fatalf("Screen(archived) error = %v", err)
	}
}

func TestScreenRevisionAndResubmit(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	got, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "revision", Notes: "Shorten the abstract"})
	if err != nil {
		t.Fatalf("Screen(revision) error = %v", err)
	}
	if got.Status != domain.StatusDraft {
		t.Fatalf("Screen(revision) status = %s", got.Status)
	}
	revise := intentsFor(t, f, m.ID, domain.TemplateScreeningRevise)
	if len(revise) != 1 || revise[0].Payload["action_url"] == "" {
		t.Fatalf("screening-revise intents = %+v", revise)
	}

	if _, err := f.svc.Resubmit(ctx, ResubmitInput{ManuscriptID: m.ID, ActorID: f.editor}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Resubmit(by non-submitter) error = %v", err)
	}
	if _, err := f.svc.Resubmit(ctx, ResubmitInput{ManuscriptID: m.ID, ActorID: f.author, FileRef: "uploads/missing.pdf"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Resubmit(missing file) error = %v", err)
	}

	again, err := f.svc.Resubmit(ctx, ResubmitInput{ManuscriptID: m.ID, ActorID: f.author, FileRef: "uploads/x-v2.pdf"})
	if err != nil {
		t.Fatalf("Resubmit() error = %v", err)
	}
	if again.Status != domain.StatusSubmitted || again.FileRef != "uploads/x-v2.pdf" {
		t.Fatalf("Resubmit() = %+v", again)
	}
	acks := intentsFor(t, f, m.ID, domain.TemplateSubmissionAck)
	if len(acks) != 2 || acks[1].Payload["revision"] != "true" {
		t.Fatalf("submission-ack after resubmit = %+v", acks)
	}
}

func TestScreenProceedIsIdempotent(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	first, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "proceed"})
	if err != nil {
		t.Fatalf("Screen(proceed) error = %v", err)
	}
	second, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "proceed"})
	if err != nil {
		t.Fatalf("Screen(proceed again) error = %v", err)
	}
	if first.Status != domain.StatusScreening || second.Version != first.Version {
		t.Fatalf("Screen(proceed again) = status %s version %d, want version %d", second.Status, second.Version, first.Version)
	}

	events, err := f.repo.ListEvents(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want submit + one screen", len(events))
	}
}

func TestScreenRequiresEditorCapability(t *testing.T) {
	f := setupFixture(t)
	m := f.submit(t)

	_, err := f.svc.Screen(context.Background(), ScreenInput{ManuscriptID: m.ID, ActorID: f.reviewer, Decision: "proceed"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Screen(by reviewer) error = %v", err)
	}
	if f.metrics.transitions["screen/not_found"] != 1 {
		t.Fatalf("metrics = %v", f.metrics.transitions)
	}
}

func TestAssignHandlingEditor(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	if _, err := f.svc.AssignHandlingEditor(ctx, AssignEditorInput{ManuscriptID: m.ID, ActorID: f.manager, EditorID: f.editor}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("AssignHandlingEditor(submitted) error = %v", err)
	}
	if _, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "proceed"}); err != nil {
		t.Fatalf("Screen(proceed) error = %v", err)
	}
	if _, err := f.svc.AssignHandlingEditor(ctx, AssignEditorInput{ManuscriptID: m.ID, ActorID: f.manager, EditorID: f.reviewer}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("AssignHandlingEditor(non-editor) error = %v", err)
	}

	got, err := f.svc.AssignHandlingEditor(ctx, AssignEditorInput{ManuscriptID: m.ID, ActorID: f.manager, EditorID: f.editor})
	if err != nil {
		t.Fatalf("AssignHandlingEditor() error = %v", err)
	}
	if got.Status != domain.StatusReviewing || got.HandlingEditorID == nil || *got.HandlingEditorID != f.editor {
		t.Fatalf("AssignHandlingEditor() = %+v", got)
	}
	if n := len(intentsFor(t, f, m.ID, domain.TemplateEditorAssigned)); n != 1 {
		t.Fatalf("handling-editor-assigned intents = %d", n)
	}
}

func TestReviewRoundTrip(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.reviewing(t)

	a, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.reviewer})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if a.Status != domain.AssignmentPending || !a.DueDate.Equal(f.now.Add(14*24*time.Hour)) {
		t.Fatalf("Invite() = %+v", a)
	}
	invites := intentsFor(t, f, m.ID, domain.TemplateReviewInvitation)
	if len(invites) != 1 || invites[0].Payload["due_date"] != "2026-03-16" {
		t.Fatalf("review-invitation intents = %+v", invites)
	}
	if preview := invites[0].Payload["abstract_preview"]; len([]rune(preview)) > 41 {
		t.Fatalf("abstract preview too long: %q", preview)
	}

	if _, err := f.svc.SubmitReview(ctx, SubmitReviewInput{AssignmentID: a.ID, ActorID: f.reviewer}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("SubmitReview(pending) error = %v", err)
	}
	if _, err := f.svc.Respond(ctx, RespondInput{AssignmentID: a.ID, ActorID: f.reviewer2, Decision: "accept"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Respond(by other reviewer) error = %v", err)
	}

	accepted, err := f.svc.Respond(ctx, RespondInput{AssignmentID: a.ID, ActorID: f.reviewer, Decision: "accept"})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if accepted.Status != domain.AssignmentAccepted {
		t.Fatalf("Respond() status = %s", accepted.Status)
	}
	if _, err := f.svc.Respond(ctx, RespondInput{AssignmentID: a.ID, ActorID: f.reviewer, Decision: "decline"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Respond(accepted) error = %v", err)
	}

	bad := domain.ReviewSubmission{Scores: domain.Scores{Relevance: 6, Novelty: 5, Methodology: 4}, CommentForAuthor: "ok", Recommendation: "accept"}
	if _, err := f.svc.SubmitReview(ctx, SubmitReviewInput{AssignmentID: a.ID, ActorID: f.reviewer, Review: bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("SubmitReview(bad score) error = %v", err)
	}

	good := domain.ReviewSubmission{Scores: domain.Scores{Relevance: 4, Novelty: 5, Methodology: 4}, CommentForAuthor: "ok", Recommendation: "accept"}
	review, err := f.svc.SubmitReview(ctx, SubmitReviewInput{AssignmentID: a.ID, ActorID: f.reviewer, Review: good})
	if err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}
	if review.Recommendation != domain.RecommendAccept {
		t.Fatalf("SubmitReview() = %+v", review)
	}

	completed := intentsFor(t, f, m.ID, domain.TemplateReviewCompleted)
	if len(completed) != 1 || completed[0].RecipientUserID != f.editor {
		t.Fatalf("review-completed intents = %+v", completed)
	}

	again := domain.ReviewSubmission{Scores: domain.Scores{Relevance: 1, Novelty: 1, Methodology: 1}, CommentForAuthor: "changed", Recommendation: "reject"}
	if _, err := f.svc.SubmitReview(ctx, SubmitReviewInput{AssignmentID: a.ID, ActorID: f.reviewer, Review: again}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("SubmitReview(second) error = %v", err)
	}

	detail, err := f.svc.GetManuscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManuscript() error = %v", err)
	}
	if len(detail.Reviews) != 1 || detail.Reviews[0].Scores != good.Scores || detail.Reviews[0].CommentForAuthor != "ok" {
		t.Fatalf("stored reviews = %+v", detail.Reviews)
	}
	if len(detail.Assignments) != 1 || detail.Assignments[0].Status != domain.AssignmentCompleted {
		t.Fatalf("stored assignments = %+v", detail.Assignments)
	}
	if !detail.Tally.Complete() || detail.Tally.Recommendations[domain.RecommendAccept] != 1 {
		t.Fatalf("tally = %+v", detail.Tally)
	}
}

func TestInviteRules(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	early := f.submit(t)
	if _, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: early.ID, ActorID: f.editor, ReviewerID: f.reviewer}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Invite(submitted) error = %v", err)
	}

	m := f.reviewing(t)
	first, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.reviewer})
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if _, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.reviewer}); !errors.Is(err, domain.ErrDuplicateAssignment) {
		t.Fatalf("Invite(duplicate) error = %v", err)
	}
	if _, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.author}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Invite(non-reviewer) error = %v", err)
	}
	if _, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.reviewer2, DueDate: f.now.Add(-time.Hour)}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Invite(past due) error = %v", err)
	}

	if _, err := f.svc.Respond(ctx, RespondInput{AssignmentID: first.ID, ActorID: f.reviewer, Decision: "decline"}); err != nil {
		t.Fatalf("Respond(decline) error = %v", err)
	}
	if _, err := f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.reviewer}); err != nil {
		t.Fatalf("Invite(after decline) error = %v", err)
	}

	pending, err := f.svc.ListReviewerAssignments(ctx, f.reviewer, domain.AssignmentPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListReviewerAssignments() = %d, %v", len(pending), err)
	}
}

func TestFinalDecisionAndPublish(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.reviewing(t)

	if _, err := f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "accept"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("RecordFinalDecision(accept without reviews) error = %v", err)
	}
	if _, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.issueID}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Publish(reviewing) error = %v", err)
	}

	f.completedReview(t, m, f.reviewer, "minor_revision")
	decided, err := f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "accept", Note: "Congratulations"})
	if err != nil {
		t.Fatalf("RecordFinalDecision() error = %v", err)
	}
	if decided.Status != domain.StatusFinalDecision {
		t.Fatalf("RecordFinalDecision() status = %s", decided.Status)
	}
	notice := intentsFor(t, f, m.ID, domain.TemplateFinalDecision)
	if len(notice) != 1 || notice[0].Payload["recommendations"] != "minor_revision=1" {
		t.Fatalf("final-decision intents = %+v", notice)
	}

	if _, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: 999}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Publish(missing issue) error = %v", err)
	}
	if _, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.archived}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Publish(archived issue) error = %v", err)
	}
	if _, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.issueID, PageStart: "12", PageEnd: "1"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Publish(bad pages) error = %v", err)
	}

	published, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.issueID, PageStart: "1", PageEnd: "12", DOI: "10.1/x"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != domain.StatusPublished || published.Publication == nil || published.Publication.IssueID != f.issueID {
		t.Fatalf("Publish() = %+v", published)
	}
	notices := intentsFor(t, f, m.ID, domain.TemplatePublished)
	if len(notices) != 1 || notices[0].Payload["action_url"] != "https://doi.org/10.1/x" || notices[0].Payload["issue"] != "Vol. 12 No. 3 (June 2026)" {
		t.Fatalf("published intents = %+v", notices)
	}

	same, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.issueID, PageStart: "1", PageEnd: "12", DOI: "10.1/x"})
	if err != nil {
		t.Fatalf("Publish(identical) error = %v", err)
	}
	if same.Version != published.Version {
		t.Fatalf("Publish(identical) changed version %d -> %d", published.Version, same.Version)
	}

	f.now = f.now.Add(time.Hour)
	corrected, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.issueID, PageStart: "1", PageEnd: "14", DOI: "10.1/x"})
	if err != nil {
		t.Fatalf("Publish(correction) error = %v", err)
	}
	if corrected.Status != domain.StatusPublished || corrected.Publication.PageEnd != "14" {
		t.Fatalf("Publish(correction) = %+v", corrected.Publication)
	}
	if !corrected.Publication.PublishedAt.Equal(published.Publication.PublishedAt) {
		t.Fatalf("Publish(correction) moved published_at")
	}
	if n := len(intentsFor(t, f, m.ID, domain.TemplatePublished)); n != 1 {
		t.Fatalf("published intents after correction = %d", n)
	}
}

func TestPublishRebindsToAnotherIssue(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.reviewing(t)
	f.completedReview(t, m, f.reviewer, "accept")
	if _, err := f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "accept"}); err != nil {
		t.Fatalf("RecordFinalDecision() error = %v", err)
	}

	published, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: f.issueID, PageStart: "1", PageEnd: "12"})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	v, err := f.svc.CreateVolume(ctx, CreateVolumeInput{ActorID: f.manager, Number: 13, Year: 2027})
	if err != nil {
		t.Fatalf("CreateVolume() error = %v", err)
	}
	other, err := f.svc.CreateIssue(ctx, CreateIssueInput{ActorID: f.manager, VolumeID: v.ID, Number: 1, Year: 2027, Month: 2})
	if err != nil {
		t.Fatalf("CreateIssue() error = %v", err)
	}

	f.now = f.now.Add(24 * time.Hour)
	moved, err := f.svc.Publish(ctx, PublishInput{ManuscriptID: m.ID, ActorID: f.editor, IssueID: other.ID, PageStart: "5", PageEnd: "16"})
	if err != nil {
		t.Fatalf("Publish(other issue) error = %v", err)
	}
	if moved.Status != domain.StatusPublished || moved.Publication == nil || moved.Publication.IssueID != other.ID {
		t.Fatalf("Publish(other issue) = %+v", moved.Publication)
	}
	if !moved.Publication.PublishedAt.Equal(published.Publication.PublishedAt) {
		t.Fatalf("Publish(other issue) published_at = %v, want %v", moved.Publication.PublishedAt, published.Publication.PublishedAt)
	}
	if n := len(intentsFor(t, f, m.ID, domain.TemplatePublished)); n != 1 {
		t.Fatalf("published intents after rebind = %d, want 1", n)
	}

	stored, err := f.svc.GetManuscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManuscript() error = %v", err)
	}
	if stored.Manuscript.Publication == nil || stored.Manuscript.Publication.IssueID != other.ID {
		t.Fatalf("stored publication = %+v", stored.Manuscript.Publication)
	}
}

func TestFinalDecisionRejectAndRevision(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	rejected := f.reviewing(t)
	got, err := f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: rejected.ID, ActorID: f.editor, Decision: "reject"})
	if err != nil || got.Status != domain.StatusArchived {
		t.Fatalf("RecordFinalDecision(reject) = %s, %v", got.Status, err)
	}

	revised := f.reviewing(t)
	got, err = f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: revised.ID, ActorID: f.editor, Decision: "revision"})
	if err != nil || got.Status != domain.StatusDraft {
		t.Fatalf("RecordFinalDecision(revision) = %s, %v", got.Status, err)
	}

	if _, err := f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: revised.ID, ActorID: f.editor, Decision: "accept"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("RecordFinalDecision(draft) error = %v", err)
	}
}

func TestDispatchFailureDoesNotRollBack(t *testing.T) {
	f := setupFixture(t)
	f.dispatcher.fail = true

	m := f.submit(t)
	if m.Status != domain.StatusSubmitted {
		t.Fatalf("Submit() status = %s", m.Status)
	}
	f.drain(t)

	all, err := f.outbox.ListIntents(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("ListIntents() error = %v", err)
	}
	for _, intent := range all {
		if intent.Status != domain.IntentFailed || intent.Attempts != 1 {
			t.Fatalf("intent %d = %s attempts %d", intent.ID, intent.Status, intent.Attempts)
		}
	}
	if f.metrics.dispatches["submission-ack/failed"] != 1 {
		t.Fatalf("dispatch metrics = %v", f.metrics.dispatches)
	}
}

func TestSubmitDoesNotWaitForDispatch(t *testing.T) {
	f := setupFixture(t)
	hold := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(hold) }) }
	f.dispatcher.hold = hold
	t.Cleanup(release)

	type result struct {
		m   domain.Manuscript
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := f.svc.Submit(context.Background(), SubmitInput{ActorID: f.author, Submission: f.submission()})
		done <- result{m: m, err: err}
	}()

	var m domain.Manuscript
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Submit() error = %v", r.err)
		}
		m = r.m
	case <-time.After(2 * time.Second):
		release()
		t.Fatalf("Submit() blocked on the dispatcher")
	}

	all, err := f.outbox.ListIntents(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("ListIntents() error = %v", err)
	}
	for _, intent := range all {
		if intent.Status != domain.IntentPending {
			t.Fatalf("intent %d status = %s before release, want pending", intent.ID, intent.Status)
		}
	}

	release()
	f.drain(t)
	if got := len(f.dispatcher.sent()); got != 4 {
		t.Fatalf("dispatched = %d, want 4", got)
	}
	all, err = f.outbox.ListIntents(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("ListIntents() error = %v", err)
	}
	for _, intent := range all {
		if intent.Status != domain.IntentDispatched {
			t.Fatalf("intent %d status = %s after drain", intent.ID, intent.Status)
		}
	}
}

func TestStatusCacheWriteFailureEvictsEntry(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	if status, err := f.svc.CurrentStatus(ctx, m.TrackingCode); err != nil || status != domain.StatusSubmitted {
		t.Fatalf("CurrentStatus() = %s, %v", status, err)
	}

	f.cache.setFailing(true)
	if _, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "reject", Notes: "Out of scope"}); err != nil {
		t.Fatalf("Screen(reject) error = %v", err)
	}

	status, err := f.svc.CurrentStatus(ctx, m.TrackingCode)
	if err != nil || status != domain.StatusArchived {
		t.Fatalf("CurrentStatus() after failed cache write = %s, %v, want archived", status, err)
	}
	value, found, err := f.cache.Get(ctx, statusCacheKey(m.TrackingCode))
	if err != nil || !found || value != string(domain.StatusArchived) {
		t.Fatalf("cached status = %q, found=%v, err=%v", value, found, err)
	}
}

func TestStatusBackfillKeepsNewerEntry(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	if err := f.cache.Cache.Set(ctx, statusCacheKey(m.TrackingCode), string(domain.StatusScreening), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	f.svc.backfillStatus(ctx, m.TrackingCode, domain.StatusSubmitted)

	status, err := f.svc.CurrentStatus(ctx, m.TrackingCode)
	if err != nil || status != domain.StatusScreening {
		t.Fatalf("CurrentStatus() = %s, %v, want the newer cached screening", status, err)
	}
}

func TestConcurrentInviteCreatesOneAssignment(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.reviewing(t)
	before, err := f.svc.GetManuscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManuscript() error = %v", err)
	}

	errsOut := make([]error, 2)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range errsOut {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errsOut[i] = f.svc.Invite(ctx, InviteInput{ManuscriptID: m.ID, ActorID: f.editor, ReviewerID: f.reviewer})
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errsOut {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrDuplicateAssignment), errors.Is(err, domain.ErrConflictingTransition):
		default:
			t.Fatalf("Invite() unexpected error = %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, errors = %v", successes, errsOut)
	}

	after, err := f.svc.GetManuscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManuscript() error = %v", err)
	}
	if len(after.Assignments) != len(before.Assignments)+1 {
		t.Fatalf("assignments = %d, want %d", len(after.Assignments), len(before.Assignments)+1)
	}
	if after.Manuscript.Version != before.Manuscript.Version+1 {
		t.Fatalf("manuscript version = %d, want %d", after.Manuscript.Version, before.Manuscript.Version+1)
	}
}

func TestFailedTransitionLeavesStateUnchanged(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	before, err := f.svc.GetManuscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManuscript() error = %v", err)
	}
	if _, err := f.svc.RecordFinalDecision(ctx, FinalDecisionInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "reject"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("RecordFinalDecision(submitted) error = %v", err)
	}
	after, err := f.svc.GetManuscript(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManuscript() error = %v", err)
	}
	if after.Manuscript.Status != before.Manuscript.Status || after.Manuscript.Version != before.Manuscript.Version || len(after.Events) != len(before.Events) || len(after.Intents) != len(before.Intents) {
		t.Fatalf("state changed after rejected transition")
	}
}

func TestConcurrentScreenAppliesOnce(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	decisions := []ScreenInput{
		{ManuscriptID: m.ID, ActorID: f.editor, Decision: "reject", Notes: "Out of scope"},
		{ManuscriptID: m.ID, ActorID: f.editor2, Decision: "revision", Notes: "Needs work"},
	}
	errsOut := make([]error, len(decisions))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errsOut[i] = f.svc.Screen(ctx, decisions[i])
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errsOut {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflictingTransition):
		default:
			t.Fatalf("Screen() unexpected error = %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, errors = %v", successes, errsOut)
	}

	events, err := f.repo.ListEvents(ctx, m.ID)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want submit + one screen", len(events))
	}
}

func TestStaleManuscriptWriteIsConflict(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	m := f.submit(t)

	if _, err := f.svc.Screen(ctx, ScreenInput{ManuscriptID: m.ID, ActorID: f.editor, Decision: "proceed"}); err != nil {
		t.Fatalf("Screen() error = %v", err)
	}

	next := m
	next.Status = domain.StatusArchived
	_, err := f.svc.saveManuscript(ctx, m, next)
	if !errors.Is(err, domain.ErrConflictingTransition) {
		t.Fatalf("saveManuscript(stale) error = %v", err)
	}
}

func TestIssueStatusTransitions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	got, err := f.svc.SetIssueStatus(ctx, SetIssueStatusInput{ActorID: f.manager, IssueID: f.issueID, Status: "published"})
	if err != nil || got.Status != domain.IssuePublished {
		t.Fatalf("SetIssueStatus(published) = %s, %v", got.Status, err)
	}
	if _, err := f.svc.SetIssueStatus(ctx, SetIssueStatusInput{ActorID: f.manager, IssueID: f.archived, Status: "draft"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("SetIssueStatus(archived -> draft) error = %v", err)
	}
	if _, err := f.svc.SetIssueStatus(ctx, SetIssueStatusInput{ActorID: f.reviewer, IssueID: f.issueID, Status: "archived"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("SetIssueStatus(by reviewer) error = %v", err)
	}
	if _, err := f.svc.CreateIssue(ctx, CreateIssueInput{ActorID: f.manager, VolumeID: 999, Number: 1, Year: 2026, Month: 2}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("CreateIssue(missing volume) error = %v", err)
	}

	issues, err := f.svc.ListIssues(ctx, 0)
	if err != nil || len(issues) != 2 {
		t.Fatalf("ListIssues() = %d, %v", len(issues), err)
	}
}

func TestResultLabel(t *testing.T) {
	tests := map[string]error{
		"ok":                   nil,
		"validation":           domain.Invalid("x", "y"),
		"invalid_transition":   &domain.TransitionError{Entity: "manuscript"},
		"not_found":            domain.NotFoundf("manuscript %d", 1),
		"duplicate_assignment": domain.ErrDuplicateAssignment,
		"already_submitted":    domain.ErrAlreadySubmitted,
		"conflict":             &domain.ConflictError{Entity: "manuscript"},
		"error":                errors.New("disk full"),
	}
	for want, err := range tests {
		if got := ResultLabel(err); got != want {
			t.Fatalf("ResultLabel(%v) = %q, want %q", err, got, want)
		}
	}
}
