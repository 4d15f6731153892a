package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"guardianangel/config"
	"guardianangel/internal/domain"
	"guardianangel/internal/metrics"
	"guardianangel/internal/models"
	"guardianangel/internal/ratelimit"
	"guardianangel/internal/repository"
	"guardianangel/internal/testutil"
	"guardianangel/pkg/payment"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	mu       sync.Mutex
	started  []uint
	unlocked []uint
	subs     []uint
	accepted []uint
	err      error
}

func (n *fakeNotifier) ChatStarted(_ context.Context, chatID uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, chatID)
	return n.err
}

func (n *fakeNotifier) ChatUnlocked(_ context.Context, chatID uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocked = append(n.unlocked, chatID)
	return n.err
}

func (n *fakeNotifier) SubscriptionActivated(_ context.Context, lawyerID uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, lawyerID)
	return n.err
}

func (n *fakeNotifier) QuestionAccepted(_ context.Context, chatID uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, chatID)
	return n.err
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    int
	last     payment.CheckoutRequest
	createFn func(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.last = req
	g.mu.Unlock()
	if g.createFn != nil {
		return g.createFn(ctx, req)
	}
	ref := fmt.Sprintf("cs_test_%d", n)
	return &payment.CheckoutSession{CorrelationID: ref, RedirectURL: "https://checkout.test/" + ref}, nil
}

func (g *fakeGateway) ParseEvent([]byte, string) (*payment.Event, error) {
	return nil, errors.New("not used")
}

func (g *fakeGateway) SignatureHeader() string { return "X-Test-Signature" }

type testEnv struct {
	db        *gorm.DB
	cfg       *config.Config
	clock     time.Time
	cooldown  *ratelimit.Cooldown
	notifier  *fakeNotifier
	gateway   *fakeGateway
	media     *fakeMedia
	chats     *ChatService
	questions *QuestionService
	payments  *PaymentService
	rec       *Reconciler
	ledger    *repository.PaymentRepository
}

func newTestEnv(t *testing.T, mode config.PaymentMode) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Payment: config.PaymentConfig{
			Mode:              mode,
			Provider:          "stripe",
			Currency:          "cad",
			PublicBaseURL:     "https://app.test",
			CheckoutTimeout:   time.Second,
			SubscriptionPrice: decimal.RequireFromString("15.00"),
		},
		Pricing: config.PricingConfig{
			PlatformFee: decimal.RequireFromString("2.00"),
			TaxRate:     decimal.RequireFromString("0.14975"),
		},
	}
	env := &testEnv{
		db:       db,
		cfg:      cfg,
		clock:    time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		notifier: &fakeNotifier{},
		gateway:  &fakeGateway{},
		media:    &fakeMedia{},
		ledger:   repository.NewPaymentRepository(db),
	}
	log := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	lawyers := repository.NewLawyerRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	audit := repository.NewAuditLogRepository(db)
	env.cooldown = ratelimit.NewCooldown(ratelimit.NewMemoryStore(), 3*time.Minute, func() time.Time { return env.clock })
	env.chats = NewChatService(repository.NewChatRepository(db), lawyers, questionRepo, env.cooldown, env.notifier, env.media, m, log)
	env.questions = NewQuestionService(questionRepo)
	env.payments = NewPaymentService(cfg, env.chats, lawyers, env.ledger, env.gateway, env.notifier, audit, m, log)
	env.rec = NewReconciler(env.ledger, env.notifier, audit, m, log)
	return env
}

func (e *testEnv) completed(ref string) *payment.Event {
	return &payment.Event{ID: "evt_" + ref, Type: payment.EventCheckoutCompleted, CorrelationID: ref, Paid: true,
		Metadata: map[string]string{"payment_type": domain.PaymentTypeChat}}
}

func TestCanAccessChat(t *testing.T) {
	tests := []struct {
		requires, paid, want bool
	}{
		{requires: true, paid: false, want: false},
		{requires: true, paid: true, want: true},
		{requires: false, paid: false, want: true},
		{requires: false, paid: true, want: true},
	}
	for _, tt := range tests {
		got := CanAccessChat(&models.ChatSession{RequiresPayment: tt.requires, IsPaid: tt.paid})
		if got != tt.want {
			t.Errorf("requires=%v paid=%v: got %v, want %v", tt.requires, tt.paid, got, tt.want)
		}
	}
}

func TestStartChatIdempotent(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "cleo")
	_, lawyer := testutil.CreateLawyer(t, env.db, "lars", "10.00")
	p := testutil.CustomerPrincipal(customer)

	first, created, err := env.chats.StartChat(context.Background(), p, lawyer.ID)
	if err != nil || !created {
		t.Fatalf("first start: created=%v err=%v", created, err)
	}
	// Within the cool-down window the existing chat is still returned.
	second, created, err := env.chats.StartChat(context.Background(), p, lawyer.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if created || second.ID != first.ID {
		t.Errorf("second start: created=%v id=%d, want existing %d", created, second.ID, first.ID)
	}
	if len(env.notifier.started) != 1 {
		t.Errorf("chat started notifications = %d, want 1", len(env.notifier.started))
	}
}

func TestStartChatRateLimited(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "rita")
	_, lawyer := testutil.CreateLawyer(t, env.db, "rob", "10.00")
	p := testutil.CustomerPrincipal(customer)

	// A concurrent request already holds the cool-down for this pair.
	if ok, _ := env.cooldown.Allow(context.Background(), customer.ID, lawyer.ID); !ok {
		t.Fatal("could not reserve cool-down")
	}
	_, _, err := env.chats.StartChat(context.Background(), p, lawyer.ID)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	var n int64
	env.db.Model(&models.ChatSession{}).Count(&n)
	if n != 0 {
		t.Errorf("chats = %d, want 0", n)
	}

	env.clock = env.clock.Add(3 * time.Minute)
	if _, created, err := env.chats.StartChat(context.Background(), p, lawyer.ID); err != nil || !created {
		t.Fatalf("after window: created=%v err=%v", created, err)
	}
}

// hookStore runs onReserve after each reservation attempt.
type hookStore struct {
	*ratelimit.MemoryStore
	onReserve func()
}

func (s *hookStore) Reserve(ctx context.Context, key string, ttl time.Duration, now time.Time) (bool, error) {
	ok, err := s.MemoryStore.Reserve(ctx, key, ttl, now)
	if s.onReserve != nil {
		s.onReserve()
	}
	return ok, err
}

func newHookedChatService(t *testing.T, env *testEnv, store *hookStore) *ChatService {
	t.Helper()
	cd := ratelimit.NewCooldown(store, 3*time.Minute, func() time.Time { return env.clock })
	return NewChatService(repository.NewChatRepository(env.db), repository.NewLawyerRepository(env.db),
		repository.NewQuestionRepository(env.db), cd, env.notifier, nil, metrics.New(prometheus.NewRegistry()), zap.NewNop())
}

func TestStartChatLosesCreationRace(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "gwen")
	_, lawyer := testutil.CreateLawyer(t, env.db, "gus", "10.00")
	ctx := context.Background()

	// The winning request holds the window and inserts the chat while this one waits.
	store := &hookStore{MemoryStore: ratelimit.NewMemoryStore()}
	if ok, _ := store.Reserve(ctx, ratelimit.Key(customer.ID, lawyer.ID), 3*time.Minute, env.clock); !ok {
		t.Fatal("could not reserve cool-down")
	}
	var winner *models.ChatSession
	store.onReserve = func() {
		if winner == nil {
			winner, _, _ = repository.NewChatRepository(env.db).GetOrCreate(customer.ID, lawyer.ID, true, nil)
		}
	}
	svc := newHookedChatService(t, env, store)

	chat, created, err := svc.StartChat(ctx, testutil.CustomerPrincipal(customer), lawyer.ID)
	if err != nil {
		t.Fatalf("StartChat: %v, want the winner's chat", err)
	}
	if created || winner == nil || chat.ID != winner.ID {
		t.Errorf("StartChat = (id %d, created %v), want existing chat", chat.ID, created)
	}
}

func TestStartChatReleasesCooldownOnFailure(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "hana")
	_, lawyer := testutil.CreateLawyer(t, env.db, "hugo", "10.00")
	ctx := context.Background()

	store := &hookStore{MemoryStore: ratelimit.NewMemoryStore()}
	store.onReserve = func() {
		if err := env.db.Exec("DROP TABLE chat_sessions").Error; err != nil {
			t.Errorf("drop table: %v", err)
		}
	}
	svc := newHookedChatService(t, env, store)

	if _, _, err := svc.StartChat(ctx, testutil.CustomerPrincipal(customer), lawyer.ID); err == nil {
		t.Fatal("expected storage error")
	}
	// The failed attempt must not hold the pair for the whole window.
	ok, err := store.MemoryStore.Reserve(ctx, ratelimit.Key(customer.ID, lawyer.ID), 3*time.Minute, env.clock)
	if err != nil || !ok {
		t.Errorf("cool-down still held after failed create: ok=%v err=%v", ok, err)
	}
}

func TestStartChatPreconditions(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "pam")
	lawyerUser, lawyer := testutil.CreateLawyer(t, env.db, "pete", "10.00")

	_, _, err := env.chats.StartChat(context.Background(), testutil.LawyerPrincipal(lawyerUser, lawyer), lawyer.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("lawyer starting chat: err = %v, want ErrForbidden", err)
	}
	_, _, err = env.chats.StartChat(context.Background(), testutil.CustomerPrincipal(customer), 9999)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing lawyer: err = %v, want ErrNotFound", err)
	}
	env.db.Model(lawyer).Update("subscription_active", false)
	_, _, err = env.chats.StartChat(context.Background(), testutil.CustomerPrincipal(customer), lawyer.ID)
	if !errors.Is(err, domain.ErrLawyerUnavailable) {
		t.Errorf("unsubscribed lawyer: err = %v, want ErrLawyerUnavailable", err)
	}
}

func TestChatPaymentScenario(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "nora")
	lawyerUser, lawyer := testutil.CreateLawyer(t, env.db, "leo", "10.00")
	cp := testutil.CustomerPrincipal(customer)
	ctx := context.Background()

	chat, created, err := env.chats.StartChat(ctx, cp, lawyer.ID)
	if err != nil || !created || chat.IsPaid {
		t.Fatalf("start chat: created=%v paid=%v err=%v", created, chat.IsPaid, err)
	}
	if _, err := env.chats.OpenChat(cp, chat.ID); !errors.Is(err, domain.ErrPaymentRequired) {
		t.Fatalf("locked chat: err = %v, want ErrPaymentRequired", err)
	}

	co, err := env.payments.InitiateChatPayment(ctx, cp, chat.ID)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if co.Paid || co.RedirectURL != "https://checkout.test/cs_test_1" {
		t.Fatalf("unexpected checkout: %+v", co)
	}
	if !co.Quote.Subtotal.Equal(decimal.RequireFromString("12.00")) ||
		!co.Quote.TaxAmount.Equal(decimal.RequireFromString("1.80")) ||
		!co.Quote.Total.Equal(decimal.RequireFromString("13.80")) {
		t.Errorf("quote = %+v", co.Quote)
	}
	if env.gateway.last.AmountCents != 1380 || env.gateway.last.Metadata["chat_id"] == "" {
		t.Errorf("gateway request = %+v", env.gateway.last)
	}

	pay, err := env.ledger.GetByChatID(chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pay.Success || !pay.Amount.Equal(decimal.RequireFromString("13.80")) {
		t.Errorf("payment = %+v", pay)
	}

	st, err := env.payments.ChatPaymentStatus(cp, chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != domain.PaymentStatusPending || st.IsPaid {
		t.Errorf("status before webhook = %+v", st)
	}

	outcome, err := env.rec.HandleEvent(ctx, env.completed(*pay.ProviderRef))
	if err != nil || outcome != OutcomeSettled {
		t.Fatalf("reconcile: outcome=%s err=%v", outcome, err)
	}
	if _, err := env.chats.OpenChat(cp, chat.ID); err != nil {
		t.Errorf("customer after payment: %v", err)
	}
	if _, err := env.chats.OpenChat(testutil.LawyerPrincipal(lawyerUser, lawyer), chat.ID); err != nil {
		t.Errorf("lawyer after payment: %v", err)
	}
	if len(env.notifier.unlocked) != 1 {
		t.Errorf("unlock notifications = %d, want 1", len(env.notifier.unlocked))
	}

	co, err = env.payments.InitiateChatPayment(ctx, cp, chat.ID)
	if err != nil || !co.Paid {
		t.Errorf("initiate after payment: %+v err=%v", co, err)
	}
	if env.gateway.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", env.gateway.calls)
	}
}

func TestRepeatedInitiationKeepsOnePayment(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "ola")
	_, lawyer := testutil.CreateLawyer(t, env.db, "liam", "25.00")
	cp := testutil.CustomerPrincipal(customer)
	ctx := context.Background()

	chat, _, err := env.chats.StartChat(ctx, cp, lawyer.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := env.payments.InitiateChatPayment(ctx, cp, chat.ID); err != nil {
			t.Fatalf("initiate %d: %v", i, err)
		}
	}
	n, err := env.ledger.CountByChatID(chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("payments = %d, want 1", n)
	}
	pay, _ := env.ledger.GetByChatID(chat.ID)
	if *pay.ProviderRef != "cs_test_4" || !pay.Amount.Equal(decimal.RequireFromString("31.04")) {
		t.Errorf("payment = ref %s amount %s", *pay.ProviderRef, pay.Amount)
	}
}

func TestWebhookReplayNotifiesOnce(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "una")
	_, lawyer := testutil.CreateLawyer(t, env.db, "lia", "10.00")
	cp := testutil.CustomerPrincipal(customer)
	ctx := context.Background()

	chat, _, _ := env.chats.StartChat(ctx, cp, lawyer.ID)
	if _, err := env.payments.InitiateChatPayment(ctx, cp, chat.ID); err != nil {
		t.Fatal(err)
	}
	ev := env.completed("cs_test_1")

	want := []Outcome{OutcomeSettled, OutcomeReplay, OutcomeReplay}
	for i, w := range want {
		got, err := env.rec.HandleEvent(ctx, ev)
		if err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
		if got != w {
			t.Errorf("delivery %d: outcome %s, want %s", i, got, w)
		}
	}
	if len(env.notifier.unlocked) != 1 {
		t.Fatalf("unlock notifications = %d, want 1", len(env.notifier.unlocked))
	}
	var audits int64
	env.db.Model(&models.AuditLog{}).Where("action = ?", "payment.settled").Count(&audits)
	if audits != 1 {
		t.Errorf("audit entries = %d, want 1", audits)
	}
}

func TestReconcileIgnoresForeignAndUnpaidEvents(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	ctx := context.Background()

	outcome, err := env.rec.HandleEvent(ctx, env.completed("cs_other_env"))
	if err != nil || outcome != OutcomeUnknown {
		t.Errorf("unknown ref: outcome=%s err=%v", outcome, err)
	}
	outcome, err = env.rec.HandleEvent(ctx, &payment.Event{Type: "payment_intent.created"})
	if err != nil || outcome != OutcomeIgnored {
		t.Errorf("other type: outcome=%s err=%v", outcome, err)
	}
	unpaid := env.completed("cs_x")
	unpaid.Paid = false
	outcome, err = env.rec.HandleEvent(ctx, unpaid)
	if err != nil || outcome != OutcomeIgnored {
		t.Errorf("unpaid: outcome=%s err=%v", outcome, err)
	}
	if len(env.notifier.unlocked) != 0 {
		t.Error("notification sent for a no-op event")
	}
}

func TestNotificationFailureKeepsSettlement(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	env.notifier.err = errors.New("smtp down")
	customer := testutil.CreateCustomer(t, env.db, "vic")
	_, lawyer := testutil.CreateLawyer(t, env.db, "val", "10.00")
	cp := testutil.CustomerPrincipal(customer)
	ctx := context.Background()

	chat, _, _ := env.chats.StartChat(ctx, cp, lawyer.ID)
	if _, err := env.payments.InitiateChatPayment(ctx, cp, chat.ID); err != nil {
		t.Fatal(err)
	}
	outcome, err := env.rec.HandleEvent(ctx, env.completed("cs_test_1"))
	if err != nil || outcome != OutcomeSettled {
		t.Fatalf("outcome=%s err=%v", outcome, err)
	}
	if _, err := env.chats.OpenChat(cp, chat.ID); err != nil {
		t.Errorf("chat should be open: %v", err)
	}
}

func TestGatewayFailureLeavesNoLedgerEntry(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	env.gateway.createFn = func(context.Context, payment.CheckoutRequest) (*payment.CheckoutSession, error) {
		return nil, errors.New("connection refused")
	}
	customer := testutil.CreateCustomer(t, env.db, "gus")
	_, lawyer := testutil.CreateLawyer(t, env.db, "gil", "10.00")
	cp := testutil.CustomerPrincipal(customer)
	ctx := context.Background()

	chat, _, _ := env.chats.StartChat(ctx, cp, lawyer.ID)
	_, err := env.payments.InitiateChatPayment(ctx, cp, chat.ID)
	if !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("err = %v, want ErrGateway", err)
	}
	if n, _ := env.ledger.CountByChatID(chat.ID); n != 0 {
		t.Errorf("payments = %d, want 0", n)
	}
}

func TestGatewayTimeout(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	env.payments.paymentCfg.CheckoutTimeout = 20 * time.Millisecond
	env.gateway.createFn = func(ctx context.Context, _ payment.CheckoutRequest) (*payment.CheckoutSession, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	customer := testutil.CreateCustomer(t, env.db, "tia")
	_, lawyer := testutil.CreateLawyer(t, env.db, "tom", "10.00")
	cp := testutil.CustomerPrincipal(customer)

	chat, _, _ := env.chats.StartChat(context.Background(), cp, lawyer.ID)
	_, err := env.payments.InitiateChatPayment(context.Background(), cp, chat.ID)
	if !errors.Is(err, domain.ErrGateway) {
		t.Fatalf("err = %v, want ErrGateway", err)
	}
}

func TestSimulatedModeSettlesImmediately(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeSimulated)
	customer := testutil.CreateCustomer(t, env.db, "sia")
	_, lawyer := testutil.CreateLawyer(t, env.db, "sol", "10.00")
	cp := testutil.CustomerPrincipal(customer)
	ctx := context.Background()

	chat, _, _ := env.chats.StartChat(ctx, cp, lawyer.ID)
	for i := 0; i < 2; i++ {
		co, err := env.payments.InitiateChatPayment(ctx, cp, chat.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !co.Paid || co.RedirectURL != "" {
			t.Errorf("call %d: checkout = %+v", i, co)
		}
	}
	if env.gateway.calls != 0 {
		t.Errorf("gateway calls = %d, want 0", env.gateway.calls)
	}
	pay, err := env.ledger.GetByChatID(chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !pay.Success || !pay.Amount.Equal(decimal.RequireFromString("13.80")) {
		t.Errorf("payment = %+v", pay)
	}
	if len(env.notifier.unlocked) != 1 {
		t.Errorf("unlock notifications = %d, want 1", len(env.notifier.unlocked))
	}
	if _, err := env.chats.OpenChat(cp, chat.ID); err != nil {
		t.Errorf("chat should be open: %v", err)
	}
}

func TestOutsiderIsForbidden(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeSimulated)
	customer := testutil.CreateCustomer(t, env.db, "ann")
	outsider := testutil.CreateCustomer(t, env.db, "oscar")
	otherLawyerUser, otherLawyer := testutil.CreateLawyer(t, env.db, "otto", "10.00")
	_, lawyer := testutil.CreateLawyer(t, env.db, "abe", "10.00")
	ctx := context.Background()

	chat, _, _ := env.chats.StartChat(ctx, testutil.CustomerPrincipal(customer), lawyer.ID)
	if _, err := env.payments.InitiateChatPayment(ctx, testutil.CustomerPrincipal(customer), chat.ID); err != nil {
		t.Fatal(err)
	}

	for _, p := range []domain.Principal{testutil.CustomerPrincipal(outsider), testutil.LawyerPrincipal(otherLawyerUser, otherLawyer)} {
		if _, err := env.chats.OpenChat(p, chat.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("user %d: OpenChat err = %v, want ErrForbidden", p.UserID, err)
		}
		if _, err := env.chats.PostMessage(p, chat.ID, "hi", ""); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("user %d: PostMessage err = %v, want ErrForbidden", p.UserID, err)
		}
		if _, err := env.payments.InitiateChatPayment(ctx, p, chat.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("user %d: InitiateChatPayment err = %v, want ErrForbidden", p.UserID, err)
		}
	}
}

func TestAcceptQuestionPricesAtOffer(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "quin")
	winnerUser, winner := testutil.CreateLawyer(t, env.db, "walt", "50.00")
	loserUser, loser := testutil.CreateLawyer(t, env.db, "lola", "10.00")
	ctx := context.Background()

	q, err := env.questions.Create(testutil.CustomerPrincipal(customer), "Tenancy deposit", "Landlord kept it", decimal.RequireFromString("20.00"))
	if err != nil {
		t.Fatal(err)
	}
	chat, created, err := env.chats.AcceptQuestion(ctx, testutil.LawyerPrincipal(winnerUser, winner), q.ID)
	if err != nil || !created {
		t.Fatalf("accept: created=%v err=%v", created, err)
	}
	if chat.QuestionID == nil || *chat.QuestionID != q.ID {
		t.Errorf("chat question = %v", chat.QuestionID)
	}
	if _, _, err := env.chats.AcceptQuestion(ctx, testutil.LawyerPrincipal(loserUser, loser), q.ID); !errors.Is(err, domain.ErrQuestionClosed) {
		t.Errorf("second accept: err = %v, want ErrQuestionClosed", err)
	}
	if len(env.notifier.accepted) != 1 {
		t.Errorf("accepted notifications = %d, want 1", len(env.notifier.accepted))
	}

	_, quote, err := env.payments.QuoteChat(testutil.CustomerPrincipal(customer), chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !quote.BasePrice.Equal(decimal.RequireFromString("20.00")) || !quote.Total.Equal(decimal.RequireFromString("25.29")) {
		t.Errorf("quote = %+v", quote)
	}
}

func TestQuestionOfferBounds(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "bea")
	p := testutil.CustomerPrincipal(customer)

	for _, price := range []string{"9.99", "30.01", "-1"} {
		if _, err := env.questions.Create(p, "t", "", decimal.RequireFromString(price)); !errors.Is(err, domain.ErrInvalidPrice) {
			t.Errorf("price %s: err = %v, want ErrInvalidPrice", price, err)
		}
	}
	for _, price := range []string{"10.00", "30.00"} {
		if _, err := env.questions.Create(p, "t", "", decimal.RequireFromString(price)); err != nil {
			t.Errorf("price %s: %v", price, err)
		}
	}
}

func TestNegativeFeeRejected(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	customer := testutil.CreateCustomer(t, env.db, "neg")
	_, lawyer := testutil.CreateLawyer(t, env.db, "nil", "-5.00")
	cp := testutil.CustomerPrincipal(customer)

	chat, _, err := env.chats.StartChat(context.Background(), cp, lawyer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.payments.InitiateChatPayment(context.Background(), cp, chat.ID); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("err = %v, want ErrInvalidPrice", err)
	}
	if env.gateway.calls != 0 {
		t.Error("gateway called for an invalid price")
	}
}

func TestSubscriptionLiveThenWebhook(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeLive)
	user, lawyer := testutil.CreateLawyer(t, env.db, "suki", "10.00")
	env.db.Model(lawyer).Update("subscription_active", false)
	lp := testutil.LawyerPrincipal(user, lawyer)
	ctx := context.Background()

	co, err := env.payments.InitiateSubscription(ctx, lp)
	if err != nil {
		t.Fatal(err)
	}
	if co.Active || co.RedirectURL == "" || env.gateway.last.AmountCents != 1500 {
		t.Fatalf("checkout = %+v, cents = %d", co, env.gateway.last.AmountCents)
	}
	if env.gateway.last.Metadata["payment_type"] != domain.PaymentTypeSubscription {
		t.Errorf("metadata = %v", env.gateway.last.Metadata)
	}

	ev := &payment.Event{Type: payment.EventCheckoutCompleted, CorrelationID: "cs_test_1", Paid: true}
	for i := 0; i < 2; i++ {
		if _, err := env.rec.HandleEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	var reloaded models.LawyerProfile
	env.db.First(&reloaded, lawyer.ID)
	if !reloaded.SubscriptionActive {
		t.Error("subscription not active")
	}
	if len(env.notifier.subs) != 1 {
		t.Errorf("subscription notifications = %d, want 1", len(env.notifier.subs))
	}
}

func TestSubscriptionRequiresApprovedLawyer(t *testing.T) {
	env := newTestEnv(t, config.PaymentModeSimulated)
	customer := testutil.CreateCustomer(t, env.db, "cam")
	user, lawyer := testutil.CreateLawyer(t, env.db, "una", "10.00")
	lp := testutil.LawyerPrincipal(user, lawyer)
	lp.Approved = false

	for _, p := range []domain.Principal{testutil.CustomerPrincipal(customer), lp} {
		if _, err := env.payments.InitiateSubscription(context.Background(), p); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("user %d: err = %v, want ErrForbidden", p.UserID, err)
		}
	}
}
