package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/events"
	"github.com/waveportal/backend/internal/models"
	"github.com/waveportal/backend/internal/services"
	"github.com/waveportal/backend/internal/view"
	"github.com/waveportal/backend/internal/waveboard"
	"go.uber.org/zap"
)

const testAccount = "0x00000000000000000000000000000000000000Aa"

type fakeBoard struct {
	mu        sync.Mutex
	state     waveboard.State
	submit    waveboard.Submission
	authErr   error
	submitted []string
}

func (b *fakeBoard) Snapshot() waveboard.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *fakeBoard) MyWaves() []models.Wave {
	s := b.Snapshot()
	return models.FilterBySender(s.Waves, s.Account)
}

func (b *fakeBoard) SetPendingMessage(message string) {
	b.mu.Lock()
	b.state.PendingMessage = message
	b.mu.Unlock()
}

func (b *fakeBoard) SubmitMessage(ctx context.Context, message *string) waveboard.Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	if message != nil {
		b.state.PendingMessage = *message
	}
	b.submitted = append(b.submitted, b.state.PendingMessage)
	return b.submit
}

func (b *fakeBoard) RequestAuthorization(ctx context.Context) error {
	if b.authErr != nil {
		return b.authErr
	}
	b.mu.Lock()
	b.state.Account = testAccount
	b.mu.Unlock()
	return nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func connectedBoard() *fakeBoard {
	return &fakeBoard{state: waveboard.State{
		ProviderInstalled: true,
		Account:           testAccount,
		Waves: []models.Wave{
			{Sender: testAccount, CreatedAt: time.Unix(1000, 0).UTC(), Message: "one"},
			{Sender: "0x00000000000000000000000000000000000000bb", CreatedAt: time.Unix(2000, 0).UTC(), Message: "two"},
			{Sender: strings.ToLower(testAccount), CreatedAt: time.Unix(3000, 0).UTC(), Message: "three"},
		},
	}}
}

func boardApp(b Board, pub events.Publisher) *fiber.App {
	h := NewBoardHandler(b, pub, zap.NewNop())
	app := fiber.New()
	app.Get("/board", h.GetBoard)
	app.Get("/waves", h.GetWaves)
	app.Get("/waves/mine", h.MyWaves)
	app.Post("/waves", h.SubmitWave)
	app.Put("/waves/pending", h.SetPending)
	app.Post("/wallet/connect", h.Connect)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestBoardHandler_GetBoard(t *testing.T) {
	status, body := do(t, boardApp(connectedBoard(), nil), "GET", "/board", "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var page view.Page
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Count != 3 || len(page.MyWaves) != 2 {
		t.Errorf("count=%d mine=%d, want 3 and 2", page.Count, len(page.MyWaves))
	}
}

func TestBoardHandler_MyWaves(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{"connected account", "/waves/mine", 2},
		{"explicit address", "/waves/mine?address=0x00000000000000000000000000000000000000BB", 1},
		{"unknown address", "/waves/mine?address=0x00000000000000000000000000000000000000cc", 0},
	}
	app := boardApp(connectedBoard(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := do(t, app, "GET", tt.path, "")
			var resp struct {
				Data []models.Wave `json:"data"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Data) != tt.want {
				t.Errorf("got %d waves, want %d", len(resp.Data), tt.want)
			}
		})
	}
}

func TestBoardHandler_SubmitStatusCodes(t *testing.T) {
	tests := []struct {
		status waveboard.SubmitStatus
		want   int
	}{
		{waveboard.SubmitConfirmed, fiber.StatusOK},
		{waveboard.SubmitNoProvider, fiber.StatusPreconditionFailed},
		{waveboard.SubmitBusy, fiber.StatusConflict},
		{waveboard.SubmitRejected, fiber.StatusForbidden},
		{waveboard.SubmitFailed, fiber.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			b := connectedBoard()
			b.submit = waveboard.Submission{Status: tt.status, TxHash: "0xabc"}
			pub := &recordingPublisher{}

			status, _ := do(t, boardApp(b, pub), "POST", "/waves", `{"message":"hi"}`)
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
			if len(b.submitted) != 1 || b.submitted[0] != "hi" {
				t.Errorf("submitted = %v, want [hi]", b.submitted)
			}
			wantEvents := 0
			if tt.status == waveboard.SubmitConfirmed {
				wantEvents = 1
			}
			if len(pub.events) != wantEvents {
				t.Errorf("published %d events, want %d", len(pub.events), wantEvents)
			}
		})
	}
}

func TestBoardHandler_SubmitKeepsPendingWithoutBody(t *testing.T) {
	b := connectedBoard()
	b.submit = waveboard.Submission{Status: waveboard.SubmitConfirmed}
	app := boardApp(b, nil)

	if status, _ := do(t, app, "PUT", "/waves/pending", `{"message":"queued"}`); status != fiber.StatusOK {
		t.Fatalf("set pending status = %d", status)
	}
	do(t, app, "POST", "/waves", "")
	if len(b.submitted) != 1 || b.submitted[0] != "queued" {
		t.Errorf("submitted = %v, want [queued]", b.submitted)
	}

	if status, _ := do(t, app, "PUT", "/waves/pending", `{}`); status != fiber.StatusBadRequest {
		t.Errorf("missing message status = %d, want 400", status)
	}
}

type gatedProvider struct {
	contract *gatedContract
}

func (p *gatedProvider) Accounts(ctx context.Context) ([]string, error) {
	return []string{testAccount}, nil
}

func (p *gatedProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{testAccount}, nil
}

func (p *gatedProvider) Contract(ctx context.Context) (eth.Contract, error) {
	return p.contract, nil
}

// gatedContract holds every sent wave unmined until gate is closed.
type gatedContract struct {
	gate chan struct{}
	sent chan string
}

func (c *gatedContract) GetAllWaves(ctx context.Context) ([]eth.RawWave, error) { return nil, nil }

func (c *gatedContract) Wave(ctx context.Context, message string, gasLimit uint64) (eth.PendingTx, error) {
	c.sent <- message
	return gatedTx{gate: c.gate}, nil
}

func (c *gatedContract) WatchNewWave(ctx context.Context, sink chan<- *eth.NewWave) (event.Subscription, error) {
	return nil, errors.New("not supported")
}

type gatedTx struct {
	gate chan struct{}
}

func (t gatedTx) Hash() common.Hash { return common.HexToHash("0xabc") }

func (t gatedTx) Wait(ctx context.Context) error {
	<-t.gate
	return nil
}

func TestBoardHandler_BusySubmitLeavesPending(t *testing.T) {
	c := &gatedContract{gate: make(chan struct{}), sent: make(chan string, 1)}
	board := waveboard.New(&gatedProvider{contract: c}, waveboard.Options{}, zap.NewNop())
	app := boardApp(board, nil)

	firstStatus := make(chan int, 1)
	go func() {
		req := httptest.NewRequest("POST", "/waves", strings.NewReader(`{"message":"first"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		if err != nil {
			firstStatus <- 0
			return
		}
		resp.Body.Close()
		firstStatus <- resp.StatusCode
	}()

	select {
	case <-c.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("first wave not sent")
	}

	status, _ := do(t, app, "POST", "/waves", `{"message":"second"}`)
	if status != fiber.StatusConflict {
		t.Fatalf("second submit status = %d, want 409", status)
	}
	if got := board.Snapshot().PendingMessage; got != "first" {
		t.Errorf("pending after busy = %q, want first", got)
	}

	close(c.gate)
	if got := <-firstStatus; got != fiber.StatusOK {
		t.Fatalf("first submit status = %d, want 200", got)
	}
	if got := board.Snapshot().PendingMessage; got != "" {
		t.Errorf("pending after confirm = %q, want empty", got)
	}
}

func TestBoardHandler_Connect(t *testing.T) {
	b := &fakeBoard{authErr: waveboard.ErrProviderMissing}
	status, body := do(t, boardApp(b, nil), "POST", "/wallet/connect", "")
	if status != fiber.StatusPreconditionFailed || !strings.Contains(string(body), view.InstallWalletMessage) {
		t.Errorf("no provider: status=%d body=%s", status, body)
	}

	b = &fakeBoard{state: waveboard.State{ProviderInstalled: true}}
	status, body = do(t, boardApp(b, nil), "POST", "/wallet/connect", "")
	if status != fiber.StatusOK || !strings.Contains(string(body), testAccount) {
		t.Errorf("granted: status=%d body=%s", status, body)
	}
}

func TestPageHandler_Index(t *testing.T) {
	h := NewPageHandler(connectedBoard(), zap.NewNop())
	app := fiber.New()
	app.Get("/", h.Index)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Find("#wave-list li.wave").Length(); got != 3 {
		t.Errorf("list items = %d, want 3", got)
	}
}

func TestPageHandler_SubmitFormRedirects(t *testing.T) {
	b := connectedBoard()
	b.submit = waveboard.Submission{Status: waveboard.SubmitConfirmed}
	h := NewPageHandler(b, zap.NewNop())
	app := fiber.New()
	app.Post("/waves", h.SubmitForm)

	req := httptest.NewRequest("POST", "/waves", strings.NewReader("message=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Errorf("status=%d location=%q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if len(b.submitted) != 1 || b.submitted[0] != "hi" {
		t.Errorf("submitted = %v", b.submitted)
	}
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) GeneratePayload(ctx context.Context) (*models.ProofPayload, error) {
	return &models.ProofPayload{Payload: "nonce", ExpiresAt: time.Unix(5000, 0)}, nil
}

func (f *fakeVerifier) VerifyWallet(ctx context.Context, proof eth.Proof) (*services.VerifyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.VerifyResult{Wallet: &models.VerifiedWallet{Address: proof.Address}, Token: "jwt"}, nil
}

func TestWalletHandler_Verify(t *testing.T) {
	const valid = `{"address":"0x1","payload":"nonce","signature":"0x2","domain":"d","timestamp":1}`
	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"ok", nil, valid, fiber.StatusOK},
		{"missing fields", nil, `{"address":"0x1"}`, fiber.StatusBadRequest},
		{"bad nonce", services.ErrInvalidPayload, valid, fiber.StatusUnauthorized},
		{"bad signature", services.ErrInvalidProof, valid, fiber.StatusUnauthorized},
		{"storage down", errors.New("db down"), valid, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWalletHandler(&fakeVerifier{err: tt.err}, zap.NewNop())
			app := fiber.New()
			app.Post("/verify", h.Verify)
			if status, _ := do(t, app, "POST", "/verify", tt.body); status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestWalletHandler_GeneratePayload(t *testing.T) {
	h := NewWalletHandler(&fakeVerifier{}, zap.NewNop())
	app := fiber.New()
	app.Post("/proof-payload", h.GeneratePayload)

	_, body := do(t, app, "POST", "/proof-payload", "")
	if !strings.Contains(string(body), `"payload":"nonce"`) {
		t.Errorf("body = %s", body)
	}
}

type fakeHistory struct {
	sender string
	limit  int
}

func (f *fakeHistory) List(ctx context.Context, sender string, limit, offset int) ([]models.IndexedWave, error) {
	f.sender, f.limit = sender, limit
	return []models.IndexedWave{{Wave: models.Wave{Sender: sender, Message: "m"}, TxHash: "0x1"}}, nil
}

func TestHistoryHandler_List(t *testing.T) {
	hist := &fakeHistory{}
	h := NewHistoryHandler(hist, zap.NewNop())
	app := fiber.New()
	app.Get("/history", h.List)

	status, body := do(t, app, "GET", "/history?sender=0xabc&limit=10", "")
	if status != fiber.StatusOK || hist.sender != "0xabc" || hist.limit != 10 {
		t.Errorf("status=%d sender=%q limit=%d", status, hist.sender, hist.limit)
	}
	if !strings.Contains(string(body), `"tx_hash":"0x1"`) {
		t.Errorf("body = %s", body)
	}
}
