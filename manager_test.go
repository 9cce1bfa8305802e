package quotes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"goflare.io/quotes/checkout"
	"goflare.io/quotes/docstore"
	"goflare.io/quotes/metrics"
	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
	"goflare.io/quotes/permission"
	"goflare.io/quotes/quote"
	"goflare.io/quotes/sellerquotes"
)

type fakeRepo struct {
	quotes     map[string]*models.Quote
	nextID     int
	lastFilter docstore.Filter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{quotes: make(map[string]*models.Quote)}
}

func (f *fakeRepo) add(q *models.Quote) *models.Quote {
	if q.ID == "" {
		f.nextID++
		q.ID = fmt.Sprintf("q-%d", f.nextID)
	}
	f.quotes[q.ID] = q
	return q
}

func (f *fakeRepo) Create(_ context.Context, q *models.Quote) (string, error) {
	return f.add(q).ID, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*models.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, quote.ErrQuoteNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeRepo) Update(_ context.Context, q *models.Quote) error {
	if _, ok := f.quotes[q.ID]; !ok {
		return quote.ErrQuoteNotFound
	}
	copied := *q
	f.quotes[q.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdatePartial(_ context.Context, id string, fields map[string]any) error {
	q, ok := f.quotes[id]
	if !ok {
		return quote.ErrQuoteNotFound
	}
	if status, ok := fields["status"].(enum.QuoteStatus); ok {
		q.Status = status
	}
	if subtotal, ok := fields["subtotal"].(int64); ok {
		q.Subtotal = subtotal
	}
	if history, ok := fields["updateHistory"].([]models.QuoteUpdate); ok {
		q.UpdateHistory = history
	}
	return nil
}

func (f *fakeRepo) Search(_ context.Context, filter docstore.Filter, _ docstore.Sort, page docstore.Pagination) ([]*models.Quote, *docstore.PageInfo, error) {
	f.lastFilter = filter

	var parentID string
	topLevelOnly := false
	for _, clause := range filter {
		if clause.Field != "parentQuote" {
			continue
		}
		switch clause.Op {
		case docstore.OpEq:
			parentID, _ = clause.Value.(string)
		case docstore.OpIsNull:
			topLevelOnly = true
		}
	}

	var out []*models.Quote
	for _, q := range f.quotes {
		if parentID != "" && q.ParentQuote != parentID {
			continue
		}
		if topLevelOnly && q.ParentQuote != "" {
			continue
		}
		out = append(out, q)
	}

	info := &docstore.PageInfo{Page: page.Page, PageSize: page.PageSize, Total: len(out)}
	if page.Page > 1 {
		return nil, info, nil
	}
	return out, info, nil
}

func (f *fakeRepo) ListChildren(ctx context.Context, parentID string) ([]*models.Quote, error) {
	out, _, err := f.Search(ctx,
		docstore.Filter{docstore.Eq("parentQuote", parentID)},
		docstore.Sort{}, docstore.Pagination{Page: 1, PageSize: 100})
	return out, err
}

type fakeSettingsService struct {
	settings *models.Settings
}

func (f *fakeSettingsService) Get(context.Context) (*models.Settings, error) {
	if f.settings == nil {
		return models.DefaultSettings(), nil
	}
	return f.settings, nil
}

func (f *fakeSettingsService) Save(_ context.Context, s *models.Settings) (*models.Settings, error) {
	f.settings = s
	return s, nil
}

type fakeNotificationService struct {
	created []string
	updated []string
	placed  []string
}

func (f *fakeNotificationService) QuoteCreated(_ context.Context, q *models.Quote) error {
	f.created = append(f.created, q.ID)
	return nil
}

func (f *fakeNotificationService) QuoteUpdated(_ context.Context, q *models.Quote, _ models.QuoteUpdate) error {
	f.updated = append(f.updated, q.ID)
	return nil
}

func (f *fakeNotificationService) QuotePlaced(_ context.Context, q *models.Quote, _ string) error {
	f.placed = append(f.placed, q.ID)
	return nil
}

type fakeSellerClient struct {
	optedIn  map[string]bool
	notified []string
}

func (f *fakeSellerClient) VerifyQuoteSettings(_ context.Context, sellerID string) (*sellerquotes.QuoteSettings, error) {
	return &sellerquotes.QuoteSettings{ReceiveQuotes: f.optedIn[sellerID]}, nil
}

func (f *fakeSellerClient) NotifyNewQuote(_ context.Context, sellerID, quoteID string, _ time.Time) error {
	f.notified = append(f.notified, sellerID+":"+quoteID)
	return nil
}

type fakeCartClient struct {
	cleared    []string
	created    int
	addedTo    string
	addedItems []models.QuoteItem
	prices     []checkout.PriceUpdate
	customData map[string]string
}

func newFakeCartClient() *fakeCartClient {
	return &fakeCartClient{customData: make(map[string]string)}
}

func (f *fakeCartClient) ClearCart(_ context.Context, orderFormID string) error {
	f.cleared = append(f.cleared, orderFormID)
	return nil
}

func (f *fakeCartClient) CreateCart(context.Context) (string, error) {
	f.created++
	return "cart-new", nil
}

func (f *fakeCartClient) AddItems(_ context.Context, orderFormID string, items []models.QuoteItem, _ string) ([]checkout.CartItem, error) {
	f.addedTo = orderFormID
	f.addedItems = items
	out := make([]checkout.CartItem, len(items))
	for i, item := range items {
		out[i] = checkout.CartItem{ID: item.ID, Quantity: item.Quantity, Seller: item.Seller}
	}
	return out, nil
}

func (f *fakeCartClient) SetItemPrices(_ context.Context, _ string, prices []checkout.PriceUpdate) error {
	f.prices = prices
	return nil
}

func (f *fakeCartClient) SetCustomData(_ context.Context, orderFormID, appID, property, value string) error {
	f.customData[appID+"/"+property] = value
	return nil
}

type fakeOrderClient struct {
	orders map[string]*checkout.Order
}

func (f *fakeOrderClient) GetOrder(_ context.Context, orderID string) (*checkout.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return order, nil
}

type fakeReporter struct {
	events []metrics.Event
}

func (f *fakeReporter) Send(_ context.Context, event metrics.Event) error {
	f.events = append(f.events, event)
	return nil
}

type syncTasks struct {
	names []string
}

func (s *syncTasks) Submit(name string, task func(ctx context.Context) error) {
	s.names = append(s.names, name)
	_ = task(context.Background())
}

type managerFixture struct {
	qm       *QuoteManager
	repo     *fakeRepo
	settings *fakeSettingsService
	notifier *fakeNotificationService
	seller   *fakeSellerClient
	cart     *fakeCartClient
	orders   *fakeOrderClient
	reporter *fakeReporter
	tasks    *syncTasks
	now      time.Time
}

func newManagerFixture() *managerFixture {
	logger := zap.NewNop()
	f := &managerFixture{
		repo:     newFakeRepo(),
		settings: &fakeSettingsService{},
		notifier: &fakeNotificationService{},
		seller:   &fakeSellerClient{optedIn: make(map[string]bool)},
		cart:     newFakeCartClient(),
		orders:   &fakeOrderClient{orders: make(map[string]*checkout.Order)},
		reporter: &fakeReporter{},
		tasks:    &syncTasks{},
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	qm := &QuoteManager{
		logger:       logger,
		now:          func() time.Time { return f.now },
		repo:         f.repo,
		reconciler:   quote.NewReconciler(f.repo, logger),
		partitioner:  sellerquotes.NewPartitioner(f.seller, logger),
		sellerClient: f.seller,
		settings:     f.settings,
		notifier:     f.notifier,
		cart:         f.cart,
		orders:       f.orders,
		metrics:      f.reporter,
		tasks:        f.tasks,
		eventManager: NewEventManager(nil, logger),
	}
	qm.sweeper = quote.NewSweeper(f.repo, f.notifier, logger)
	qm.eventManager.RegisterHandler(StateOrderCreated, qm.handleOrderCreated)

	f.qm = qm
	return f
}

func buyerSession(perms ...string) models.Session {
	return models.Session{
		Email:          "buyer@acme.com",
		Name:           "Buyer",
		OrganizationID: "org-1",
		CostCenterID:   "cc-1",
		RoleSlug:       "customer-admin",
		Permissions:    perms,
	}
}

func cartItems() []models.QuoteItem {
	return []models.QuoteItem{
		{ID: "sku-1", Seller: models.MarketplaceSellerID, SellingPrice: 1000, Quantity: 1},
		{ID: "sku-2", Seller: "seller-a", SellingPrice: 500, Quantity: 2},
	}
}

func TestCreateQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("requires create-quotes", func(t *testing.T) {
		f := newManagerFixture()
		_, err := f.qm.CreateQuote(ctx, buyerSession(), CreateQuoteRequest{
			ReferenceName: "q", Items: cartItems(),
		})
		if !errors.Is(err, permission.ErrOperationNotPermitted) {
			t.Fatalf("CreateQuote() = %v, want %v", err, permission.ErrOperationNotPermitted)
		}
	})

	t.Run("rejects empty carts", func(t *testing.T) {
		f := newManagerFixture()
		_, err := f.qm.CreateQuote(ctx, buyerSession("create-quotes"), CreateQuoteRequest{
			ReferenceName: "q",
		})
		if !errors.Is(err, quote.ErrInvalidInput) {
			t.Fatalf("CreateQuote() = %v, want %v", err, quote.ErrInvalidInput)
		}
	})

	t.Run("admin without explicit scope is rejected", func(t *testing.T) {
		f := newManagerFixture()
		session := buyerSession("create-quotes")
		session.Admin = true

		_, err := f.qm.CreateQuote(ctx, session, CreateQuoteRequest{
			ReferenceName: "q", Items: cartItems(),
		})
		if !errors.Is(err, quote.ErrInvalidInput) {
			t.Fatalf("CreateQuote() = %v, want %v", err, quote.ErrInvalidInput)
		}
	})

	t.Run("admin creates on behalf of the named scope", func(t *testing.T) {
		f := newManagerFixture()
		session := buyerSession("create-quotes")
		session.Admin = true

		result, err := f.qm.CreateQuote(ctx, session, CreateQuoteRequest{
			ReferenceName: "restock", Items: cartItems(), Subtotal: 2000,
			Organization: "org-7", CostCenter: "cc-7",
		})
		if err != nil {
			t.Fatalf("CreateQuote() = %v", err)
		}

		q := f.repo.quotes[result.ID]
		if q.Organization != "org-7" || q.CostCenter != "cc-7" {
			t.Fatalf("quote scope = %s/%s", q.Organization, q.CostCenter)
		}
	})

	t.Run("marketplace managed creates one quote", func(t *testing.T) {
		f := newManagerFixture()
		f.seller.optedIn["seller-a"] = true // ignored: quotes managed by marketplace

		result, err := f.qm.CreateQuote(ctx, buyerSession("create-quotes"), CreateQuoteRequest{
			ReferenceName: "restock", Items: cartItems(), Subtotal: 2000,
		})
		if err != nil {
			t.Fatalf("CreateQuote() = %v", err)
		}
		if len(result.ChildIDs) != 0 {
			t.Fatalf("childIDs = %v", result.ChildIDs)
		}

		q := f.repo.quotes[result.ID]
		if q.Status != enum.QuoteStatusReady || q.Subtotal != 2000 || len(q.Items) != 2 {
			t.Fatalf("quote = %+v", q)
		}
		if len(f.seller.notified) != 0 {
			t.Fatalf("seller notified = %v", f.seller.notified)
		}
		if len(f.reporter.events) != 1 || f.reporter.events[0].Kind != "create-quote-event" {
			t.Fatalf("metric events = %+v", f.reporter.events)
		}
	})

	t.Run("send to sales rep starts pending and notifies", func(t *testing.T) {
		f := newManagerFixture()

		result, err := f.qm.CreateQuote(ctx, buyerSession("create-quotes"), CreateQuoteRequest{
			ReferenceName: "restock", Items: cartItems(), Subtotal: 2000, SendToSalesRep: true,
		})
		if err != nil {
			t.Fatalf("CreateQuote() = %v", err)
		}

		if f.repo.quotes[result.ID].Status != enum.QuoteStatusPending {
			t.Fatalf("status = %s", f.repo.quotes[result.ID].Status)
		}
		if len(f.notifier.created) != 1 {
			t.Fatalf("created notifications = %v", f.notifier.created)
		}
	})

	t.Run("seller managed splits into parent and children", func(t *testing.T) {
		f := newManagerFixture()
		f.settings.settings = &models.Settings{
			AdminSetup: models.AdminSetup{
				CartLifeSpan:    30,
				QuotesManagedBy: models.QuotesManagedBySeller,
			},
		}
		f.seller.optedIn["seller-a"] = true

		result, err := f.qm.CreateQuote(ctx, buyerSession("create-quotes"), CreateQuoteRequest{
			ReferenceName: "restock", Items: cartItems(), Subtotal: 2000,
		})
		if err != nil {
			t.Fatalf("CreateQuote() = %v", err)
		}
		if len(result.ChildIDs) != 1 {
			t.Fatalf("childIDs = %v", result.ChildIDs)
		}

		parent := f.repo.quotes[result.ID]
		if !parent.HasChildren || parent.ChildrenQuantity != 1 || parent.Status != enum.QuoteStatusPending {
			t.Fatalf("parent = %+v", parent)
		}
		if len(parent.Items) != 1 || parent.Items[0].ID != "sku-1" {
			t.Fatalf("parent items = %+v", parent.Items)
		}

		child := f.repo.quotes[result.ChildIDs[0]]
		if child.ParentQuote != parent.ID || child.Seller != "seller-a" ||
			child.Status != enum.QuoteStatusPending || child.Subtotal != 1000 {
			t.Fatalf("child = %+v", child)
		}

		if len(f.seller.notified) != 1 {
			t.Fatalf("seller notifications = %v", f.seller.notified)
		}
	})

	t.Run("single opted-in seller owns the whole quote", func(t *testing.T) {
		f := newManagerFixture()
		f.settings.settings = &models.Settings{
			AdminSetup: models.AdminSetup{
				CartLifeSpan:    30,
				QuotesManagedBy: models.QuotesManagedBySeller,
			},
		}
		f.seller.optedIn["seller-a"] = true

		items := []models.QuoteItem{{ID: "sku-2", Seller: "seller-a", SellingPrice: 500, Quantity: 2}}
		result, err := f.qm.CreateQuote(ctx, buyerSession("create-quotes"), CreateQuoteRequest{
			ReferenceName: "restock", Items: items, Subtotal: 1000,
		})
		if err != nil {
			t.Fatalf("CreateQuote() = %v", err)
		}
		if len(result.ChildIDs) != 0 {
			t.Fatalf("childIDs = %v", result.ChildIDs)
		}

		q := f.repo.quotes[result.ID]
		if q.Seller != "seller-a" || q.ParentQuote != "" || q.HasChildren {
			t.Fatalf("quote = %+v", q)
		}
	})
}

func TestUpdateQuote(t *testing.T) {
	ctx := context.Background()

	seed := func(f *managerFixture) *models.Quote {
		return f.repo.add(&models.Quote{
			Status:         enum.QuoteStatusPending,
			Organization:   "org-1",
			CostCenter:     "cc-1",
			Subtotal:       2000,
			Items:          cartItems(),
			ExpirationDate: f.now.AddDate(0, 0, 30),
		})
	}

	t.Run("note only moves to revised", func(t *testing.T) {
		f := newManagerFixture()
		q := seed(f)

		updated, err := f.qm.UpdateQuote(ctx, buyerSession("access-quotes"), UpdateQuoteRequest{
			ID: q.ID, Note: "thinking about it",
		})
		if err != nil {
			t.Fatalf("UpdateQuote() = %v", err)
		}
		if updated.Status != enum.QuoteStatusRevised {
			t.Fatalf("status = %s", updated.Status)
		}
		if len(updated.UpdateHistory) != 1 || updated.UpdateHistory[0].Note != "thinking about it" {
			t.Fatalf("history = %+v", updated.UpdateHistory)
		}
		if len(f.notifier.updated) != 1 {
			t.Fatalf("notifications = %v", f.notifier.updated)
		}
	})

	t.Run("item change moves to ready", func(t *testing.T) {
		f := newManagerFixture()
		q := seed(f)

		newItems := []models.QuoteItem{{ID: "sku-1", SellingPrice: 900, Quantity: 1}}
		updated, err := f.qm.UpdateQuote(ctx, buyerSession("edit-quotes"), UpdateQuoteRequest{
			ID: q.ID, Items: newItems, Subtotal: 900,
		})
		if err != nil {
			t.Fatalf("UpdateQuote() = %v", err)
		}
		if updated.Status != enum.QuoteStatusReady || updated.Subtotal != 900 {
			t.Fatalf("quote = %+v", updated)
		}
	})

	t.Run("decline wins over everything", func(t *testing.T) {
		f := newManagerFixture()
		q := seed(f)

		updated, err := f.qm.UpdateQuote(ctx, buyerSession("access-quotes", "decline-quotes"), UpdateQuoteRequest{
			ID: q.ID, DeclineQuote: true,
		})
		if err != nil {
			t.Fatalf("UpdateQuote() = %v", err)
		}
		if updated.Status != enum.QuoteStatusDeclined {
			t.Fatalf("status = %s", updated.Status)
		}
		if !updated.ViewedByCustomer || !updated.ViewedBySales {
			t.Fatalf("viewed flags = %+v", updated)
		}
	})

	t.Run("declined quotes are frozen", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusDeclined, Organization: "org-1", CostCenter: "cc-1",
		})

		_, err := f.qm.UpdateQuote(ctx, buyerSession("access-quotes"), UpdateQuoteRequest{
			ID: q.ID, Note: "too late",
		})
		if !errors.Is(err, quote.ErrQuoteCannotBeUpdatedOrUsed) {
			t.Fatalf("UpdateQuote() = %v, want %v", err, quote.ErrQuoteCannotBeUpdatedOrUsed)
		}
	})

	t.Run("placed quotes are frozen", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPlaced, Organization: "org-1", CostCenter: "cc-1",
		})

		_, err := f.qm.UpdateQuote(ctx, buyerSession("access-quotes"), UpdateQuoteRequest{
			ID: q.ID, Note: "too late",
		})
		if !errors.Is(err, quote.ErrQuoteCannotBeUpdatedOrUsed) {
			t.Fatalf("UpdateQuote() = %v, want %v", err, quote.ErrQuoteCannotBeUpdatedOrUsed)
		}
	})

	t.Run("child update reconciles the parent", func(t *testing.T) {
		f := newManagerFixture()
		parent := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPending, HasChildren: true,
			Organization: "org-1", CostCenter: "cc-1",
		})
		child := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPending, ParentQuote: parent.ID,
			Organization: "org-1", CostCenter: "cc-1", Subtotal: 1000,
		})

		_, err := f.qm.UpdateQuote(ctx, buyerSession("edit-quotes"), UpdateQuoteRequest{
			ID:       child.ID,
			Items:    []models.QuoteItem{{ID: "sku-9", SellingPrice: 700, Quantity: 1}},
			Subtotal: 700,
		})
		if err != nil {
			t.Fatalf("UpdateQuote() = %v", err)
		}

		if f.repo.quotes[parent.ID].Subtotal != 700 {
			t.Fatalf("parent subtotal = %d, want 700", f.repo.quotes[parent.ID].Subtotal)
		}
	})
}

func TestUseQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("stages items at quoted prices", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusReady, Organization: "org-1", CostCenter: "cc-1",
			Items: cartItems(), SalesChannel: "1",
		})

		err := f.qm.UseQuote(ctx, buyerSession("use-quotes"), UseQuoteRequest{ID: q.ID})
		if err != nil {
			t.Fatalf("UseQuote() = %v", err)
		}

		if f.cart.created != 1 {
			t.Fatalf("carts created = %d", f.cart.created)
		}
		if f.cart.customData[CustomDataAppID+"/quoteId"] != q.ID {
			t.Fatalf("customData = %v", f.cart.customData)
		}
		if len(f.cart.addedItems) != 2 || len(f.cart.prices) != 2 {
			t.Fatalf("added = %d priced = %d", len(f.cart.addedItems), len(f.cart.prices))
		}
		if f.cart.prices[0].Price != 1000 || f.cart.prices[1].Price != 500 {
			t.Fatalf("prices = %+v", f.cart.prices)
		}
		if len(f.reporter.events) != 1 || f.reporter.events[0].Kind != "use-quote-event" {
			t.Fatalf("metric events = %+v", f.reporter.events)
		}
	})

	t.Run("existing cart is cleared first", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusReady, Organization: "org-1", CostCenter: "cc-1",
			Items: cartItems(),
		})

		err := f.qm.UseQuote(ctx, buyerSession("use-quotes"), UseQuoteRequest{ID: q.ID, OrderFormID: "cart-7"})
		if err != nil {
			t.Fatalf("UseQuote() = %v", err)
		}
		if len(f.cart.cleared) != 1 || f.cart.cleared[0] != "cart-7" {
			t.Fatalf("cleared = %v", f.cart.cleared)
		}
		if f.cart.addedTo != "cart-7" {
			t.Fatalf("addedTo = %s", f.cart.addedTo)
		}
	})

	t.Run("requires use-quotes", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Status: enum.QuoteStatusReady})

		err := f.qm.UseQuote(ctx, buyerSession("create-quotes"), UseQuoteRequest{ID: q.ID})
		if !errors.Is(err, permission.ErrOperationNotPermitted) {
			t.Fatalf("UseQuote() = %v, want %v", err, permission.ErrOperationNotPermitted)
		}
	})

	t.Run("split parents cannot be used", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Status: enum.QuoteStatusPending, HasChildren: true})

		err := f.qm.UseQuote(ctx, buyerSession("use-quotes"), UseQuoteRequest{ID: q.ID})
		if !errors.Is(err, quote.ErrQuoteCannotBeUpdatedOrUsed) {
			t.Fatalf("UseQuote() = %v, want %v", err, quote.ErrQuoteCannotBeUpdatedOrUsed)
		}
	})

	t.Run("expired quotes cannot be used", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Status: enum.QuoteStatusExpired})

		err := f.qm.UseQuote(ctx, buyerSession("use-quotes"), UseQuoteRequest{ID: q.ID})
		if !errors.Is(err, quote.ErrQuoteCannotBeUpdatedOrUsed) {
			t.Fatalf("UseQuote() = %v, want %v", err, quote.ErrQuoteCannotBeUpdatedOrUsed)
		}
	})
}

func TestGetQuote(t *testing.T) {
	ctx := context.Background()

	t.Run("hidden quotes are forbidden", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Organization: "org-9", CostCenter: "cc-9"})

		_, err := f.qm.GetQuote(ctx, buyerSession("access-quotes"), q.ID)
		if !errors.Is(err, permission.ErrOperationNotPermitted) {
			t.Fatalf("GetQuote() = %v, want %v", err, permission.ErrOperationNotPermitted)
		}
	})

	t.Run("visible quote is returned", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Organization: "org-1", CostCenter: "cc-1"})

		got, err := f.qm.GetQuote(ctx, buyerSession("access-quotes"), q.ID)
		if err != nil {
			t.Fatalf("GetQuote() = %v", err)
		}
		if got.ID != q.ID {
			t.Fatalf("id = %s", got.ID)
		}
	})
}

func TestGetQuotesScoping(t *testing.T) {
	ctx := context.Background()

	t.Run("restricted caller is pinned to own scope", func(t *testing.T) {
		f := newManagerFixture()

		_, err := f.qm.GetQuotes(ctx, buyerSession("access-quotes"), ListQuotesRequest{
			Organizations: []string{"org-9"},
		})
		if err != nil {
			t.Fatalf("GetQuotes() = %v", err)
		}

		var orgClause *docstore.Clause
		for i := range f.repo.lastFilter {
			if f.repo.lastFilter[i].Field == "organization" {
				orgClause = &f.repo.lastFilter[i]
			}
		}
		if orgClause == nil || orgClause.Value != "org-1" {
			t.Fatalf("filter = %+v", f.repo.lastFilter)
		}
	})

	t.Run("unrestricted caller may filter freely", func(t *testing.T) {
		f := newManagerFixture()

		_, err := f.qm.GetQuotes(ctx, buyerSession("access-quotes-all"), ListQuotesRequest{
			Organizations: []string{"org-9"},
		})
		if err != nil {
			t.Fatalf("GetQuotes() = %v", err)
		}

		if len(f.repo.lastFilter) != 2 || len(f.repo.lastFilter[1].Or) != 1 {
			t.Fatalf("filter = %+v", f.repo.lastFilter)
		}
	})

	t.Run("children stay out of the top-level listing", func(t *testing.T) {
		f := newManagerFixture()
		parent := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPending, HasChildren: true,
			Organization: "org-1", CostCenter: "cc-1",
		})
		f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPending, ParentQuote: parent.ID,
			Organization: "org-1", CostCenter: "cc-1",
		})

		page, err := f.qm.GetQuotes(ctx, buyerSession("access-quotes-all"), ListQuotesRequest{})
		if err != nil {
			t.Fatalf("GetQuotes() = %v", err)
		}
		if len(page.Quotes) != 1 || page.Quotes[0].ID != parent.ID {
			t.Fatalf("quotes = %+v", page.Quotes)
		}
	})

	t.Run("free-text search covers name and creator", func(t *testing.T) {
		f := newManagerFixture()

		_, err := f.qm.GetQuotes(ctx, buyerSession("access-quotes-all"), ListQuotesRequest{
			Search: "alice",
		})
		if err != nil {
			t.Fatalf("GetQuotes() = %v", err)
		}

		var search *docstore.Clause
		for i := range f.repo.lastFilter {
			for _, or := range f.repo.lastFilter[i].Or {
				if or.Op == docstore.OpMatch {
					search = &f.repo.lastFilter[i]
				}
			}
		}
		if search == nil || len(search.Or) != 2 {
			t.Fatalf("filter = %+v", f.repo.lastFilter)
		}
		fields := map[string]string{}
		for _, or := range search.Or {
			fields[or.Field], _ = or.Value.(string)
		}
		if fields["referenceName"] != "*alice*" || fields["creatorEmail"] != "*alice*" {
			t.Fatalf("search clause = %+v", search.Or)
		}
	})

	t.Run("no access family is forbidden", func(t *testing.T) {
		f := newManagerFixture()

		_, err := f.qm.GetQuotes(ctx, buyerSession("create-quotes"), ListQuotesRequest{})
		if !errors.Is(err, permission.ErrOperationNotPermitted) {
			t.Fatalf("GetQuotes() = %v, want %v", err, permission.ErrOperationNotPermitted)
		}
	})
}

func TestHandleOrderCreated(t *testing.T) {
	ctx := context.Background()

	orderFor := func(quoteID string, sellers ...string) *checkout.Order {
		order := &checkout.Order{
			OrderID: "order-1",
			CustomData: &checkout.CustomData{CustomApps: []checkout.CustomApp{{
				ID:     CustomDataAppID,
				Fields: map[string]string{"quoteId": quoteID},
			}}},
		}
		for _, s := range sellers {
			order.Items = append(order.Items, checkout.OrderItem{ID: "sku", Seller: s})
		}
		return order
	}

	t.Run("places the quote behind the order", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Status: enum.QuoteStatusReady})
		f.orders.orders["order-1"] = orderFor(q.ID)

		err := f.qm.ProcessOrderEvent(ctx, &OrderEvent{OrderID: "order-1", CurrentState: StateOrderCreated})
		if err != nil {
			t.Fatalf("ProcessOrderEvent() = %v", err)
		}

		if f.repo.quotes[q.ID].Status != enum.QuoteStatusPlaced {
			t.Fatalf("status = %s", f.repo.quotes[q.ID].Status)
		}
		if len(f.notifier.placed) != 1 {
			t.Fatalf("placed notifications = %v", f.notifier.placed)
		}
	})

	t.Run("terminal quotes are skipped", func(t *testing.T) {
		f := newManagerFixture()
		q := f.repo.add(&models.Quote{Status: enum.QuoteStatusExpired})
		f.orders.orders["order-1"] = orderFor(q.ID)

		err := f.qm.ProcessOrderEvent(ctx, &OrderEvent{OrderID: "order-1", CurrentState: StateOrderCreated})
		if err != nil {
			t.Fatalf("ProcessOrderEvent() = %v", err)
		}
		if f.repo.quotes[q.ID].Status != enum.QuoteStatusExpired {
			t.Fatalf("status = %s", f.repo.quotes[q.ID].Status)
		}
	})

	t.Run("children place only for sellers in the order", func(t *testing.T) {
		f := newManagerFixture()
		parent := f.repo.add(&models.Quote{Status: enum.QuoteStatusPending, HasChildren: true})
		inOrder := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPending, ParentQuote: parent.ID, Seller: "seller-a",
		})
		notInOrder := f.repo.add(&models.Quote{
			Status: enum.QuoteStatusPending, ParentQuote: parent.ID, Seller: "seller-b",
		})
		f.orders.orders["order-1"] = orderFor(parent.ID, "seller-a")

		err := f.qm.ProcessOrderEvent(ctx, &OrderEvent{OrderID: "order-1", CurrentState: StateOrderCreated})
		if err != nil {
			t.Fatalf("ProcessOrderEvent() = %v", err)
		}

		if f.repo.quotes[parent.ID].Status != enum.QuoteStatusPlaced {
			t.Fatalf("parent status = %s", f.repo.quotes[parent.ID].Status)
		}
		if f.repo.quotes[inOrder.ID].Status != enum.QuoteStatusPlaced {
			t.Fatalf("in-order child status = %s", f.repo.quotes[inOrder.ID].Status)
		}
		if f.repo.quotes[notInOrder.ID].Status != enum.QuoteStatusPending {
			t.Fatalf("out-of-order child status = %s", f.repo.quotes[notInOrder.ID].Status)
		}
	})

	t.Run("orders without a quote are ignored", func(t *testing.T) {
		f := newManagerFixture()
		f.orders.orders["order-1"] = &checkout.Order{OrderID: "order-1"}

		err := f.qm.ProcessOrderEvent(ctx, &OrderEvent{OrderID: "order-1", CurrentState: StateOrderCreated})
		if err != nil {
			t.Fatalf("ProcessOrderEvent() = %v", err)
		}
	})

	t.Run("unknown states are ignored", func(t *testing.T) {
		f := newManagerFixture()

		err := f.qm.ProcessOrderEvent(ctx, &OrderEvent{OrderID: "order-1", CurrentState: "payment-approved"})
		if err != nil {
			t.Fatalf("ProcessOrderEvent() = %v", err)
		}
	})
}

func TestQuoteEnabledForUser(t *testing.T) {
	f := newManagerFixture()

	if !f.qm.QuoteEnabledForUser(buyerSession("create-quotes")) {
		t.Fatal("create-quotes should enable quotes")
	}
	if !f.qm.QuoteEnabledForUser(buyerSession("use-quotes")) {
		t.Fatal("use-quotes should enable quotes")
	}
	if !f.qm.QuoteEnabledForUser(buyerSession("access-quotes-organization")) {
		t.Fatal("access family should enable quotes")
	}
	if f.qm.QuoteEnabledForUser(buyerSession()) {
		t.Fatal("no permissions should not enable quotes")
	}
}
