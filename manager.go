package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/quotes/checkout"
	"goflare.io/quotes/config"
	"goflare.io/quotes/docstore"
	"goflare.io/quotes/metrics"
	"goflare.io/quotes/models"
	"goflare.io/quotes/models/enum"
	"goflare.io/quotes/notification"
	"goflare.io/quotes/permission"
	"goflare.io/quotes/quote"
	"goflare.io/quotes/sellerquotes"
	"goflare.io/quotes/settings"
)

const (
	// CustomDataAppID is the custom-data slot on a cart that links it back
	// to the quote it was staged from.
	CustomDataAppID       = "b2b-quotes"
	customDataQuoteIDProp = "quoteId"

	placementRole  = "order-system"
	placementEmail = "noreply@notifications.b2b"

	defaultPageSize = 25
	maxPageSize     = 50
)

type QuoteManager struct {
	natsConn     *nats.Conn
	eventManager *EventManager
	dispatcher   *Dispatcher
	tasks        sellerquotes.TaskQueue
	logger       *zap.Logger
	now          func() time.Time

	repo         quote.Repository
	reconciler   *quote.Reconciler
	sweeper      *quote.Sweeper
	partitioner  *sellerquotes.Partitioner
	sellerClient sellerquotes.SettingsClient
	settings     settings.Service
	notifier     notification.Service
	cart         checkout.CartClient
	orders       checkout.OrderClient
	metrics      metrics.Reporter
}

// ProvideDispatcher builds and starts the shared background worker pool.
func ProvideDispatcher(cfg *config.Config, logger *zap.Logger) *Dispatcher {
	d := NewDispatcher(cfg.Workers.MaxWorkers, cfg.Workers.QueueSize, logger)
	d.Run()
	return d
}

func NewQuoteManager(cfg *config.Config,
	repo quote.Repository,
	appSettings settings.Service,
	notifier notification.Service,
	sellerClient sellerquotes.SettingsClient,
	cart checkout.CartClient,
	orders checkout.OrderClient,
	reporter metrics.Reporter,
	dispatcher *Dispatcher,
	logger *zap.Logger) QuoteService {
	qm := &QuoteManager{
		logger:       logger,
		now:          time.Now,
		repo:         repo,
		reconciler:   quote.NewReconciler(repo, logger),
		partitioner:  sellerquotes.NewPartitioner(sellerClient, logger),
		sellerClient: sellerClient,
		settings:     appSettings,
		notifier:     notifier,
		cart:         cart,
		orders:       orders,
		metrics:      reporter,
		dispatcher:   dispatcher,
		tasks:        dispatcher,
	}
	qm.sweeper = quote.NewSweeper(repo, notifier, logger)

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		logger.Error("error connecting to nats", zap.Error(err))
	}

	qm.natsConn = nc
	qm.eventManager = NewEventManager(nc, logger)

	qm.eventManager.RegisterHandler(StateOrderCreated, qm.handleOrderCreated)
	if nc != nil {
		if err = qm.eventManager.SubscribeToEvents(qm.dispatcher, qm.ProcessOrderEvent); err != nil {
			logger.Error("error subscribing to order events", zap.Error(err))
		}
	}

	return qm
}

// CreateQuote turns the caller's cart into one or more quote documents. When
// quotes are managed by sellers, items of opted-in sellers are carved out
// into child quotes under a parent.
func (qm *QuoteManager) CreateQuote(ctx context.Context, session models.Session, req CreateQuoteRequest) (*CreateQuoteResult, error) {
	set := permission.NewSet(session.Permissions)
	if err := permission.CheckCreate(set); err != nil {
		return nil, err
	}
	if req.ReferenceName == "" || len(req.Items) == 0 {
		return nil, quote.ErrInvalidInput
	}

	// Admin sessions create on a buyer's behalf and must say whose quote
	// this is; their own org and cost center are not a usable default.
	if session.Admin {
		if req.Organization == "" || req.CostCenter == "" {
			return nil, quote.ErrInvalidInput
		}
		session.OrganizationID = req.Organization
		session.CostCenterID = req.CostCenter
	}

	appSettings, err := qm.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	partition := &sellerquotes.PartitionResult{
		Marketplace: sellerquotes.Bucket{
			Seller:   models.MarketplaceSellerID,
			Items:    req.Items,
			Subtotal: req.Subtotal,
		},
	}
	if appSettings.AdminSetup.QuotesManagedBy == models.QuotesManagedBySeller {
		partition = qm.partitioner.Partition(ctx, req.Items)
	}

	now := qm.now()
	base := quote.BuildParams{
		Session:        session,
		ReferenceName:  req.ReferenceName,
		Note:           req.Note,
		SendToSalesRep: req.SendToSalesRep,
		Settings:       appSettings,
		SalesChannel:   session.SalesChannel,
		Now:            now,
	}

	var result *CreateQuoteResult
	switch partition.Mode() {
	case sellerquotes.SplitSingleSeller:
		result, err = qm.createSingleSellerQuote(ctx, base, partition.Sellers[0])
	case sellerquotes.SplitParentChildren:
		result, err = qm.createSplitQuotes(ctx, base, req, partition)
	default:
		result, err = qm.createMarketplaceQuote(ctx, base, req)
	}
	if err != nil {
		return nil, err
	}

	event := metrics.CreateQuoteEvent(session, result.ID, req.ReferenceName, req.SendToSalesRep, now)
	qm.tasks.Submit("send-create-quote-metric", func(taskCtx context.Context) error {
		return qm.metrics.Send(taskCtx, event)
	})

	return result, nil
}

func (qm *QuoteManager) createMarketplaceQuote(ctx context.Context, base quote.BuildParams, req CreateQuoteRequest) (*CreateQuoteResult, error) {
	base.Items = req.Items
	base.Subtotal = req.Subtotal

	q := quote.Build(base)
	id, err := qm.repo.Create(ctx, q)
	if err != nil {
		return nil, err
	}
	q.ID = id

	qm.notifyCreated(q, base.SendToSalesRep)

	return &CreateQuoteResult{ID: id}, nil
}

func (qm *QuoteManager) createSingleSellerQuote(ctx context.Context, base quote.BuildParams, bucket sellerquotes.Bucket) (*CreateQuoteResult, error) {
	base.Items = bucket.Items
	base.Subtotal = bucket.Subtotal
	base.Seller = bucket.Seller

	q := quote.Build(base)
	id, err := qm.repo.Create(ctx, q)
	if err != nil {
		return nil, err
	}
	q.ID = id

	qm.notifySeller(bucket.Seller, id, q.CreationDate)
	qm.notifyCreated(q, base.SendToSalesRep)

	return &CreateQuoteResult{ID: id}, nil
}

func (qm *QuoteManager) createSplitQuotes(ctx context.Context, base quote.BuildParams, req CreateQuoteRequest, partition *sellerquotes.PartitionResult) (*CreateQuoteResult, error) {
	parentParams := base
	parentParams.Items = partition.Marketplace.Items
	parentParams.Subtotal = req.Subtotal
	parentParams.MultiSeller = true
	parentParams.HasChildren = true
	parentParams.ChildrenQuantity = len(partition.Sellers)

	parent := quote.Build(parentParams)
	parentID, err := qm.repo.Create(ctx, parent)
	if err != nil {
		return nil, err
	}
	parent.ID = parentID

	childIDs := make([]string, 0, len(partition.Sellers))
	for _, bucket := range partition.Sellers {
		childParams := base
		childParams.Items = bucket.Items
		childParams.Subtotal = bucket.Subtotal
		childParams.MultiSeller = true
		childParams.Seller = bucket.Seller
		childParams.ParentQuote = parentID

		child := quote.Build(childParams)
		childID, err := qm.repo.Create(ctx, child)
		if err != nil {
			// Children already created stay valid; the parent's counters
			// are corrected instead of rolling the whole split back.
			qm.logger.Error("Failed to create child quote",
				zap.Error(err),
				zap.String("parent_quote", parentID),
				zap.String("seller", bucket.Seller))
			continue
		}

		childIDs = append(childIDs, childID)
		qm.notifySeller(bucket.Seller, childID, child.CreationDate)
	}

	if len(childIDs) != len(partition.Sellers) {
		if err = qm.repo.UpdatePartial(ctx, parentID, map[string]any{
			"childrenQuantity": len(childIDs),
			"hasChildren":      len(childIDs) > 0,
		}); err != nil {
			qm.logger.Error("Failed to correct child counters",
				zap.Error(err),
				zap.String("parent_quote", parentID))
		}
	}

	qm.notifyCreated(parent, base.SendToSalesRep)

	return &CreateQuoteResult{ID: parentID, ChildIDs: childIDs}, nil
}

func (qm *QuoteManager) notifyCreated(q *models.Quote, sendToSalesRep bool) {
	if !sendToSalesRep {
		return
	}
	qm.tasks.Submit("notify-quote-created", func(ctx context.Context) error {
		return qm.notifier.QuoteCreated(ctx, q)
	})
}

func (qm *QuoteManager) notifySeller(sellerID, quoteID string, creationDate time.Time) {
	qm.tasks.Submit("notify-seller-new-quote", func(ctx context.Context) error {
		return qm.sellerClient.NotifyNewQuote(ctx, sellerID, quoteID, creationDate)
	})
}

// UpdateQuote applies an edit, a note or a decline to an existing quote.
// Item or expiration changes require the edit-quotes family and put the
// quote into ready; everything else lands in revised.
func (qm *QuoteManager) UpdateQuote(ctx context.Context, session models.Session, req UpdateQuoteRequest) (*models.Quote, error) {
	if req.ID == "" {
		return nil, quote.ErrInvalidInput
	}

	q, err := qm.repo.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err = quote.EnsureMutable(q); err != nil {
		return nil, err
	}
	if q.Status == enum.QuoteStatusPlaced {
		return nil, quote.ErrQuoteCannotBeUpdatedOrUsed
	}

	itemsChanged := len(req.Items) > 0
	expirationChanged := !req.ExpirationDate.IsZero() && !req.ExpirationDate.Equal(q.ExpirationDate)

	set := permission.NewSet(session.Permissions)
	err = permission.CheckUpdate(set,
		permission.CallerScope{
			Organization: session.OrganizationID,
			CostCenter:   session.CostCenterID,
			SalesChannel: session.SalesChannel,
		},
		permission.QuoteScope{
			Organization: q.Organization,
			CostCenter:   q.CostCenter,
			SalesChannel: q.SalesChannel,
		},
		permission.UpdateRequest{
			ItemsChanged:      itemsChanged,
			ExpirationChanged: expirationChanged,
			Decline:           req.DeclineQuote,
		})
	if err != nil {
		return nil, err
	}

	status := enum.QuoteStatusRevised
	if itemsChanged {
		status = enum.QuoteStatusReady
	}
	if req.DeclineQuote {
		status = enum.QuoteStatusDeclined
	}

	now := qm.now()
	update := models.QuoteUpdate{
		Date:   now,
		Email:  session.Email,
		Role:   session.RoleSlug,
		Status: status,
		Note:   req.Note,
	}

	isCustomer := strings.Contains(session.RoleSlug, "customer")

	q.Status = status
	q.LastUpdate = now
	q.UpdateHistory = append(q.UpdateHistory, update)
	q.ViewedByCustomer = req.DeclineQuote || isCustomer
	q.ViewedBySales = req.DeclineQuote || !isCustomer
	if itemsChanged {
		q.Items = req.Items
		q.Subtotal = req.Subtotal
	}
	if expirationChanged {
		q.ExpirationDate = req.ExpirationDate
	}

	if err = qm.repo.Update(ctx, q); err != nil {
		return nil, err
	}

	if q.ParentQuote != "" {
		parentID := q.ParentQuote
		qm.tasks.Submit("reconcile-parent-quote", func(taskCtx context.Context) error {
			return qm.reconciler.Reconcile(taskCtx, parentID)
		})
	}

	qm.tasks.Submit("notify-quote-updated", func(taskCtx context.Context) error {
		return qm.notifier.QuoteUpdated(taskCtx, q, update)
	})

	return q, nil
}

// UseQuote stages a quote's items into a cart at their quoted prices and
// flags the cart with the quote id so order placement can find it. Parents
// of split quotes cannot be used directly.
func (qm *QuoteManager) UseQuote(ctx context.Context, session models.Session, req UseQuoteRequest) error {
	set := permission.NewSet(session.Permissions)
	if err := permission.CheckUse(set); err != nil {
		return err
	}
	if req.ID == "" {
		return quote.ErrInvalidInput
	}

	q, err := qm.repo.Get(ctx, req.ID)
	if err != nil {
		return err
	}
	if err = quote.EnsureMutable(q); err != nil {
		return err
	}
	if q.HasChildren {
		return quote.ErrQuoteCannotBeUpdatedOrUsed
	}

	orderFormID := req.OrderFormID
	if orderFormID == "" || orderFormID == checkout.DefaultOrderFormID {
		if orderFormID, err = qm.cart.CreateCart(ctx); err != nil {
			return err
		}
	} else if err = qm.cart.ClearCart(ctx, orderFormID); err != nil {
		return err
	}

	if err = qm.cart.SetCustomData(ctx, orderFormID, CustomDataAppID, customDataQuoteIDProp, q.ID); err != nil {
		return err
	}

	added, err := qm.cart.AddItems(ctx, orderFormID, q.Items, q.SalesChannel)
	if err != nil {
		return err
	}

	prices := make([]checkout.PriceUpdate, 0, len(added))
	for i, item := range q.Items {
		if i >= len(added) {
			break
		}
		prices = append(prices, checkout.PriceUpdate{Index: i, Price: item.SellingPrice})
	}
	if err = qm.cart.SetItemPrices(ctx, orderFormID, prices); err != nil {
		return err
	}

	qm.logger.Info("Quote staged into cart",
		zap.String("quote_id", q.ID),
		zap.String("order_form_id", orderFormID))

	event := metrics.UseQuoteEvent(session, q, orderFormID, qm.now())
	qm.tasks.Submit("send-use-quote-metric", func(taskCtx context.Context) error {
		return qm.metrics.Send(taskCtx, event)
	})

	return nil
}

// GetQuote loads one quote if it is visible to the caller.
func (qm *QuoteManager) GetQuote(ctx context.Context, session models.Session, id string) (*models.Quote, error) {
	if id == "" {
		return nil, quote.ErrInvalidInput
	}

	q, err := qm.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	set := permission.NewSet(session.Permissions)
	visible := permission.CanView(set,
		permission.CallerScope{
			Organization: session.OrganizationID,
			CostCenter:   session.CostCenterID,
			SalesChannel: session.SalesChannel,
		},
		permission.QuoteScope{
			Organization: q.Organization,
			CostCenter:   q.CostCenter,
			SalesChannel: q.SalesChannel,
		})
	if !visible {
		return nil, permission.ErrOperationNotPermitted
	}

	return q, nil
}

// GetQuotes lists quotes within the caller's permission scope. Callers whose
// scope is not restricted may narrow by organization and cost center
// explicitly.
func (qm *QuoteManager) GetQuotes(ctx context.Context, session models.Session, req ListQuotesRequest) (*QuotePage, error) {
	set := permission.NewSet(session.Permissions)
	if !set.CanAccessQuotes() {
		return nil, permission.ErrOperationNotPermitted
	}

	scope := permission.ScopeForList(set, session.SalesChannel)

	// Children of split carts only surface through GetChildrenQuotes;
	// listing them next to their parent would double-count subtotals.
	filter := docstore.Filter{docstore.IsNull("parentQuote")}
	if scope.RestrictOrganization {
		filter = append(filter, docstore.Eq("organization", session.OrganizationID))
	} else if len(req.Organizations) > 0 {
		filter = append(filter, orGroup("organization", req.Organizations))
	}
	if scope.RestrictCostCenter {
		filter = append(filter, docstore.Eq("costCenter", session.CostCenterID))
	} else if len(req.CostCenters) > 0 {
		filter = append(filter, orGroup("costCenter", req.CostCenters))
	}
	if scope.RestrictSalesChannel {
		filter = append(filter, docstore.Or(
			docstore.Eq("salesChannel", session.SalesChannel),
			docstore.IsNull("salesChannel"),
		))
	}
	if len(req.Statuses) > 0 {
		filter = append(filter, orGroup("status", req.Statuses))
	}
	if req.Search != "" {
		pattern := "*" + req.Search + "*"
		filter = append(filter, docstore.Or(
			docstore.Match("referenceName", pattern),
			docstore.Match("creatorEmail", pattern),
		))
	}

	sort := docstore.Sort{Field: "lastUpdate", Descending: true}
	if req.SortedBy != "" {
		sort.Field = req.SortedBy
		sort.Descending = req.SortOrder != "ASC"
	}

	page := normalizePage(req.Page, req.PageSize)

	quotesFound, info, err := qm.repo.Search(ctx, filter, sort, page)
	if err != nil {
		return nil, err
	}

	return &QuotePage{
		Quotes:   quotesFound,
		Page:     info.Page,
		PageSize: info.PageSize,
		Total:    info.Total,
	}, nil
}

// GetChildrenQuotes pages through the children of a split quote the caller
// can see.
func (qm *QuoteManager) GetChildrenQuotes(ctx context.Context, session models.Session, parentID string, page, pageSize int) (*QuotePage, error) {
	if _, err := qm.GetQuote(ctx, session, parentID); err != nil {
		return nil, err
	}

	children, info, err := qm.repo.Search(ctx,
		docstore.Filter{docstore.Eq("parentQuote", parentID)},
		docstore.Sort{Field: "creationDate"},
		normalizePage(page, pageSize))
	if err != nil {
		return nil, err
	}

	return &QuotePage{
		Quotes:   children,
		Page:     info.Page,
		PageSize: info.PageSize,
		Total:    info.Total,
	}, nil
}

func (qm *QuoteManager) ClearCart(ctx context.Context, orderFormID string) error {
	if orderFormID == "" {
		return quote.ErrInvalidInput
	}
	return qm.cart.ClearCart(ctx, orderFormID)
}

// QuoteEnabledForUser reports whether the storefront should surface quote
// features for this caller at all.
func (qm *QuoteManager) QuoteEnabledForUser(session models.Session) bool {
	set := permission.NewSet(session.Permissions)
	return set.Has(permission.CreateQuotes) ||
		set.Has(permission.UseQuotes) ||
		set.CanAccessQuotes()
}

// ExpireQuotes runs one expiration sweep batch.
func (qm *QuoteManager) ExpireQuotes(ctx context.Context) (int, error) {
	return qm.sweeper.Run(ctx)
}

// HandleOrderHook acknowledges an order notification by publishing it to
// NATS; the subscriber picks it up and places quotes off the request path.
func (qm *QuoteManager) HandleOrderHook(ctx context.Context, event OrderEvent) error {
	if event.OrderID == "" {
		return quote.ErrInvalidInput
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = qm.now()
	}

	if err := qm.eventManager.PublishEvent(&event); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	return nil
}

func (qm *QuoteManager) ProcessOrderEvent(ctx context.Context, event *OrderEvent) error {
	handler, exists := qm.eventManager.GetHandler(event.CurrentState)
	if !exists {
		qm.logger.Debug("No handler registered for order state",
			zap.String("order_id", event.OrderID),
			zap.String("state", event.CurrentState))
		return nil
	}

	if err := handler(ctx, event); err != nil {
		qm.logger.Error("Failed to process order event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
			zap.String("state", event.CurrentState))
		return err
	}

	qm.logger.Info("Order event processed",
		zap.String("order_id", event.OrderID),
		zap.String("state", event.CurrentState))

	return nil
}

// handleOrderCreated places the quote an order was staged from. For split
// quotes the parent is placed along with every child whose seller appears in
// the order.
func (qm *QuoteManager) handleOrderCreated(ctx context.Context, event *OrderEvent) error {
	order, err := qm.orders.GetOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}

	quoteID := order.QuoteID(CustomDataAppID)
	if quoteID == "" {
		return nil
	}

	q, err := qm.repo.Get(ctx, quoteID)
	if err != nil {
		return err
	}
	if q.Status.Terminal() {
		qm.logger.Info("Skipping order event for terminal quote",
			zap.String("quote_id", q.ID),
			zap.String("status", string(q.Status)),
			zap.String("order_id", order.OrderID))
		return nil
	}

	if err = qm.placeQuote(ctx, q, order); err != nil {
		return err
	}

	if q.HasChildren {
		children, err := qm.repo.ListChildren(ctx, q.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.Status.Terminal() {
				continue
			}
			if child.Seller != "" && !order.ContainsSeller(child.Seller) {
				continue
			}
			if err = qm.placeQuote(ctx, child, order); err != nil {
				qm.logger.Error("Failed to place child quote",
					zap.Error(err),
					zap.String("quote_id", child.ID),
					zap.String("order_id", order.OrderID))
			}
		}
	}

	if q.ParentQuote != "" {
		parentID := q.ParentQuote
		qm.tasks.Submit("reconcile-parent-quote", func(taskCtx context.Context) error {
			return qm.reconciler.Reconcile(taskCtx, parentID)
		})
	}

	return nil
}

func (qm *QuoteManager) placeQuote(ctx context.Context, q *models.Quote, order *checkout.Order) error {
	now := qm.now()
	update := models.QuoteUpdate{
		Date:   now,
		Email:  placementEmail,
		Role:   placementRole,
		Status: enum.QuoteStatusPlaced,
		Note:   "Order " + order.OrderID,
	}
	history := append(q.UpdateHistory, update)

	err := qm.repo.UpdatePartial(ctx, q.ID, map[string]any{
		"status":        enum.QuoteStatusPlaced,
		"lastUpdate":    now,
		"updateHistory": history,
	})
	if err != nil {
		return err
	}

	q.Status = enum.QuoteStatusPlaced
	q.LastUpdate = now
	q.UpdateHistory = history

	placed := q
	qm.tasks.Submit("notify-quote-placed", func(taskCtx context.Context) error {
		return qm.notifier.QuotePlaced(taskCtx, placed, order.OrderID)
	})

	return nil
}

func (qm *QuoteManager) GetAppSettings(ctx context.Context) (*models.Settings, error) {
	return qm.settings.Get(ctx)
}

func (qm *QuoteManager) SaveAppSettings(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	if s == nil {
		return nil, quote.ErrInvalidInput
	}
	return qm.settings.Save(ctx, s)
}

func (qm *QuoteManager) Close() {
	qm.logger.Info("Initiating graceful shutdown of workers and dispatcher")
	if qm.natsConn != nil {
		qm.natsConn.Close()
	}
	qm.dispatcher.Stop()
	qm.logger.Info("QuoteManager successfully shutdown")
}

func orGroup(field string, values []string) docstore.Clause {
	clauses := make([]docstore.Clause, 0, len(values))
	for _, v := range values {
		clauses = append(clauses, docstore.Eq(field, v))
	}
	return docstore.Or(clauses...)
}

func normalizePage(page, pageSize int) docstore.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return docstore.Pagination{Page: page, PageSize: pageSize}
}
