package provider

import (
	"github.com/cubaneorg/cubane-sub000/internal/cache"
	"github.com/cubaneorg/cubane-sub000/internal/config"
	"github.com/cubaneorg/cubane-sub000/internal/gateway"
	"github.com/cubaneorg/cubane-sub000/internal/gateway/hostedform"
	"github.com/cubaneorg/cubane-sub000/internal/gateway/testgateway"
	"github.com/cubaneorg/cubane-sub000/internal/logger"
	"github.com/cubaneorg/cubane-sub000/internal/models"
	"github.com/cubaneorg/cubane-sub000/internal/queue"
	"github.com/cubaneorg/cubane-sub000/internal/repository"
	"github.com/cubaneorg/cubane-sub000/internal/service"
	"github.com/cubaneorg/cubane-sub000/internal/session"
)

// Container wires repositories, gateways and services together.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	SessionStore session.Store
	Gateways     *gateway.Registry

	// Repositories
	CategoryRepo       repository.CategoryRepository
	ProductRepo        repository.ProductRepository
	ProductSKURepo     repository.ProductSKURepository
	VarietyRepo        repository.VarietyRepository
	DeliveryOptionRepo repository.DeliveryOptionRepository
	VoucherRepo        repository.VoucherRepository
	FinanceOptionRepo  repository.FinanceOptionRepository
	OrderRepo          repository.OrderRepository
	CustomerRepo       repository.CustomerRepository

	// Services
	EmailService    *service.EmailService
	CatalogService  *service.CatalogService
	BasketService   *service.BasketService
	StockAdjuster   *service.StockAdjuster
	OrderService    *service.OrderService
	PaymentService  *service.PaymentService
	CustomerService *service.CustomerService
}

// NewContainer initialises the container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initSessionStore()
	c.initGateways()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.ProductSKURepo = repository.NewProductSKURepository(db)
	c.VarietyRepo = repository.NewVarietyRepository(db)
	c.DeliveryOptionRepo = repository.NewDeliveryOptionRepository(db)
	c.VoucherRepo = repository.NewVoucherRepository(db)
	c.FinanceOptionRepo = repository.NewFinanceOptionRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
}

func (c *Container) initSessionStore() {
	shop := c.Config.Shop
	if cache.Enabled() {
		c.SessionStore = session.NewRedisStore(cache.Client(), shop.MaxQuantity, shop.DefaultCountry)
		return
	}
	logger.Warnw("provider_session_store_memory_fallback", "reason", "redis_disabled")
	c.SessionStore = session.NewMemoryStore(shop.MaxQuantity, shop.DefaultCountry)
}

func (c *Container) initGateways() {
	c.Gateways = gateway.NewRegistry()

	if c.Config.Gateway.Enabled {
		gw, err := hostedform.New(hostedform.Config{
			GatewayURL:  c.Config.Gateway.GatewayURL,
			MerchantID:  c.Config.Gateway.MerchantID,
			MerchantKey: c.Config.Gateway.MerchantKey,
			APIPath:     c.Config.Gateway.APIPath,
			NotifyURL:   c.Config.Gateway.NotifyURL,
			ReturnURL:   c.Config.Gateway.ReturnURL,
			Preauth:     c.Config.Shop.Preauth,
			Moto:        c.Config.Gateway.Moto,
		})
		if err != nil {
			logger.Errorw("provider_init_hosted_gateway_failed", "error", err)
		} else {
			c.Gateways.Add(gw)
		}
	}

	if c.Config.Shop.TestMode || len(c.Gateways.List()) == 0 {
		tg := testgateway.New()
		tg.Preauth = c.Config.Shop.Preauth
		c.Gateways.Add(tg)
	}
}

func (c *Container) initServices() {
	shop := c.Config.Shop

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CatalogService = service.NewCatalogService(c.ProductRepo, c.CategoryRepo, shop.DefaultOrdering)
	c.BasketService = service.NewBasketService(c.SessionStore, c.ProductRepo, c.DeliveryOptionRepo, c.VoucherRepo, c.FinanceOptionRepo)
	c.StockAdjuster = service.NewStockAdjuster(c.ProductRepo, c.ProductSKURepo, c.OrderRepo, c.QueueClient, shop.MaxQuantity, shop.DefaultCountry)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CustomerRepo, c.StockAdjuster, c.Gateways, c.QueueClient, shop)
	c.PaymentService = service.NewPaymentService(c.OrderRepo, c.Gateways, c.StockAdjuster, c.QueueClient, shop)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.Config.JWT)
}
