package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"
	"gopkg.in/gcfg.v1"
)

const CONFIG_PATH = "./config/config.ini"

const (
	TAX_CREATE_SHOPIFY = "create_shopify_tax"
	TAX_ODOO           = "odoo_tax"

	SYNC_WITH_SKU     = "sku"
	SYNC_WITH_BARCODE = "barcode"

	IMPORT_UNSHIPPED = "unshipped"
	IMPORT_PARTIAL   = "partial"

	STOCK_FREE_QTY = "free_qty"
	STOCK_FORECAST = "virtual_available"

	FIX_STOCK_FIX        = "fix"
	FIX_STOCK_PERCENTAGE = "percentage"
)

type (
	Config struct {
		SERVICE struct {
			PORT  int
			Token string
		}
		DBSQLITE struct {
			DB string
		}
		LOG struct {
			Debug int
		}
		TELEGRAM struct {
			BotToken string
			ChatID   int64
			Debug    int
		}
		ODOO struct {
			URL      string
			DB       string
			UserID   int
			Password string
			Timeout  int
		}
		RABBITMQ struct {
			Enabled  bool
			URL      string
			Exchange string
		}
		SCHEDULER struct {
			Timeout           int
			ImportOrders      bool
			ProcessQueues     bool
			UpdateOrderStatus bool
			ExportStock       bool
			Cleanup           bool
			DaysToKeep        int
			TelegramReport    bool
		}
		CACHE struct {
			TimeUpdate int
		}
		EXPORT struct {
			Path string
		}
		INSTANCE map[string]*Instance
		WORKFLOW map[string]*Workflow
		LOCATION map[string]*Location
	}

	// Instance is one connected Shopify store.
	Instance struct {
		Name                     string
		Host                     string
		AccessToken              string
		SharedSecret             string
		ApiVersion               string
		RPS                      int
		Active                   bool
		CompanyID                int
		WarehouseID              int
		PricelistID              int
		SalesTeamID              int
		OrderPrefix              string
		UseDefaultSequence       bool
		ApplyTaxInOrder          string
		NotifyCustomer           bool
		DiscountProductID        int
		ShippingProductID        int
		GiftCardProductID        int
		CustomServiceProductID   int
		CustomStorableProductID  int
		DefaultPOSCustomerID     int
		ImportOrderStatus        []string
		ImportOrderAfterDate     string
		AutoFulfillGiftCardOrder bool
		AutoImportProduct        bool
		SyncProductWith          string
		StockField               string
		FixStockType             string
		FixStockValue            int
		AutoValidateInventory    bool
	}

	// Workflow is the ERP auto workflow applied to orders paid through one gateway
	// with one financial status.
	Workflow struct {
		ValidateOrder   bool
		CreateInvoice   bool
		RegisterPayment bool
		JournalID       int
		PickingPolicy   string
	}

	// Location links a Shopify location to ERP warehouses.
	Location struct {
		WarehouseForOrder    int
		ExportStockWarehouse []int
		ImportStockWarehouse int
	}
)

var cfg Config
var once sync.Once

func GetConfig() *Config {
	once.Do(func() {
		err := os.MkdirAll("logs", 0770)
		if err != nil {
			fmt.Println(err)
		}

		file, err := os.OpenFile("logs/config.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			fmt.Println(err)
		}

		multiWriter := io.MultiWriter(file, os.Stdout)

		logger := log.New(multiWriter, "MAIN ", log.Ldate|log.Ltime|log.Lshortfile)

		logger.Print("Config:>Read application configurations")

		c, err := Load(CONFIG_PATH)
		if err != nil {
			logger.Fatalf("Config:>Failed to read config: %s", err)
		}
		cfg = *c
		logger.Printf("Config:>Config is read, instances: %s", strings.Join(cfg.InstanceNames(), ", "))
	})

	return &cfg
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	c := new(Config)
	if err := gcfg.ReadFileInto(c, path); err != nil {
		return nil, errors.Wrapf(err, "failed to parse gcfg data %s", path)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadString is Load for in-memory configs.
func LoadString(data string) (*Config, error) {
	c := new(Config)
	if err := gcfg.ReadStringInto(c, data); err != nil {
		return nil, errors.Wrap(err, "failed to parse gcfg data")
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) setDefaults() {
	if c.SERVICE.PORT == 0 {
		c.SERVICE.PORT = 8080
	}
	if c.DBSQLITE.DB == "" {
		c.DBSQLITE.DB = "db.db"
	}
	if c.ODOO.Timeout == 0 {
		c.ODOO.Timeout = 30
	}
	if c.RABBITMQ.Exchange == "" {
		c.RABBITMQ.Exchange = "shopify.webhook"
	}
	if c.SCHEDULER.Timeout == 0 {
		c.SCHEDULER.Timeout = 15
	}
	if c.SCHEDULER.DaysToKeep == 0 {
		c.SCHEDULER.DaysToKeep = 7
	}
	if c.CACHE.TimeUpdate == 0 {
		c.CACHE.TimeUpdate = 3600
	}
	if c.EXPORT.Path == "" {
		c.EXPORT.Path = "export"
	}
	for name, instance := range c.INSTANCE {
		instance.Name = name
		if instance.ApiVersion == "" {
			instance.ApiVersion = "2024-01"
		}
		if instance.RPS == 0 {
			instance.RPS = 2
		}
		if instance.ApplyTaxInOrder == "" {
			instance.ApplyTaxInOrder = TAX_CREATE_SHOPIFY
		}
		if instance.SyncProductWith == "" {
			instance.SyncProductWith = SYNC_WITH_SKU
		}
		if instance.StockField == "" {
			instance.StockField = STOCK_FREE_QTY
		}
		if len(instance.ImportOrderStatus) == 0 {
			instance.ImportOrderStatus = []string{IMPORT_UNSHIPPED}
		}
	}
}

func (c *Config) Validate() error {
	err := validation.Errors{
		"ODOO.URL":      validation.Validate(c.ODOO.URL, validation.Required, is.URL),
		"ODOO.DB":       validation.Validate(c.ODOO.DB, validation.Required),
		"ODOO.UserID":   validation.Validate(c.ODOO.UserID, validation.Required),
		"ODOO.Password": validation.Validate(c.ODOO.Password, validation.Required),
	}.Filter()
	if err != nil {
		return errors.Wrap(err, "invalid ODOO section")
	}
	for _, name := range c.InstanceNames() {
		if err := c.INSTANCE[name].Validate(); err != nil {
			return errors.Wrapf(err, "invalid instance %s", name)
		}
	}
	for key := range c.LOCATION {
		if _, _, err := splitLocationKey(key); err != nil {
			return err
		}
	}
	return nil
}

func (i Instance) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Host, validation.Required, is.Host),
		validation.Field(&i.AccessToken, validation.Required),
		validation.Field(&i.SharedSecret, validation.Required),
		validation.Field(&i.RPS, validation.Required, validation.Min(1)),
		validation.Field(&i.CompanyID, validation.Required),
		validation.Field(&i.WarehouseID, validation.Required),
		validation.Field(&i.ApplyTaxInOrder, validation.In(TAX_CREATE_SHOPIFY, TAX_ODOO)),
		validation.Field(&i.SyncProductWith, validation.In(SYNC_WITH_SKU, SYNC_WITH_BARCODE)),
		validation.Field(&i.StockField, validation.In(STOCK_FREE_QTY, STOCK_FORECAST)),
		validation.Field(&i.FixStockType, validation.In(FIX_STOCK_FIX, FIX_STOCK_PERCENTAGE)),
		validation.Field(&i.FixStockValue, validation.Min(0)),
		validation.Field(&i.ImportOrderStatus, validation.Each(validation.In(IMPORT_UNSHIPPED, IMPORT_PARTIAL))),
		validation.Field(&i.ImportOrderAfterDate, validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if s == "" {
				return nil
			}
			_, err := dateparse.ParseAny(s)
			return err
		})),
	)
}

// ImportAfterDate returns the configured cut-off date, zero when unset.
func (i *Instance) ImportAfterDate() time.Time {
	if i.ImportOrderAfterDate == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(i.ImportOrderAfterDate, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Config) InstanceNames() []string {
	names := make([]string, 0, len(c.INSTANCE))
	for name := range c.INSTANCE {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Instance(name string) (*Instance, bool) {
	i, ok := c.INSTANCE[name]
	return i, ok
}

// Workflow looks up the auto workflow for a gateway and financial status.
// "<instance>:<gateway>:<status>" entries win over "<gateway>:<status>" ones.
func (c *Config) Workflow(instance, gateway, financialStatus string) (*Workflow, bool) {
	if w, ok := c.WORKFLOW[fmt.Sprintf("%s:%s:%s", instance, gateway, financialStatus)]; ok {
		return w, true
	}
	w, ok := c.WORKFLOW[fmt.Sprintf("%s:%s", gateway, financialStatus)]
	return w, ok
}

// LocationsOf returns the location mappings of an instance keyed by Shopify location id.
func (c *Config) LocationsOf(instance string) map[int64]*Location {
	result := make(map[int64]*Location)
	for key, location := range c.LOCATION {
		name, id, err := splitLocationKey(key)
		if err != nil || name != instance {
			continue
		}
		result[id] = location
	}
	return result
}

func splitLocationKey(key string) (string, int64, error) {
	i := strings.LastIndex(key, ":")
	if i <= 0 {
		return "", 0, errors.Errorf("invalid location %q, expected <instance>:<location id>", key)
	}
	id, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid location id in %q", key)
	}
	return key[:i], id, nil
}
