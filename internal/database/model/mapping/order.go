package mapping

import (
	"database/sql"
	"time"

	"ShopifyWithOdoo/internal/database"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Order links a Shopify order to an ERP sale order.
type Order struct {
	ID                       int           `db:"ID"`
	Instance                 string        `db:"Instance"`
	ShopifyOrderID           int64         `db:"ShopifyOrderID"`
	OrderNumber              string        `db:"OrderNumber"`
	Name                     string        `db:"Name"`
	SaleOrderID              int           `db:"SaleOrderID"`
	LocationID               sql.NullInt64 `db:"LocationID"`
	FinancialStatus          string        `db:"FinancialStatus"`
	FulfillmentStatus        string        `db:"FulfillmentStatus"`
	IsRisky                  bool          `db:"IsRisky"`
	IsPOS                    bool          `db:"IsPOS"`
	IsServiceTrackingUpdated bool          `db:"IsServiceTrackingUpdated"`
	CanceledInShopify        bool          `db:"CanceledInShopify"`
	ClosedAt                 sql.NullTime  `db:"ClosedAt"`
	CreatedAt                time.Time     `db:"CreatedAt"`
}

// OrderLine links an ERP sale order line to a Shopify line item.
type OrderLine struct {
	ID              int           `db:"ID"`
	OrderMapID      int           `db:"OrderMapID"`
	SaleOrderLineID int           `db:"SaleOrderLineID"`
	ShopifyLineID   sql.NullInt64 `db:"ShopifyLineID"`
	IsDelivery      bool          `db:"IsDelivery"`
	IsGiftCard      bool          `db:"IsGiftCard"`
	IsService       bool          `db:"IsService"`
}

// FindOrder returns nil when the order was never imported.
func FindOrder(db *sqlx.DB, instance string, shopifyOrderID int64) (*Order, error) {
	var orders []*Order
	err := db.Select(&orders, "SELECT * FROM OrderMap WHERE Instance=$1 AND ShopifyOrderID=$2", instance, shopifyOrderID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT OrderMap %d", shopifyOrderID)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return orders[0], nil
}

func FindOrderBySaleOrder(db *sqlx.DB, instance string, saleOrderID int) (*Order, error) {
	var orders []*Order
	err := db.Select(&orders, "SELECT * FROM OrderMap WHERE Instance=$1 AND SaleOrderID=$2", instance, saleOrderID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT OrderMap by sale order %d", saleOrderID)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return orders[0], nil
}

// Save inserts the order or updates the stored row with the same Shopify id.
func (o *Order) Save(db *sqlx.DB) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = database.Now()
	}
	query := `INSERT INTO OrderMap (Instance, ShopifyOrderID, OrderNumber, Name, SaleOrderID, LocationID,
			FinancialStatus, FulfillmentStatus, IsRisky, IsPOS, IsServiceTrackingUpdated, CanceledInShopify, ClosedAt, CreatedAt)
		VALUES (:Instance, :ShopifyOrderID, :OrderNumber, :Name, :SaleOrderID, :LocationID,
			:FinancialStatus, :FulfillmentStatus, :IsRisky, :IsPOS, :IsServiceTrackingUpdated, :CanceledInShopify, :ClosedAt, :CreatedAt)
		ON CONFLICT (Instance, ShopifyOrderID) DO UPDATE SET
			OrderNumber=excluded.OrderNumber, Name=excluded.Name, SaleOrderID=excluded.SaleOrderID,
			LocationID=excluded.LocationID, FinancialStatus=excluded.FinancialStatus,
			FulfillmentStatus=excluded.FulfillmentStatus, IsRisky=excluded.IsRisky, IsPOS=excluded.IsPOS,
			IsServiceTrackingUpdated=excluded.IsServiceTrackingUpdated,
			CanceledInShopify=excluded.CanceledInShopify, ClosedAt=excluded.ClosedAt`
	if _, err := db.NamedExec(query, o); err != nil {
		return errors.Wrapf(err, "failed UPSERT OrderMap %d", o.ShopifyOrderID)
	}
	return db.Get(&o.ID, "SELECT ID FROM OrderMap WHERE Instance=$1 AND ShopifyOrderID=$2", o.Instance, o.ShopifyOrderID)
}

// SaveLines replaces the line links of the order.
func (o *Order) SaveLines(db *sqlx.DB, lines []*OrderLine) error {
	var err error
	tx := db.MustBegin()
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.Exec("DELETE FROM OrderLineMap WHERE OrderMapID=$1", o.ID); err != nil {
		return errors.Wrap(err, "failed DELETE OrderLineMap")
	}
	for _, l := range lines {
		l.OrderMapID = o.ID
		_, err = tx.NamedExec(`INSERT INTO OrderLineMap (OrderMapID, SaleOrderLineID, ShopifyLineID, IsDelivery, IsGiftCard, IsService)
			VALUES (:OrderMapID, :SaleOrderLineID, :ShopifyLineID, :IsDelivery, :IsGiftCard, :IsService)`, l)
		if err != nil {
			return errors.Wrap(err, "failed INSERT OrderLineMap")
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed Commit")
	}
	return nil
}

func (o *Order) Lines(db *sqlx.DB) ([]*OrderLine, error) {
	var lines []*OrderLine
	if err := db.Select(&lines, "SELECT * FROM OrderLineMap WHERE OrderMapID=$1 ORDER BY ID", o.ID); err != nil {
		return nil, errors.Wrapf(err, "failed SELECT OrderLineMap of %d", o.ID)
	}
	return lines, nil
}

// ListOpenOrders returns orders neither cancelled nor closed in Shopify.
func ListOpenOrders(db *sqlx.DB, instance string) ([]*Order, error) {
	var orders []*Order
	err := db.Select(&orders, "SELECT * FROM OrderMap WHERE Instance=$1 AND CanceledInShopify=0 AND ClosedAt IS NULL ORDER BY ID", instance)
	if err != nil {
		return nil, errors.Wrap(err, "failed SELECT OrderMap")
	}
	return orders, nil
}
